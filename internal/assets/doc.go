// Package assets provides the page layouts views are wrapped in and the
// live-reload client script.
//
// # Loader Architecture
//
//	AssetLoader (interface)
//	    │
//	    ├── EmbeddedLoader    - built-in layouts compiled into the binary
//	    ├── FilesystemLoader  - project layouts from <views>/layouts
//	    └── AssetResolver     - project first, built-in as fallback
//
// A project overrides the built-in "base" layout by creating
// <views>/layouts/base.html; other names add new layouts.
//
// Layouts are text/template documents receiving Title, Preheader, Style,
// Lang and Content. They are not HTML-escaped by the template engine so that
// Outlook conditional comments and build markers survive.
//
// # Security
//
// Asset names are validated to prevent path traversal attacks.
// FilesystemLoader resolves symlinks and verifies paths stay within basePath.
package assets
