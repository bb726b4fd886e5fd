// Package pipeline implements the HTML transformations behind the build steps.
//
//   - Views: Markdown with optional front matter compiled into HTML templates
//     through a layout (Goldmark, chroma highlighting, button shortcode)
//   - Render: templates executed against project data files and partials
//   - Inline: local stylesheets embedded and CSS moved into style attributes
//   - Style build: <!-- build:style NAME --> blocks replaced by <style> elements
//   - Mail preparation: image URL rewriting and the plain-text alternative
//
// Functions here work on strings; reading and writing the project tree is
// left to the step adapters.
package pipeline
