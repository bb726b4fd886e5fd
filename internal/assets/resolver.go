package assets

import (
	"errors"
	"os"
)

// AssetResolver combines project and embedded loaders. Project layouts take
// precedence; a name missing from the project falls back to the built-in one.
type AssetResolver struct {
	custom   AssetLoader // nil when the project has no layouts directory
	embedded AssetLoader
}

// NewAssetResolver creates an AssetResolver.
// A customBasePath that is empty or does not exist means embedded layouts only.
// Returns error if customBasePath exists but is not a usable directory.
func NewAssetResolver(customBasePath string) (*AssetResolver, error) {
	resolver := &AssetResolver{
		embedded: NewEmbeddedLoader(),
	}

	if customBasePath == "" {
		return resolver, nil
	}
	if _, err := os.Stat(customBasePath); errors.Is(err, os.ErrNotExist) {
		return resolver, nil
	}

	fsLoader, err := NewFilesystemLoader(customBasePath)
	if err != nil {
		return nil, err
	}
	resolver.custom = fsLoader
	return resolver, nil
}

// LoadLayout loads a layout, trying the project loader first if available.
func (r *AssetResolver) LoadLayout(name string) (string, error) {
	if r.custom == nil {
		return r.embedded.LoadLayout(name)
	}

	content, err := r.custom.LoadLayout(name)
	if err == nil {
		return content, nil
	}

	// Only fall back for "not found" errors, not validation or I/O errors
	if !errors.Is(err, ErrLayoutNotFound) {
		return "", err
	}
	return r.embedded.LoadLayout(name)
}

// HasCustomLoader returns true if project layouts are configured.
func (r *AssetResolver) HasCustomLoader() bool {
	return r.custom != nil
}

// Compile-time interface check.
var _ AssetLoader = (*AssetResolver)(nil)
