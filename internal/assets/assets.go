package assets

// defaultLoader is the package-level embedded loader.
var defaultLoader = NewEmbeddedLoader()

// LoadLayout loads a built-in layout by name.
// Returns ErrLayoutNotFound if the layout does not exist.
// Returns ErrInvalidAssetName if the name contains path separators or traversal.
func LoadLayout(name string) (string, error) {
	return defaultLoader.LoadLayout(name)
}

// LiveReloadScript returns the client script injected into pages served
// with live reload enabled.
func LiveReloadScript() string {
	return string(liveReloadJS)
}
