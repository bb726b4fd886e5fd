package assets

// DefaultLayoutName is the built-in layout used when a view names none.
const DefaultLayoutName = "base"

// AssetLoader defines the contract for loading view layouts.
type AssetLoader interface {
	// LoadLayout loads a layout by name (without .html extension).
	// Returns ErrLayoutNotFound if the layout doesn't exist.
	// Returns ErrInvalidAssetName if the name contains invalid characters.
	LoadLayout(name string) (string, error)
}
