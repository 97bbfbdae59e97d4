package domain

import "slices"

type Theme string

const (
	// ThemeKey is the storage key holding the selected theme.
	ThemeKey = "chat-theme"

	DefaultTheme Theme = "retro"
)

// Themes is the set offered by the UI. The preference layer stores
// any value, this list is only used for display and hints.
var Themes = []Theme{
	"light", "dark", "cupcake", "bumblebee", "emerald", "corporate",
	"synthwave", "retro", "cyberpunk", "valentine", "halloween", "garden",
	"forest", "aqua", "lofi", "pastel", "fantasy", "wireframe", "black",
	"luxury", "dracula", "cmyk", "autumn", "business", "acid", "lemonade",
	"night", "coffee", "winter", "dim", "nord", "sunset",
}

func (t Theme) IsKnown() bool {
	return slices.Contains(Themes, t)
}
