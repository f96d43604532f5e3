package prefs

// Theme selects the UI color scheme.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// State is the persisted preferences aggregate.
type State struct {
	Theme Theme `json:"theme"`
}
