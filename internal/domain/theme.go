package domain

import "fmt"

type Theme string

func (t Theme) String() string {
	return string(t)
}

const (
	ThemeGold     Theme = "gold"
	ThemeOcean    Theme = "ocean"
	ThemeSunset   Theme = "sunset"
	ThemeForest   Theme = "forest"
	ThemeLavender Theme = "lavender"
)

// DefaultTheme is used for categories persisted without a theme and for the index page.
const DefaultTheme = ThemeGold

var Themes = []Theme{
	ThemeGold,
	ThemeOcean,
	ThemeSunset,
	ThemeForest,
	ThemeLavender,
}

// ParseTheme maps a raw theme name to a Theme. An empty name yields DefaultTheme.
func ParseTheme(raw string) (Theme, error) {
	if raw == "" {
		return DefaultTheme, nil
	}
	for _, t := range Themes {
		if string(t) == raw {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown theme %q", raw)
}

// OrDefault returns the theme, or DefaultTheme when unset.
func (t Theme) OrDefault() Theme {
	if t == "" {
		return DefaultTheme
	}
	return t
}

func (t Theme) GetThemeName() string {
	switch t {
	case ThemeGold:
		return "Gold"
	case ThemeOcean:
		return "Ocean"
	case ThemeSunset:
		return "Sunset"
	case ThemeForest:
		return "Forest"
	case ThemeLavender:
		return "Lavender"
	default:
		return "Unknown"
	}
}
