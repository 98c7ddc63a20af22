package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTheme(t *testing.T) {
	theme, err := ParseTheme("")
	require.NoError(t, err)
	assert.Equal(t, ThemeGold, theme)

	for _, want := range Themes {
		got, err := ParseTheme(want.String())
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err = ParseTheme("Ocean")
	require.Error(t, err)
}

func TestTheme_OrDefaultAndName(t *testing.T) {
	assert.Equal(t, ThemeGold, Theme("").OrDefault())
	assert.Equal(t, ThemeForest, ThemeForest.OrDefault())
	assert.Equal(t, "Lavender", ThemeLavender.GetThemeName())
	assert.Equal(t, "Unknown", Theme("neon").GetThemeName())
}
