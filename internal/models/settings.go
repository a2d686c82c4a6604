package models

import "github.com/starford/glamcal/internal/datekey"

// Theme is a colour theme name.
type Theme string

// Available themes.
const (
	ThemeRose     Theme = "rose"
	ThemeLavender Theme = "lavender"
	ThemeMint     Theme = "mint"
	ThemeOcean    Theme = "ocean"
)

// Themes lists every supported theme.
var Themes = []Theme{ThemeRose, ThemeLavender, ThemeMint, ThemeOcean}

// Font is a display font family.
type Font string

// Available fonts.
const (
	FontPoppins    Font = "Poppins"
	FontMontserrat Font = "Montserrat"
	FontLato       Font = "Lato"
	FontPlayfair   Font = "Playfair Display"
)

// Fonts lists every supported font.
var Fonts = []Font{FontPoppins, FontMontserrat, FontLato, FontPlayfair}

// ClosedDateRange is an inclusive range of closed days. Start <= End.
type ClosedDateRange struct {
	Start datekey.Key `json:"start"`
	End   datekey.Key `json:"end"`
}

// ClosedDaysConfig is the closure rule set.
type ClosedDaysConfig struct {
	CloseOnSundays bool              `json:"closeOnSundays"`
	CustomRanges   []ClosedDateRange `json:"customRanges"`
}

// Clone returns a deep copy.
func (c ClosedDaysConfig) Clone() ClosedDaysConfig {
	out := ClosedDaysConfig{CloseOnSundays: c.CloseOnSundays, CustomRanges: make([]ClosedDateRange, len(c.CustomRanges))}
	copy(out.CustomRanges, c.CustomRanges)
	return out
}

// Settings holds owner preferences. Only ClosedDays affects scheduling.
type Settings struct {
	Theme      Theme            `json:"theme"`
	Font       Font             `json:"font"`
	Logo       *string          `json:"logo"` // data URI or null
	ClosedDays ClosedDaysConfig `json:"closedDays"`
}

// Clone returns a deep copy.
func (s Settings) Clone() Settings {
	out := s
	if s.Logo != nil {
		logo := *s.Logo
		out.Logo = &logo
	}
	out.ClosedDays = s.ClosedDays.Clone()
	return out
}
