package heatmap

import "heatmaptracker/internal/model"

// DefaultPaletteName is the palette used when nothing else resolves.
const DefaultPaletteName = "default"

// DefaultPalettes are the palettes a fresh configuration starts with.
func DefaultPalettes() model.Palettes {
	return model.Palettes{
		DefaultPaletteName: {"#c6e48b", "#7bc96f", "#49af5d", "#2e8840", "#196127"},
		"danger":           {"#fff33b", "#fdc70c", "#f3903f", "#ed683c", "#e93e3a"},
	}
}

// ResolveColors picks the ramp for a tracker: non-empty custom colors, else
// the named palette when it exists and is non-empty, else the "default"
// palette. Name matching is exact. The result is a fresh copy, so callers may
// modify it without touching the palette table.
func ResolveColors(scheme model.ColorScheme, palettes model.Palettes) model.ColorsList {
	if len(scheme.CustomColors) > 0 {
		return clone(scheme.CustomColors)
	}
	if scheme.PaletteName != "" {
		if p := palettes[scheme.PaletteName]; len(p) > 0 {
			return clone(p)
		}
	}
	if p := palettes[DefaultPaletteName]; len(p) > 0 {
		return clone(p)
	}
	return clone(DefaultPalettes()[DefaultPaletteName])
}

func clone(c model.ColorsList) model.ColorsList {
	out := make(model.ColorsList, len(c))
	copy(out, c)
	return out
}
