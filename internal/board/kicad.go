package board

// KiCad internal units.
//
// KiCad 5 stores coordinates in tenths of a micrometre. KiCad 6 switched to
// nanometres and later versions kept that, so 7, 8 and 9 share one profile.

const (
	// KiCad5UnitsPerMM is the KiCad 5 scale (0.1 µm units).
	KiCad5UnitsPerMM = 1e4

	// KiCad6UnitsPerMM is the KiCad 6+ scale (1 nm units).
	KiCad6UnitsPerMM = 1e6

	// DefaultProfile is used when a board snapshot names no units.
	DefaultProfile = "kicad6"
)

// KiCad5Profile returns the KiCad 5 unit profile.
func KiCad5Profile() *BaseProfile {
	return &BaseProfile{
		ProfileName: "kicad5",
		Scale:       KiCad5UnitsPerMM,
	}
}

// KiCad6Profile returns the unit profile shared by KiCad 6 and later.
func KiCad6Profile() *BaseProfile {
	return &BaseProfile{
		ProfileName: "kicad6",
		Scale:       KiCad6UnitsPerMM,
		Aliases:     []string{"kicad7", "kicad8", "kicad9", "nm"},
	}
}
