package chart

import (
	"math/rand/v2"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// PaletteSize is the number of entries in Inferno256
const PaletteSize = 256

// DefaultPaletteSeed gives the palette order used by the dashboard
const DefaultPaletteSeed uint64 = 42

// Polynomial fit of matplotlib's inferno colormap, one coefficient row per degree
var infernoCoefficients = [7][3]float64{
	{0.0002189403691192265, 0.001651004631001012, -0.01948089843709184},
	{0.1065134194856116, 0.5639564367884091, 3.932712388889277},
	{11.60249308247187, -3.972853965665698, -15.9423941062914},
	{-41.70399613139459, 17.43639888205313, 44.35414519872813},
	{77.162935699427, -33.40235894210092, -81.80730925738993},
	{-71.31942824499214, 32.62606426397723, 73.20951985803202},
	{25.13112622477341, -12.24266895238567, -23.07032500287172},
}

// Inferno returns the inferno colour at t in [0, 1]
func Inferno(t float64) colorful.Color {
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}

	var c [3]float64
	for ch := 0; ch < 3; ch++ {
		v := infernoCoefficients[6][ch]
		for deg := 5; deg >= 0; deg-- {
			v = infernoCoefficients[deg][ch] + t*v
		}
		c[ch] = v
	}
	return colorful.Color{R: c[0], G: c[1], B: c[2]}.Clamped()
}

// Inferno256 returns the 256 colour inferno palette as #rrggbb strings, dark to bright
func Inferno256() []string {
	palette := make([]string, PaletteSize)
	for i := range palette {
		palette[i] = Inferno(float64(i) / float64(PaletteSize-1)).Hex()
	}
	return palette
}

// ShuffledPalette returns Inferno256 in a deterministic order for seed
func ShuffledPalette(seed uint64) []string {
	palette := Inferno256()
	rng := rand.New(rand.NewPCG(seed, seed))
	rng.Shuffle(len(palette), func(i, j int) {
		palette[i], palette[j] = palette[j], palette[i]
	})
	return palette
}
