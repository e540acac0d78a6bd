package annotate

import (
	"fmt"
	"image/color"
	"math"
	"math/rand"
	"time"

	"github.com/lucasb-eyer/go-colorful"
)

// ColorStrategy assigns one drawing color per detection in a frame.
type ColorStrategy interface {
	Colors(n int) []color.RGBA
}

// Strategy names accepted by NewStrategy.
const (
	StrategyRandom = "random"
	StrategyGolden = "golden"
)

// NewStrategy returns the strategy called name.
func NewStrategy(name string, seed int64) (ColorStrategy, error) {
	switch name {
	case "", StrategyRandom:
		return Random{Seed: seed}, nil
	case StrategyGolden:
		return Golden{}, nil
	default:
		return nil, fmt.Errorf("unknown color strategy %q", name)
	}
}

// Random draws every channel uniformly from 0-255. Colors may repeat or be
// hard to tell apart.
//
// With a non-zero Seed each call restarts the sequence, so detection i gets
// the same color on every frame.
type Random struct {
	Seed int64
}

// Colors implements ColorStrategy.
func (r Random) Colors(n int) []color.RGBA {
	seed := r.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	out := make([]color.RGBA, n)
	for i := range out {
		out[i] = color.RGBA{
			R: uint8(rng.Intn(256)),
			G: uint8(rng.Intn(256)),
			B: uint8(rng.Intn(256)),
			A: 255,
		}
	}
	return out
}

const goldenAngle = 0.618033988749895 * 360

// Golden steps the hue by the golden angle, which keeps neighbouring indices
// far apart on the color wheel. The output is deterministic.
type Golden struct {
	// Offset is the hue of the first color in degrees.
	Offset float64
}

// Colors implements ColorStrategy.
func (g Golden) Colors(n int) []color.RGBA {
	out := make([]color.RGBA, n)
	for i := range out {
		hue := math.Mod(g.Offset+float64(i)*goldenAngle, 360)
		r, gr, b := colorful.Hsv(hue, 0.65, 0.95).Clamped().RGB255()
		out[i] = color.RGBA{R: r, G: gr, B: b, A: 255}
	}
	return out
}

// textColor picks black or white, whichever reads better on bg.
func textColor(bg color.RGBA) color.RGBA {
	c, _ := colorful.MakeColor(bg)
	l, _, _ := c.Lab()
	if l > 0.6 {
		return color.RGBA{A: 255}
	}
	return color.RGBA{R: 255, G: 255, B: 255, A: 255}
}
