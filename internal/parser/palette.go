package parser

import (
	"fmt"
	"math/rand/v2"

	"github.com/libmocap/mocap/pkg/core"
)

// maxPaletteIndex bounds how far a file may grow the palette.
const maxPaletteIndex = 1 << 16

// baseColors are the palette entries every marker set starts with.
var baseColors = []core.Color{
	core.RGB(255, 255, 255),
	core.RGB(255, 0, 0),
	core.RGB(0, 255, 0),
	core.RGB(0, 0, 255),
	core.RGB(255, 255, 0),
	core.RGB(0, 255, 255),
	core.RGB(255, 0, 255),
	core.RGB(255, 128, 0),
}

// palette maps colour indices to colours. Indices past the current size grow
// it with random opaque colours drawn from a seeded source, so a given seed
// and file always yield the same colours.
type palette struct {
	colors []core.Color
	rng    *rand.Rand
}

func newPalette(seed uint64) *palette {
	return &palette{
		colors: append([]core.Color(nil), baseColors...),
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

func (p *palette) color(i int) (core.Color, error) {
	if i < 0 {
		return 0, fmt.Errorf("negative palette index %d", i)
	}
	if i > maxPaletteIndex {
		return 0, fmt.Errorf("palette index %d exceeds %d", i, maxPaletteIndex)
	}
	for len(p.colors) <= i {
		v := p.rng.Uint32()
		p.colors = append(p.colors, core.RGB(uint8(v>>24), uint8(v>>16), uint8(v>>8)))
	}
	return p.colors[i], nil
}

func (p *palette) len() int {
	return len(p.colors)
}
