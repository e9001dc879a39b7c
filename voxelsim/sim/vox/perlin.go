package vox

import (
	"math"
)

// PerlinNoise2D is a fractal 2D value-noise generator.
//
//   - Octaves: the amount of detail.
//   - Amplitude: the maximum absolute output value.
//   - Frequency: cycles per unit length.
//   - Persistence: amplitude multiplier per successive octave.
//   - Lacunarity: frequency multiplier per successive octave.
//   - Scale: viewing distance of the noise map, per axis.
//   - Bias: constant added to the output.
//   - Seed: offset changing the whole field.
type PerlinNoise2D struct {
	Octaves     int32
	Amplitude   float64
	Frequency   float64
	Persistence float64
	Lacunarity  float64
	Scale       [2]float64
	Bias        float64
	Seed        int32
}

// GetNoise returns the noise value at (x, y).
func (p *PerlinNoise2D) GetNoise(x, y float64) float64 {
	return p.Bias + p.Amplitude*p.total(x/p.Scale[0], y/p.Scale[1])
}

func (p *PerlinNoise2D) total(x, y float64) float64 {
	t := 0.0
	amp := 1.0
	freq := p.Frequency
	for i := int32(0); i < p.Octaves; i++ {
		t += p.getValue(y*freq+float64(p.Seed), x*freq+float64(p.Seed)) * amp
		amp *= p.Persistence
		freq *= p.Lacunarity
	}
	return t
}

func (p *PerlinNoise2D) interpolate(x, y, a float64) float64 {
	negA := 1.0 - a
	negASqr := negA * negA
	fac1 := 3.0*negASqr - 2.0*negASqr*negA
	aSqr := a * a
	fac2 := 3.0*aSqr - 2.0*aSqr*a
	return x*fac1 + y*fac2
}

func (p *PerlinNoise2D) noise(x, y int32) float64 {
	n := int64(x) + int64(y)*57
	n = (n << 13) ^ n
	t := n*n*(n*15731+789221) + 1376312589
	t &= 0x7fffffff
	return 1.0 - float64(t)*0.931322574615478515625e-9
}

func (p *PerlinNoise2D) getValue(x, y float64) float64 {
	xInt := int32(x)
	yInt := int32(y)
	xFrac := x - math.Floor(x)
	yFrac := y - math.Floor(y)

	n01 := p.noise(xInt-1, yInt-1)
	n02 := p.noise(xInt+1, yInt-1)
	n03 := p.noise(xInt-1, yInt+1)
	n04 := p.noise(xInt+1, yInt+1)
	n05 := p.noise(xInt-1, yInt)
	n06 := p.noise(xInt+1, yInt)
	n07 := p.noise(xInt, yInt-1)
	n08 := p.noise(xInt, yInt+1)
	n09 := p.noise(xInt, yInt)

	n12 := p.noise(xInt+2, yInt-1)
	n14 := p.noise(xInt+2, yInt+1)
	n16 := p.noise(xInt+2, yInt)

	n23 := p.noise(xInt-1, yInt+2)
	n24 := p.noise(xInt+1, yInt+2)
	n28 := p.noise(xInt, yInt+2)

	n34 := p.noise(xInt+2, yInt+2)

	x0y0 := 0.0625*(n01+n02+n03+n04) + 0.125*(n05+n06+n07+n08) + 0.25*n09
	x1y0 := 0.0625*(n07+n12+n08+n14) + 0.125*(n09+n16+n02+n04) + 0.25*n06
	x0y1 := 0.0625*(n05+n06+n23+n24) + 0.125*(n03+n04+n09+n28) + 0.25*n08
	x1y1 := 0.0625*(n09+n16+n28+n34) + 0.125*(n08+n14+n06+n24) + 0.25*n04

	v1 := p.interpolate(x0y0, x1y0, xFrac)
	v2 := p.interpolate(x0y1, x1y1, xFrac)
	return p.interpolate(v1, v2, yFrac)
}
