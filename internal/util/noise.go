package util

import (
	"github.com/aquilax/go-perlin"
)

// Параметры шума Перлина
const (
	noiseAlpha   = 2.0 // Сглаживание шума
	noiseBeta    = 2.0 // Частота октав
	noiseOctaves = 3
)

// NoiseField детерминированный непрерывный 2D шум, построенный из сида один раз.
// Безопасен для одновременного чтения из нескольких горутин.
type NoiseField struct {
	perlin *perlin.Perlin
}

// NewNoiseField создаёт поле шума для сида
func NewNoiseField(seed int64) *NoiseField {
	return &NoiseField{
		perlin: perlin.NewPerlin(noiseAlpha, noiseBeta, noiseOctaves, seed),
	}
}

// Eval возвращает значение шума в точке (x, y) в диапазоне [-1, 1]
func (n *NoiseField) Eval(x, y float64) float64 {
	v := n.perlin.Noise2D(x, y)
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
