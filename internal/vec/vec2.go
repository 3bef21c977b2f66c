package vec

import "math"

// ChunkShift - log2 размера чанка (16 тайлов)
const ChunkShift = 4

// ChunkMask маска локальной координаты внутри чанка
const ChunkMask = (1 << ChunkShift) - 1

// Vec2 представляет 2D координаты тайла или чанка
type Vec2 struct {
	X, Y int
}

// ToChunkCoords преобразует глобальные координаты в координаты чанка (деление с округлением вниз)
func (v Vec2) ToChunkCoords() Vec2 {
	return Vec2{X: v.X >> ChunkShift, Y: v.Y >> ChunkShift}
}

// LocalInChunk возвращает локальные координаты внутри чанка (неотрицательный модуль 16)
func (v Vec2) LocalInChunk() Vec2 {
	return Vec2{X: v.X & ChunkMask, Y: v.Y & ChunkMask}
}

// FromChunkLocal собирает глобальную координату из координат чанка и локальных координат
func FromChunkLocal(chunk, local Vec2) Vec2 {
	return Vec2{X: chunk.X<<ChunkShift + local.X, Y: chunk.Y<<ChunkShift + local.Y}
}

// Add складывает два вектора
func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{X: v.X + other.X, Y: v.Y + other.Y}
}

// Neighbors4 возвращает четырёх соседей по сторонам: слева, справа, сверху, снизу
func (v Vec2) Neighbors4() [4]Vec2 {
	return [4]Vec2{
		{X: v.X - 1, Y: v.Y},
		{X: v.X + 1, Y: v.Y},
		{X: v.X, Y: v.Y - 1},
		{X: v.X, Y: v.Y + 1},
	}
}

// Center возвращает центр тайла в тайловых единицах
func (v Vec2) Center() Vec2Float {
	return Vec2Float{X: float64(v.X) + 0.5, Y: float64(v.Y) + 0.5}
}

// DistanceTo вычисляет расстояние до другой точки
func (v Vec2) DistanceTo(other Vec2) float64 {
	dx := float64(v.X - other.X)
	dy := float64(v.Y - other.Y)
	return math.Sqrt(dx*dx + dy*dy)
}
