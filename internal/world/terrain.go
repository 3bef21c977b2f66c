package world

// TerrainConfig параметры процедурной генерации
type TerrainConfig struct {
	BaseHeight    float64 // Базовая высота поверхности
	Amplitude     float64 // Амплитуда холмов
	Frequency     float64 // Частота шума высот
	SurfaceOffset float64 // Вертикальный сдвиг поверхности

	DirtDepth      int     // Толщина слоя земли под травой
	SlateDepth     int     // Глубина под поверхностью, ниже которой камень сменяется сланцем
	CaveFrequency  float64 // Частота шума пещер
	CaveThreshold  float64 // Порог шума, выше которого вырезается пещера
	CaveSeedOffset int64   // Сдвиг сида для независимого шума пещер

	TreeChance    float64 // Вероятность дерева на подходящей траве
	TreeMinHeight int
	TreeMaxHeight int
	TreeSpacing   int     // Минимальное расстояние между стволами
	FloraChance   float64 // Вероятность травы/цветка
	FlowerChance  float64 // Доля цветов среди флоры

	SpawnClearance int // На сколько клеток выше поверхности появляется игрок
}

// DefaultTerrain возвращает стандартные параметры генерации
func DefaultTerrain() TerrainConfig {
	return TerrainConfig{
		BaseHeight:    40,
		Amplitude:     10,
		Frequency:     0.02,
		SurfaceOffset: 40,

		DirtDepth:      3,
		SlateDepth:     40,
		CaveFrequency:  0.1,
		CaveThreshold:  0.3,
		CaveSeedOffset: 7919,

		TreeChance:    0.15,
		TreeMinHeight: 4,
		TreeMaxHeight: 7,
		TreeSpacing:   3,
		FloraChance:   0.4,
		FlowerChance:  0.2,

		SpawnClearance: 10,
	}
}

// Config размеры и сид мира
type Config struct {
	Seed    int64
	ChunksX int
	ChunksY int
	Terrain TerrainConfig
}
