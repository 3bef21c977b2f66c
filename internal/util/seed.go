package util

import (
	"strconv"
	"strings"
	"time"
)

// SeedFromString превращает строку из конфигурации в сид мира.
// Числовая строка разбирается как int64, любая другая хэшируется
// (s[0]*31^(n-1) + ... + s[n-1] в 32-битной арифметике).
// Пустая строка даёт текущее время в миллисекундах.
func SeedFromString(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Now().UnixMilli()
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v
	}
	return int64(StringHash(s))
}

// StringHash 32-битный полиномиальный хэш строки по UTF-16 единицам
func StringHash(s string) int32 {
	var h int32
	for _, r := range s {
		if r >= 0x10000 {
			r -= 0x10000
			h = 31*h + int32(0xD800+(r>>10))
			h = 31*h + int32(0xDC00+(r&0x3FF))
			continue
		}
		h = 31*h + int32(r)
	}
	return h
}

// ChunkSeed смешивает сид мира с координатами чанка в сид локального
// генератора случайных чисел (финализатор splitmix64).
func ChunkSeed(worldSeed int64, chunkX, chunkY int) int64 {
	z := uint64(worldSeed)
	z ^= uint64(int64(chunkX)) * 0x9E3779B97F4A7C15
	z ^= uint64(int64(chunkY)) * 0xC2B2AE3D27D4EB4F
	z ^= z >> 30
	z *= 0xBF58476D1CE4E5B9
	z ^= z >> 27
	z *= 0x94D049BB133111EB
	z ^= z >> 31
	return int64(z)
}
