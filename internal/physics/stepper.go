package physics

import (
	"math"
)

// Grid запросы столкновений к тайловой сетке в координатах сервера
type Grid interface {
	IsSolid(x, y int) bool
	IsPlatform(x, y int) bool
	Bounds() (width, height int)
}

// Input флаги ввода игрока
type Input struct {
	Up    bool
	Down  bool
	Left  bool
	Right bool
}

// Body кинематическое состояние тела
type Body struct {
	X, Y     float64
	VX, VY   float64
	OnGround bool
}

// Params константы движения в тайлах и секундах
type Params struct {
	MoveSpeed     float64
	JumpSpeed     float64
	Gravity       float64
	MaxFallSpeed  float64
	PlatformBoost float64 // доля прыжка при отскоке от платформы
	MaxStep       float64 // верхняя граница dt
	Collider      BoxCollider
}

// DefaultParams стандартные параметры игрока
func DefaultParams() Params {
	return Params{
		MoveSpeed:     6,
		JumpSpeed:     12,
		Gravity:       40,
		MaxFallSpeed:  50,
		PlatformBoost: 0.6,
		MaxStep:       0.05,
		Collider:      PlayerCollider,
	}
}

// Допуски выборки клеток при проверке столкновений
const (
	rowInset    = 0.1  // отступ по вертикали при горизонтальной проверке
	columnInset = 0.05 // отступ по горизонтали при вертикальной проверке
	footInset   = 0.2  // отступ от ступней при поиске платформы для отскока
	ledgeEps    = 1e-6 // допуск "ступни над верхом платформы"
)

// Stepper продвигает тела по сетке на один шаг симуляции
type Stepper struct {
	Params Params
	Grid   Grid
}

// NewStepper создаёт шаговик
func NewStepper(params Params, grid Grid) *Stepper {
	return &Stepper{Params: params, Grid: grid}
}

// Step продвигает тело на dt секунд: сначала по горизонтали, затем по вертикали
func (s *Stepper) Step(b *Body, in Input, dt float64) {
	p := s.Params
	if dt <= 0 {
		return
	}
	if p.MaxStep > 0 && dt > p.MaxStep {
		dt = p.MaxStep
	}
	w, h := p.Collider.Width, p.Collider.Height
	worldW, worldH := s.Grid.Bounds()

	// 1. Горизонтальная скорость задаётся вводом напрямую
	b.VX = 0
	if in.Left {
		b.VX -= p.MoveSpeed
	}
	if in.Right {
		b.VX += p.MoveSpeed
	}

	// 2. Отскок от платформы при падении
	if in.Up && b.VY >= 0 && s.touchesPlatform(b) {
		b.VY = -p.JumpSpeed * p.PlatformBoost
		b.OnGround = false
	}

	// 3. Прыжок с земли
	if in.Up && b.OnGround {
		b.VY = -p.JumpSpeed
		b.OnGround = false
	}

	// 4. Гравитация
	b.VY = math.Min(b.VY+p.Gravity*dt, p.MaxFallSpeed)

	// 5. Горизонтальное движение
	newX := clamp(b.X+b.VX*dt, 0, float64(worldW)-w)
	if b.VX != 0 {
		top := floor(b.Y + rowInset)
		bottom := floor(b.Y + h - rowInset)
		if b.VX > 0 {
			right := floor(newX + w)
			for ty := top; ty <= bottom; ty++ {
				if s.Grid.IsSolid(right, ty) {
					newX = float64(right) - w
					b.VX = 0
					break
				}
			}
		} else {
			left := floor(newX)
			for ty := top; ty <= bottom; ty++ {
				if s.Grid.IsSolid(left, ty) {
					newX = float64(left + 1)
					b.VX = 0
					break
				}
			}
		}
	}
	b.X = newX

	// 6. Вертикальное движение по уже разрешённому x
	newY := b.Y + b.VY*dt
	grounded := false
	if newY < 0 {
		newY = 0
		b.VY = 0
	}
	if newY > float64(worldH)-h {
		newY = float64(worldH) - h
		b.VY = 0
		grounded = true
	}

	minTX := floor(b.X + columnInset)
	maxTX := floor(b.X + w - columnInset)

	if b.VY >= 0 {
		footRow := floor(newY + h)
		// ступни были над верхом платформы в начале шага
		wasAbove := b.Y+h <= float64(footRow)+ledgeEps
		for tx := minTX; tx <= maxTX; tx++ {
			stop := s.Grid.IsSolid(tx, footRow)
			if !stop && s.Grid.IsPlatform(tx, footRow) {
				stop = wasAbove && !in.Down
			}
			if stop {
				newY = float64(footRow) - h
				b.VY = 0
				grounded = true
				break
			}
		}
	} else {
		headRow := floor(newY)
		for tx := minTX; tx <= maxTX; tx++ {
			if s.Grid.IsSolid(tx, headRow) {
				newY = float64(headRow + 1)
				b.VY = 0
				break
			}
		}
	}

	// 7. Фиксация
	b.Y = newY
	b.OnGround = grounded
}

// touchesPlatform проверяет платформу под ступнями или на середине тела
func (s *Stepper) touchesPlatform(b *Body) bool {
	w, h := s.Params.Collider.Width, s.Params.Collider.Height
	centerX := floor(b.X + w/2)
	footY := floor(b.Y + h - footInset)
	midY := floor(b.Y + h/2)
	return s.Grid.IsPlatform(centerX, footY) || s.Grid.IsPlatform(centerX, midY)
}

func floor(v float64) int {
	return int(math.Floor(v))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
