package entity

import (
	"fmt"
	"math"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/annel0/swagaria-server/internal/physics"
	"github.com/annel0/swagaria-server/internal/vec"
	"github.com/annel0/swagaria-server/internal/world/item"
)

// MoveEpsilon минимальное смещение, о котором сообщают клиентам
const MoveEpsilon = 0.001

// Key клавиша управления
type Key uint8

const (
	KeyUp Key = iota
	KeyDown
	KeyLeft
	KeyRight
)

// ParseAction разбирает действие вида RIGHT_DOWN / RIGHT_UP
func ParseAction(action string) (Key, bool, error) {
	switch action {
	case "UP_DOWN":
		return KeyUp, true, nil
	case "UP_UP":
		return KeyUp, false, nil
	case "DOWN_DOWN":
		return KeyDown, true, nil
	case "DOWN_UP":
		return KeyDown, false, nil
	case "LEFT_DOWN":
		return KeyLeft, true, nil
	case "LEFT_UP":
		return KeyLeft, false, nil
	case "RIGHT_DOWN":
		return KeyRight, true, nil
	case "RIGHT_UP":
		return KeyRight, false, nil
	default:
		return 0, false, fmt.Errorf("unknown input action %q", action)
	}
}

// Player состояние игрока. Все поля кинематики защищены mu:
// тик и сессия обращаются к ним из разных горутин.
type Player struct {
	ID        int
	Inventory *item.Inventory
	JoinedAt  time.Time

	joined atomic.Bool // остальные клиенты уже получили PLAYER_JOIN

	mu     sync.Mutex
	name   string
	body   physics.Body
	input  physics.Input
	synced vec.Vec2Float // последняя разосланная позиция
}

// NewPlayer создаёт игрока в точке pos (левый верхний угол тела)
func NewPlayer(id int, pos vec.Vec2Float, inv *item.Inventory) *Player {
	return &Player{
		ID:        id,
		Inventory: inv,
		JoinedAt:  time.Now(),
		body:      physics.Body{X: pos.X, Y: pos.Y},
		synced:    pos,
	}
}

// Name имя, выбранное игроком; пустое, пока клиент не прислал SETNAME
func (p *Player) Name() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.name
}

// DisplayName имя для логов и REST: выбранное или Player<id>
func (p *Player) DisplayName() string {
	if name := p.Name(); name != "" {
		return name
	}
	return "Player" + strconv.Itoa(p.ID)
}

// SetName меняет имя игрока
func (p *Player) SetName(name string) {
	p.mu.Lock()
	p.name = name
	p.mu.Unlock()
}

// MarkJoined отмечает, что об игроке объявлено остальным
func (p *Player) MarkJoined() { p.joined.Store(true) }

// Joined сообщает, объявлен ли игрок остальным
func (p *Player) Joined() bool { return p.joined.Load() }

// Position возвращает текущую позицию
func (p *Player) Position() vec.Vec2Float {
	p.mu.Lock()
	defer p.mu.Unlock()
	return vec.Vec2Float{X: p.body.X, Y: p.body.Y}
}

// Body возвращает копию кинематического состояния
func (p *Player) Body() physics.Body {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.body
}

// Input возвращает копию флагов ввода
func (p *Player) Input() physics.Input {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.input
}

// SetBody заменяет кинематическое состояние
func (p *Player) SetBody(b physics.Body) {
	p.mu.Lock()
	p.body = b
	p.mu.Unlock()
}

// SetKey выставляет или снимает флаг ввода
func (p *Player) SetKey(k Key, pressed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch k {
	case KeyUp:
		p.input.Up = pressed
	case KeyDown:
		p.input.Down = pressed
	case KeyLeft:
		p.input.Left = pressed
	case KeyRight:
		p.input.Right = pressed
	}
}

// ApplyAction применяет действие INPUT
func (p *Player) ApplyAction(action string) error {
	k, pressed, err := ParseAction(action)
	if err != nil {
		return err
	}
	p.SetKey(k, pressed)
	return nil
}

// Step продвигает игрока и сообщает, сдвинулся ли он заметно
// относительно последней разосланной позиции
func (p *Player) Step(s *physics.Stepper, dt float64) (vec.Vec2Float, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s.Step(&p.body, p.input, dt)

	pos := vec.Vec2Float{X: p.body.X, Y: p.body.Y}
	if math.Abs(pos.X-p.synced.X) <= MoveEpsilon && math.Abs(pos.Y-p.synced.Y) <= MoveEpsilon {
		return pos, false
	}
	p.synced = pos
	return pos, true
}
