package eventbus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Типы событий мира
const (
	TypeTileChanged  = "TileChanged"
	TypePlayerJoined = "PlayerJoined"
	TypePlayerLeft   = "PlayerLeft"
	TypePlayerNamed  = "PlayerNamed"
)

// TileChanged клетка мира изменилась по команде игрока (координаты сервера)
type TileChanged struct {
	PlayerID int    `json:"player_id"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
	Layer    int    `json:"layer"`
	TileID   int    `json:"tile_id"`
	Command  string `json:"command"`
}

// PlayerJoined игрок подключился
type PlayerJoined struct {
	PlayerID  int     `json:"player_id"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Transport string  `json:"transport"`
	Remote    string  `json:"remote"`
}

// PlayerLeft игрок отключился
type PlayerLeft struct {
	PlayerID int    `json:"player_id"`
	Reason   string `json:"reason"`
}

// PlayerNamed игрок сменил имя
type PlayerNamed struct {
	PlayerID int    `json:"player_id"`
	Name     string `json:"name"`
}

// NewEnvelope упаковывает полезную нагрузку в конверт с новым UUID
func NewEnvelope(source, eventType string, priority int, payload interface{}) (*Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return &Envelope{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Source:    source,
		EventType: eventType,
		Version:   1,
		Priority:  priority,
		Payload:   data,
	}, nil
}

// Decode разбирает полезную нагрузку конверта
func (e *Envelope) Decode(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}
