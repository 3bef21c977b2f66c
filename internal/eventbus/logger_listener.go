package eventbus

import (
	"context"

	"github.com/annel0/swagaria-server/internal/logging"
)

// StartLoggingListener подписывается на все события и пишет их в лог компонента eventbus.
// Функция неблокирующая.
func StartLoggingListener(bus EventBus) (Subscription, error) {
	logger := logging.GetEventBusLogger()
	sub, err := bus.Subscribe(context.Background(), Filter{}, func(ctx context.Context, ev *Envelope) {
		switch ev.EventType {
		case TypeTileChanged:
			var tc TileChanged
			if err := ev.Decode(&tc); err == nil {
				logger.Debug("[EventBus] %s игрок %d: (%d,%d) слой %d -> %d (%s)",
					ev.EventType, tc.PlayerID, tc.X, tc.Y, tc.Layer, tc.TileID, tc.Command)
				return
			}
		case TypePlayerJoined, TypePlayerLeft, TypePlayerNamed:
			logger.Info("[EventBus] %s %s", ev.EventType, string(ev.Payload))
			return
		}
		logger.Debug("[EventBus] %s %s src=%s prio=%d size=%dB", ev.ID, ev.EventType, ev.Source, ev.Priority, len(ev.Payload))
	})
	if err != nil {
		return nil, err
	}
	logger.Info("🪵 LoggingListener: подписка на все события активирована")
	return sub, nil
}
