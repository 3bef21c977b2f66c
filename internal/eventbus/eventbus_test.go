package eventbus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustEnvelope(t *testing.T, source, eventType string, priority int, payload interface{}) *Envelope {
	t.Helper()
	ev, err := NewEnvelope(source, eventType, priority, payload)
	require.NoError(t, err)
	return ev
}

func TestMemoryBusDeliversFiltered(t *testing.T) {
	bus := NewMemoryBus(16)
	ctx := context.Background()

	var mu sync.Mutex
	var got []string
	_, err := bus.Subscribe(ctx, Filter{Types: []string{TypeTileChanged}}, func(_ context.Context, ev *Envelope) {
		mu.Lock()
		got = append(got, ev.EventType)
		mu.Unlock()
	})
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, mustEnvelope(t, "test", TypePlayerJoined, 5, PlayerJoined{PlayerID: 1})))
	require.NoError(t, bus.Publish(ctx, mustEnvelope(t, "test", TypeTileChanged, 5, TileChanged{PlayerID: 1, X: 3})))
	require.NoError(t, bus.Close(), "Close дожидается доставки")

	assert.Equal(t, []string{TypeTileChanged}, got)
	stats := bus.Metrics()
	assert.EqualValues(t, 2, stats.Published)
	assert.EqualValues(t, 1, stats.Consumed)
	assert.Zero(t, stats.InFlight)

	err = bus.Publish(ctx, mustEnvelope(t, "test", TypePlayerLeft, 5, PlayerLeft{PlayerID: 1}))
	assert.ErrorIs(t, err, ErrClosed)
	assert.NoError(t, bus.Close(), "Повторное закрытие безопасно")
}

func TestMemoryBusSourceFilterAndUnsubscribe(t *testing.T) {
	bus := NewMemoryBus(16)
	ctx := context.Background()

	received := make(chan *Envelope, 4)
	sub, err := bus.Subscribe(ctx, Filter{Sources: []string{"game-server"}}, func(_ context.Context, ev *Envelope) {
		received <- ev
	})
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, mustEnvelope(t, "other", TypePlayerLeft, 5, PlayerLeft{PlayerID: 2})))
	require.NoError(t, bus.Publish(ctx, mustEnvelope(t, "game-server", TypePlayerLeft, 5, PlayerLeft{PlayerID: 3, Reason: "kicked"})))

	select {
	case ev := <-received:
		var left PlayerLeft
		require.NoError(t, ev.Decode(&left))
		assert.Equal(t, PlayerLeft{PlayerID: 3, Reason: "kicked"}, left)
		assert.Equal(t, 1, ev.Version)
		assert.NotEmpty(t, ev.ID)
	case <-time.After(time.Second):
		t.Fatal("Событие не доставлено")
	}

	sub.Unsubscribe()
	require.NoError(t, bus.Publish(ctx, mustEnvelope(t, "game-server", TypePlayerLeft, 5, PlayerLeft{PlayerID: 4})))
	require.NoError(t, bus.Close())
	assert.Empty(t, received, "После отписки события не приходят")
}

func TestMemoryBusDropsLowPriorityWhenFull(t *testing.T) {
	bus := NewMemoryBus(1)
	ctx := context.Background()

	block := make(chan struct{})
	_, err := bus.Subscribe(ctx, Filter{}, func(context.Context, *Envelope) { <-block })
	require.NoError(t, err)

	// первое событие занимает обработчик, второе буфер
	require.NoError(t, bus.Publish(ctx, mustEnvelope(t, "test", TypeTileChanged, 1, TileChanged{})))
	require.Eventually(t, func() bool { return bus.Metrics().InFlight == 0 }, time.Second, time.Millisecond)
	require.NoError(t, bus.Publish(ctx, mustEnvelope(t, "test", TypeTileChanged, 1, TileChanged{})))

	require.NoError(t, bus.Publish(ctx, mustEnvelope(t, "test", TypeTileChanged, 1, TileChanged{})))
	assert.EqualValues(t, 1, bus.Metrics().Dropped)

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	err = bus.Publish(short, mustEnvelope(t, "test", TypeTileChanged, 9, TileChanged{}))
	assert.ErrorIs(t, err, context.DeadlineExceeded, "Важное событие ждёт места в буфере")

	close(block)
	require.NoError(t, bus.Close())
}

func TestMetricsExporterCollect(t *testing.T) {
	bus := NewMemoryBus(8)
	reg := prometheus.NewRegistry()
	exp := NewMetricsExporter(bus, reg)

	ctx := context.Background()
	_, err := bus.Subscribe(ctx, Filter{}, func(context.Context, *Envelope) {})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.NoError(t, bus.Publish(ctx, mustEnvelope(t, "test", TypeTileChanged, 5, TileChanged{X: i})))
	}
	require.NoError(t, bus.Close())

	prev := exp.Collect(Stats{})
	assert.EqualValues(t, 3, prev.Published)
	prev = exp.Collect(prev)
	assert.EqualValues(t, 3, prev.Consumed)

	families, err := reg.Gather()
	require.NoError(t, err)
	values := map[string]float64{}
	for _, mf := range families {
		m := mf.GetMetric()[0]
		if c := m.GetCounter(); c != nil {
			values[mf.GetName()] = c.GetValue()
		} else {
			values[mf.GetName()] = m.GetGauge().GetValue()
		}
	}
	assert.Equal(t, 3.0, values["eventbus_messages_published_total"], "Приращение не учитывается дважды")
	assert.Equal(t, 3.0, values["eventbus_messages_consumed_total"])
	assert.Equal(t, 0.0, values["eventbus_messages_inflight"])

	exp.Start()
	exp.Stop()
}
