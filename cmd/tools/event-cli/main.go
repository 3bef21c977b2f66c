package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/annel0/swagaria-server/internal/eventbus"
)

const timeFormat = "15:04:05.000"

func main() {
	var (
		natsURL    = flag.String("nats", "nats://localhost:4222", "NATS server URL")
		stream     = flag.String("stream", "WORLD", "JetStream stream name")
		eventTypes = flag.String("types", "", "Event types filter (comma-separated)")
		limit      = flag.Int("limit", 0, "Stop after N events (0 = follow forever)")
		raw        = flag.Bool("raw", false, "Print envelopes as JSON lines")
	)
	flag.Parse()

	bus, err := eventbus.NewJetStreamBus(*natsURL, *stream, 0)
	if err != nil {
		log.Fatalf("❌ Failed to connect to event bus: %v", err)
	}
	defer bus.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	events := make(chan *eventbus.Envelope, 64)
	sub, err := bus.Subscribe(ctx, eventbus.Filter{Types: parseStringList(*eventTypes)}, func(_ context.Context, ev *eventbus.Envelope) {
		select {
		case events <- ev:
		case <-ctx.Done():
		}
	})
	if err != nil {
		log.Fatalf("❌ Subscribe failed: %v", err)
	}
	defer sub.Unsubscribe()

	fmt.Fprintf(os.Stderr, "🎬 Tailing %s on %s\n", *stream, *natsURL)

	count := 0
	for {
		select {
		case <-ctx.Done():
			fmt.Fprintf(os.Stderr, "\n📊 Total events: %d\n", count)
			return
		case ev := <-events:
			if *raw {
				line, _ := json.Marshal(ev)
				fmt.Println(string(line))
			} else {
				printEvent(ev)
			}
			count++
			if *limit > 0 && count >= *limit {
				fmt.Fprintf(os.Stderr, "📊 Total events: %d\n", count)
				return
			}
		}
	}
}

// printEvent выводит событие одной строкой
func printEvent(ev *eventbus.Envelope) {
	ts := ev.Timestamp.Local().Format(timeFormat)
	switch ev.EventType {
	case eventbus.TypeTileChanged:
		var p eventbus.TileChanged
		if err := ev.Decode(&p); err == nil {
			fmt.Printf("%s 🧱 player=%d %s (%d,%d) layer=%d tile=%d\n", ts, p.PlayerID, p.Command, p.X, p.Y, p.Layer, p.TileID)
			return
		}
	case eventbus.TypePlayerJoined:
		var p eventbus.PlayerJoined
		if err := ev.Decode(&p); err == nil {
			fmt.Printf("%s 👤 player=%d joined via %s from %s at (%.2f,%.2f)\n", ts, p.PlayerID, p.Transport, p.Remote, p.X, p.Y)
			return
		}
	case eventbus.TypePlayerNamed:
		var p eventbus.PlayerNamed
		if err := ev.Decode(&p); err == nil {
			fmt.Printf("%s 🏷️ player=%d is now %q\n", ts, p.PlayerID, p.Name)
			return
		}
	case eventbus.TypePlayerLeft:
		var p eventbus.PlayerLeft
		if err := ev.Decode(&p); err == nil {
			fmt.Printf("%s 👋 player=%d left: %s\n", ts, p.PlayerID, p.Reason)
			return
		}
	}
	fmt.Printf("%s ❔ %s from %s: %s\n", ts, ev.EventType, ev.Source, string(ev.Payload))
}

// parseStringList разбивает список через запятую
func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
