// events/listener.go
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Listener bridges the remote store's websocket push channel onto the local
// bus: other clients' mutations arrive as frames and are republished as
// invalidations, so every open view re-fetches.
type Listener struct {
	url    string
	bus    *Bus
	log    zerolog.Logger
	dialer *websocket.Dialer
}

func NewListener(url string, bus *Bus, log zerolog.Logger) *Listener {
	return &Listener{
		url:    url,
		bus:    bus,
		log:    log.With().Str("component", "push-listener").Logger(),
		dialer: websocket.DefaultDialer,
	}
}

// Run connects and pumps frames onto the bus until the context is
// cancelled, reconnecting with a flat delay after connection loss. Only
// reads ride this connection; in-flight mutations elsewhere are never tied
// to its lifetime.
func (l *Listener) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := l.pump(ctx); err != nil && ctx.Err() == nil {
			l.log.Warn().Err(err).Msg("push connection lost, reconnecting")
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(3 * time.Second):
		}
	}
}

func (l *Listener) pump(ctx context.Context) error {
	conn, _, err := l.dialer.DialContext(ctx, l.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	l.log.Info().Str("url", l.url).Msg("push channel connected")
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var inv Invalidation
		if err := json.Unmarshal(data, &inv); err != nil {
			l.log.Warn().Err(err).Msg("dropping malformed push frame")
			continue
		}
		if inv.Topic == "" {
			continue
		}
		l.bus.Publish(inv)
	}
}
