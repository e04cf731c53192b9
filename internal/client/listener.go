package client

import (
	"context"
	"strings"

	gws "github.com/gorilla/websocket"
	"github.com/marco/chatlink/internal/websocket"
)

// Listener consumes the server's push channel and feeds every event into
// the syncer's caches.
type Listener struct {
	api    *API
	syncer *Syncer
}

func NewListener(api *API, syncer *Syncer) *Listener {
	return &Listener{api: api, syncer: syncer}
}

// Run dials the push channel and applies events until the context is
// cancelled or the connection drops. The caller decides whether to
// reconnect; caches stay correct either way since every read path is
// TTL-bounded.
func (l *Listener) Run(ctx context.Context) error {
	wsURL := httpToWS(l.api.BaseURL()) + "/ws?token=" + l.api.AccessToken()

	conn, _, err := gws.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		var ev websocket.Event
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		l.syncer.ApplyEvent(&ev)
	}
}

func httpToWS(baseURL string) string {
	switch {
	case strings.HasPrefix(baseURL, "https://"):
		return "wss://" + strings.TrimPrefix(baseURL, "https://")
	case strings.HasPrefix(baseURL, "http://"):
		return "ws://" + strings.TrimPrefix(baseURL, "http://")
	default:
		return baseURL
	}
}
