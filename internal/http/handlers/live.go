package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API serves browser clients on other origins; auth happens through
	// the fundraiser visibility check, not the Origin header.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	liveWriteWait  = 10 * time.Second
	livePingPeriod = 30 * time.Second
)

// LiveFeed streams donation and milestone events for one fundraiser over a
// websocket. Visibility follows the fundraiser itself; the hub drops events
// for subscribers that stop draining.
func (a *App) LiveFeed(w http.ResponseWriter, r *http.Request) {
	fundraiserID := chi.URLParam(r, "id")
	if _, err := a.visibleFundraiser(r, fundraiserID); err != nil {
		a.domainError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.Logger.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	sub := a.Hub.Subscribe(fundraiserID)
	defer a.Hub.Unsubscribe(fundraiserID, sub)

	// Reader goroutine: the client never sends data, but reading is how we
	// learn the connection is gone.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(livePingPeriod)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
