package api

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"stockcrew/internal/events"
	"stockcrew/internal/metrics"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

// A nil CheckOrigin rejects cross-origin upgrades.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// stream pushes the events of one run to a websocket until the run ends or
// the browser goes away. Past events of the run are replayed first.
func (s *Server) stream(c echo.Context) error {
	id, err := runID(c)
	if err != nil {
		return err
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.log.Debugw("Websocket upgrade failed", "error", err)
		return nil
	}
	defer conn.Close()

	metrics.WebSocketConnections.Inc()
	defer metrics.WebSocketConnections.Dec()

	ch, cancel := s.events.Subscribe(id.String())
	defer cancel()

	// The client never sends anything; reading only notices a close.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	log := s.log.With("run_id", id)
	for {
		select {
		case <-gone:
			log.Debugw("Websocket client went away")
			return nil
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				return nil
			}
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			ev.Message = events.SanitizeUTF8(ev.Message)
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				log.Debugw("Websocket write failed", "error", err)
				return nil
			}
			if ev.Type.Terminal() {
				_ = conn.WriteControl(
					websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(ev.Type)),
					time.Now().Add(wsWriteTimeout),
				)
				return nil
			}
		}
	}
}
