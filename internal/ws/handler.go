package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mickey7hi/audience-arena-backend/internal/hub"
)

const (
	// maxFrameBytes bounds inbound frames; the protocol has no large
	// payloads, so anything bigger is a misbehaving client.
	maxFrameBytes = 64 << 10

	writeTimeout = 3 * time.Second
)

func Handler(h *hub.Hub, log *zap.SugaredLogger, originPatterns []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: originPatterns,
		})
		if err != nil {
			log.Debugw("websocket accept failed", "err", err)
			return
		}
		defer conn.Close(websocket.StatusInternalError, "")

		conn.SetReadLimit(maxFrameBytes)

		out := make(chan []byte, 32)
		clientID := uuid.NewString()

		h.Inbox() <- hub.Join{ClientID: clientID, Outbox: out}
		defer func() { h.Inbox() <- hub.Leave{ClientID: clientID} }()
		log.Infow("client connected", "client", clientID)

		// Writer goroutine: drains the outbox the hub writes into.
		// The hub closes the outbox when it removes the connection.
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for payload := range out {
				ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
				err := conn.Write(ctx, websocket.MessageText, payload)
				cancel()
				if err != nil {
					return
				}
			}
		}()

		// Reader loop: every frame enters the hub's serialized queue.
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					conn.Close(websocket.StatusNormalClosure, "bye")
				default:
					log.Debugw("client read ended", "client", clientID, "err", err)
				}
				return
			}
			h.Inbox() <- hub.FromClient{ClientID: clientID, Data: data}
		}
	}
}
