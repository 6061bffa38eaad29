package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"

	"github.com/aristath/lmt-kanban/internal/events"
	"github.com/aristath/lmt-kanban/internal/modules/dashboard"
)

const wsWriteTimeout = 10 * time.Second

// ViewRenderer renders the overview view model
type ViewRenderer interface {
	View(query string) dashboard.OverviewView
}

// ViewSocketHandler pushes the overview view model over a WebSocket after
// every refresh. Pushes coalesce: a slow client gets the latest view, not a
// backlog.
type ViewSocketHandler struct {
	eventBus *events.Bus
	views    ViewRenderer
	log      zerolog.Logger
}

// NewViewSocketHandler creates the WebSocket push handler
func NewViewSocketHandler(eventBus *events.Bus, views ViewRenderer, log zerolog.Logger) *ViewSocketHandler {
	return &ViewSocketHandler{
		eventBus: eventBus,
		views:    views,
		log:      log.With().Str("component", "view_socket").Logger(),
	}
}

// ServeHTTP handles GET /api/ws
func (h *ViewSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		h.log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "")

	// Clients only listen; CloseRead handles control frames and reports disconnects
	ctx := conn.CloseRead(r.Context())
	query := r.URL.Query().Get("q")

	notify := make(chan struct{}, 1)
	poke := func(*events.Event) {
		select {
		case notify <- struct{}{}:
		default:
		}
	}
	for _, t := range []events.EventType{events.ViewRefreshed, events.RefreshFailed, events.FilterChanged} {
		unsubscribe := h.eventBus.Subscribe(t, poke)
		defer unsubscribe()
	}

	h.log.Debug().Msg("View socket connected")

	if err := h.push(ctx, conn, query); err != nil {
		h.log.Debug().Err(err).Msg("Initial view push failed")
		return
	}

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			h.log.Debug().Msg("View socket disconnected")
			return
		case <-notify:
			if err := h.push(ctx, conn, query); err != nil {
				status := websocket.CloseStatus(err)
				if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
					h.log.Warn().Err(err).Msg("View push failed")
				}
				return
			}
		}
	}
}

func (h *ViewSocketHandler) push(ctx context.Context, conn *websocket.Conn, query string) error {
	data, err := json.Marshal(h.views.View(query))
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
