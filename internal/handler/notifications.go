package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/flowtrack/internal/notify"
	"github.com/BuzzLyutic/flowtrack/pkg/respond"
)

const keepAliveInterval = 15 * time.Second

// NotificationHandler streams notices from the bus as server-sent events.
type NotificationHandler struct {
	bus    *notify.Bus
	logger *zap.Logger
}

func NewNotificationHandler(bus *notify.Bus, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		bus:    bus,
		logger: logger,
	}
}

func (h *NotificationHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respond.Error(w, r, http.StatusInternalServerError, "streaming not supported")
		return
	}

	ch := h.bus.Subscribe()
	defer h.bus.Unsubscribe(ch)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case n, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(n)
			if err != nil {
				h.logger.Error("failed to encode notice", zap.Error(err))
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", n.Level, data)
			flusher.Flush()
		}
	}
}
