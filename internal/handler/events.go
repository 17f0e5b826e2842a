package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/photobooth/gallery/internal/metrics"
	"github.com/photobooth/gallery/internal/notify"
)

// DefaultPollInterval is how often the stream checks the notifier slot.
const DefaultPollInterval = 500 * time.Millisecond

// EventsHandler streams gallery change events over Server-Sent Events.
type EventsHandler struct {
	notifier notify.Notifier
	interval time.Duration
	metrics  metrics.Recorder
	logger   *slog.Logger
}

// NewEventsHandler creates a new EventsHandler.
func NewEventsHandler(notifier notify.Notifier, interval time.Duration, recorder metrics.Recorder, logger *slog.Logger) *EventsHandler {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &EventsHandler{
		notifier: notifier,
		interval: interval,
		metrics:  recorder,
		logger:   logger,
	}
}

// Stream handles GET /api/events.
// Each tick consumes the slot and writes either one event or a heartbeat
// comment. The loop ends when the client disconnects.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)

	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")

	// The stream outlives the server write timeout.
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("cannot clear write deadline", slog.String("error", err.Error()))
	}

	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		h.logger.Error("event stream requires a flushable writer", slog.String("error", err.Error()))
		return
	}

	ctx := r.Context()
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		frame, delivered := h.nextFrame(r)
		if _, err := w.Write(frame); err != nil {
			return
		}
		if err := rc.Flush(); err != nil {
			return
		}
		if delivered {
			h.metrics.IncEventDelivered()
		}
	}
}

var heartbeat = []byte(": heartbeat\n\n")

func (h *EventsHandler) nextFrame(r *http.Request) ([]byte, bool) {
	event, err := h.notifier.Consume(r.Context())
	if err != nil {
		h.logger.Warn("failed to consume change event", slog.String("error", err.Error()))
		return heartbeat, false
	}
	if event == nil {
		return heartbeat, false
	}

	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to encode change event", slog.String("error", err.Error()))
		return heartbeat, false
	}

	frame := make([]byte, 0, len(payload)+8)
	frame = append(frame, "data: "...)
	frame = append(frame, payload...)
	frame = append(frame, "\n\n"...)
	return frame, true
}
