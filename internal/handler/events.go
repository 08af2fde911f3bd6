package handler

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
)

// StreamEvents handles GET /v1/events: a long-lived server-sent-events
// stream. Each record is one line of JSON framed as `data: <json>\n\n`;
// the first record on every connection is the connected handshake queued
// by the hub. The subscription is torn down the moment the client goes
// away, either via request-context cancellation or a failed write.
func (h *BoxHandler) StreamEvents(c echo.Context) error {
	w := c.Response()
	hdr := w.Header()
	hdr.Set(echo.HeaderContentType, "text/event-stream")
	hdr.Set("Cache-Control", "no-cache")
	hdr.Set("Connection", "keep-alive")
	hdr.Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)

	id, ch := h.Hub.Subscribe()
	defer h.Hub.Unsubscribe(id)

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			// Client disconnected; the deferred unsubscribe prunes the
			// channel so publish never wastes work on it.
			return nil
		case ev, ok := <-ch:
			if !ok {
				// The hub dropped us as a stalled subscriber.
				return nil
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				log.Printf("sse: marshal event failed: %v", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}
