package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cafeteria-dispatch-board/internal/hub"
	"github.com/iliyamo/cafeteria-dispatch-board/internal/middleware"
	"github.com/iliyamo/cafeteria-dispatch-board/internal/model"
	"github.com/iliyamo/cafeteria-dispatch-board/internal/queue"
	queue_publisher "github.com/iliyamo/cafeteria-dispatch-board/internal/service"
	"github.com/iliyamo/cafeteria-dispatch-board/internal/store"
)

// BoxHandler bundles the box endpoints' dependencies: the authoritative
// store, the fan-out hub, and the optional write-audit repository.
type BoxHandler struct {
	Store *store.BoxStore
	Hub   *hub.EventHub
	Audit auditRecorder
}

// auditRecorder is the slice of the audit repository the handler needs.
// A nil recorder (database disabled) turns auditing off.
type auditRecorder interface {
	RecordWrite(ctx context.Context, boxID string, status model.BoxStatus, actor model.Actor, applied bool)
	RecordReset(ctx context.Context, actor model.Actor)
}

func NewBoxHandler(s *store.BoxStore, h *hub.EventHub, audit auditRecorder) *BoxHandler {
	if s == nil || h == nil {
		panic("nil store or hub passed to NewBoxHandler")
	}
	return &BoxHandler{Store: s, Hub: h, Audit: audit}
}

type updateBoxReq struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Actor  string `json:"actor"`
}

// GetBoxes handles GET /v1/boxes and returns the full board snapshot.
// Staleness is controlled entirely by the application, so every caching
// layer between the store and the viewer is told to stand down.
func (h *BoxHandler) GetBoxes(c echo.Context) error {
	boxes := h.Store.GetAll()

	// timestamp mirrors the most recent write so clients can order a
	// snapshot against pushed events.
	var latest int64
	for _, b := range boxes {
		if b.LastModified > latest {
			latest = b.LastModified
		}
	}

	hdr := c.Response().Header()
	hdr.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	hdr.Set("Pragma", "no-cache")
	hdr.Set("Expires", "0")

	return c.JSON(http.StatusOK, echo.Map{
		"success":     true,
		"boxes":       boxes,
		"timestamp":   latest,
		"server_time": time.Now().UnixMilli(),
	})
}

// UpdateBox handles POST /v1/boxes. The body names one box, its proposed
// status, and the actor making the write. The admin actor label is only
// honored for callers with an admin session; the sync path itself never
// inspects credentials. The broadcast is attempted before the response is
// written, so an acknowledged write has already been fanned out.
func (h *BoxHandler) UpdateBox(c echo.Context) error {
	var req updateBoxReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "invalid request body"})
	}
	req.ID = strings.TrimSpace(req.ID)
	if req.ID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "id is required"})
	}
	status := model.BoxStatus(req.Status)
	if !status.Valid() {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "invalid status"})
	}
	actor := model.Actor(req.Actor)
	if actor != model.ActorUser && actor != model.ActorAdmin {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "actor must be user or admin"})
	}
	if actor == model.ActorAdmin && !middleware.IsAdmin(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"success": false, "error": "admin session required"})
	}

	box, applied, err := h.Store.ApplyUpdate(req.ID, status, actor)
	if err == store.ErrBoxNotFound {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "error": "box not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "update failed"})
	}

	// Broadcast the authoritative record either way: on a shadowed write
	// this re-asserts the protected admin state to every viewer,
	// including the tab whose optimistic update just lost.
	h.Hub.Publish(model.ChangeEvent{Kind: model.EventBoxUpdated, Box: &box})

	if h.Audit != nil {
		h.Audit.RecordWrite(c.Request().Context(), req.ID, status, actor, applied)
	}
	if applied {
		go publishBoxChanged(box)
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "applied": applied, "box": box})
}

// ResetBoxes handles DELETE /v1/boxes. Reset is admin-gated by the router
// and always wins over the grace window.
func (h *BoxHandler) ResetBoxes(c echo.Context) error {
	boxes := h.Store.ResetAll(model.ActorAdmin)

	h.Hub.Publish(model.ChangeEvent{Kind: model.EventAllReset, Boxes: boxes})

	if h.Audit != nil {
		h.Audit.RecordReset(c.Request().Context(), model.ActorAdmin)
	}
	go publishBoxChanged(model.Box{ID: "*", Status: model.StatusWaiting, LastModifiedBy: model.ActorAdmin, LastModified: time.Now().UnixMilli()})

	return c.JSON(http.StatusOK, echo.Map{"success": true, "boxes": boxes})
}

// publishBoxChanged forwards an accepted write to the broker, detached
// from the request so a slow or absent broker cannot delay the response.
func publishBoxChanged(box model.Box) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = queue_publisher.PublishBoxChanged(ctx, queue.BoxChangedEvent{
		BoxID:     box.ID,
		Number:    box.Number,
		Status:    string(box.Status),
		Actor:     string(box.LastModifiedBy),
		ChangedAt: time.UnixMilli(box.LastModified).UTC().Format(time.RFC3339),
	})
}
