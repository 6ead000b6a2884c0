package chat

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/mhalder/overbot/internal/render"
)

// NotificationHandler accepts Overseerr webhook notifications and
// forwards them to the configured notify room.
type NotificationHandler struct {
	messenger  Messenger
	renderer   Renderer
	notifyRoom string
	logger     *slog.Logger
}

// NewNotificationHandler creates the webhook handler. An empty
// notifyRoom means notifications are logged and dropped.
func NewNotificationHandler(messenger Messenger, renderer Renderer, notifyRoom string, logger *slog.Logger) *NotificationHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationHandler{
		messenger:  messenger,
		renderer:   renderer,
		notifyRoom: notifyRoom,
		logger:     logger,
	}
}

// ServeHTTP implements http.Handler.
func (h *NotificationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.notifyRoom == "" {
		h.logger.Info("received a notification but no notify room is configured")
		w.WriteHeader(http.StatusOK)
		return
	}

	var payload struct {
		NotificationType string `json:"notification_type"`
		Subject          string `json:"subject"`
		Message          string `json:"message"`
		Image            string `json:"image"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	_ = h.messenger.SendTyping(ctx, h.notifyRoom)

	text, err := h.renderer.Render("notify", render.NotifyView{
		Event:   payload.NotificationType,
		Subject: payload.Subject,
		Message: payload.Message,
		Image:   payload.Image,
	})
	if err != nil {
		h.logger.Error("failed to render notification", slog.Any("error", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if err := h.messenger.Send(ctx, h.notifyRoom, text); err != nil {
		h.logger.Error("failed to deliver notification", slog.Any("error", err))
		http.Error(w, "delivery failed", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
