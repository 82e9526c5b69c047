// internal/handlers/session.go
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/ammerola/tableside-be/internal/core/ports"
	"github.com/ammerola/tableside-be/internal/core/services"
)

// SessionHandler drives the login and logout cart flows. Authentication
// itself happens upstream; by the time these endpoints are hit the identity
// headers are already trustworthy.
type SessionHandler struct {
	carts  *services.CartManager
	syncer ports.Syncer
	logger *slog.Logger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(carts *services.CartManager, syncer ports.Syncer, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		carts:  carts,
		syncer: syncer,
		logger: logger.With(slog.String("handler", "session")),
	}
}

// Login handles POST /api/v1/session/login
// Rehydrates the local cart and reconciles with the remote copy: a non-empty
// local cart wins and is pushed, an empty one adopts the remote rows. Kiosk
// identities skip reconciliation entirely.
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity := identityFromRequest(r)
	if !identity.Valid() {
		respondError(w, h.logger, http.StatusBadRequest, "Missing user identity")
		return
	}

	store := h.carts.StoreFor(ctx, identity)

	if err := h.syncer.Reconcile(ctx, identity); err != nil {
		// Login still succeeds on sync failure; the cart stays local-only
		// until the next mutation retriggers a push.
		h.logger.WarnContext(ctx, "cart reconciliation failed on login",
			slog.String("user_id", identity.ID),
			slog.String("error", err.Error()))
	}

	respondJSON(w, h.logger, http.StatusOK, cartResponse{
		Lines:      store.Lines(),
		TotalItems: store.TotalItems(),
		TotalPrice: store.TotalPrice(),
		Open:       store.IsOpen(),
	})
}

// Logout handles POST /api/v1/session/logout
// Clears the local cart, requests a remote clear, and evicts the in-memory
// store.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity := identityFromRequest(r)
	if !identity.Valid() {
		respondError(w, h.logger, http.StatusBadRequest, "Missing user identity")
		return
	}

	store := h.carts.StoreFor(ctx, identity)
	store.Clear(ctx)
	h.carts.Evict(identity.ID)

	h.logger.InfoContext(ctx, "session closed",
		slog.String("user_id", identity.ID))

	respondJSON(w, h.logger, http.StatusOK, map[string]string{
		"message": "Logged out",
	})
}
