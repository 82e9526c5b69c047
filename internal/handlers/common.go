// internal/handlers/common.go
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ammerola/tableside-be/internal/core/domain"
)

// Identity headers. The gateway in front of this service authenticates the
// caller and forwards who they are; kiosks present the shared kiosk identity.
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)

// identityFromRequest reads the caller identity from the forwarded headers.
// A missing role defaults to customer.
func identityFromRequest(r *http.Request) domain.UserIdentity {
	role := r.Header.Get(HeaderUserRole)
	if role == "" {
		role = domain.RoleCustomer
	}
	return domain.UserIdentity{
		ID:   r.Header.Get(HeaderUserID),
		Role: role,
	}
}

func respondJSON(w http.ResponseWriter, logger *slog.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response",
			slog.String("error", err.Error()))
	}
}

func respondError(w http.ResponseWriter, logger *slog.Logger, status int, message string) {
	respondJSON(w, logger, status, map[string]string{"error": message})
}
