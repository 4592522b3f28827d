package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/lasprendas/tryon-api/internal/api/shared"
)

// OwnerIDHeader names the request header carrying the caller's owner ID.
// Authentication itself happens upstream; this service trusts the header
// the gateway forwards.
const OwnerIDHeader = "X-Owner-ID"

// RequireOwner extracts the owner ID from the request header and adds it to
// the request context. Requests without a valid owner ID are rejected.
func RequireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(OwnerIDHeader)
		if raw == "" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Owner ID header required")
			return
		}

		ownerID, err := uuid.Parse(raw)
		if err != nil || ownerID == uuid.Nil {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid owner ID")
			return
		}

		ctx := context.WithValue(r.Context(), shared.OwnerIDContextKey, ownerID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetOwnerID extracts the owner ID from the request context.
// Returns the owner ID and a boolean indicating if it was found.
func GetOwnerID(r *http.Request) (uuid.UUID, bool) {
	ownerID, ok := r.Context().Value(shared.OwnerIDContextKey).(uuid.UUID)
	return ownerID, ok
}
