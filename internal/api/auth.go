package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// UserHeader carries the authenticated user id set by the gateway in front
// of this service.
const UserHeader = "X-User-ID"

type userKey struct{}

// requireUser rejects requests without a valid user id.
func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(r.Header.Get(UserHeader))
		if err != nil || id == uuid.Nil {
			writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "missing or invalid "+UserHeader)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey{}, id)))
	})
}

func userFrom(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(userKey{}).(uuid.UUID)
	return id
}
