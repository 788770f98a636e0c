package auth

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Identity is the authenticated caller as seen by the domain services. The
// service-level ownership checks built on it are the authoritative
// authorization guard; route-level role checks are a coarse first filter.
type Identity struct {
	ID   uuid.UUID
	Role string
}

// Elevated reports whether the identity may act on records it does not own
// and see all records when listing.
func (i Identity) Elevated() bool {
	return i.Role == RolePharmacist || i.Role == RoleAdmin
}

// IdentityFromContext builds an Identity from the values placed on the
// request context by the auth middleware.
func IdentityFromContext(ctx context.Context) (Identity, error) {
	id, err := uuid.Parse(UserIDFromContext(ctx))
	if err != nil {
		return Identity{}, echo.NewHTTPError(http.StatusUnauthorized, "invalid caller identity")
	}
	return Identity{ID: id, Role: RoleFromContext(ctx)}, nil
}
