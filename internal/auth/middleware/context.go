package auth

import (
	"context"

	"github.com/mind-engage/learning-site/internal/rbac"
)

// Identity is the authenticated caller.
type Identity struct {
	Subject string // user id
	Role    string
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return rbac.WithRole(rbac.WithSubject(ctx, id.Subject), id.Role)
}

func IdentityFromContext(ctx context.Context) Identity {
	return Identity{Subject: rbac.SubjectFromContext(ctx), Role: rbac.RoleFromContext(ctx)}
}
