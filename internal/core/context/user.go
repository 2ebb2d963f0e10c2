// Package context provides request-scoped values extraction.
package context

import (
	"context"
	"slices"
)

// Role names understood by the sale workflow.
const (
	RoleCashier = "cashier"
	RoleManager = "manager"
)

// UserContext contains the authenticated actor performing the request.
type UserContext struct {
	UserID    string
	Name      string
	Email     string
	Roles     []string
	DeviceID  string
	SessionID string
}

type userContextKey struct{}

// WithUser adds UserContext to context.
func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// GetUser returns UserContext from context.
func GetUser(ctx context.Context) *UserContext {
	if v, ok := ctx.Value(userContextKey{}).(*UserContext); ok {
		return v
	}
	return nil
}

// GetUserID returns user ID from context or empty string.
func GetUserID(ctx context.Context) string {
	if u := GetUser(ctx); u != nil {
		return u.UserID
	}
	return ""
}

// HasRole checks if user has specific role.
func HasRole(ctx context.Context, role string) bool {
	u := GetUser(ctx)
	if u == nil {
		return false
	}
	return slices.Contains(u.Roles, role)
}
