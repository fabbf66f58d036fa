package handlers

import (
	"context"

	"github.com/iudanet/petalsync/internal/models"
)

// contextKey тип для ключей контекста
type contextKey string

const (
	// SubjectKey ключ для хранения subject токена в контексте
	SubjectKey contextKey = "subject"
	// RoleKey ключ для хранения роли клиента в контексте
	RoleKey contextKey = "role"
)

// WithClient returns ctx carrying the authenticated client.
func WithClient(ctx context.Context, subject string, role models.Role) context.Context {
	ctx = context.WithValue(ctx, SubjectKey, subject)
	return context.WithValue(ctx, RoleKey, role)
}

// GetSubject извлекает subject из контекста запроса
func GetSubject(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(SubjectKey).(string)
	return subject, ok
}

// GetRole извлекает роль клиента из контекста запроса
func GetRole(ctx context.Context) (models.Role, bool) {
	role, ok := ctx.Value(RoleKey).(models.Role)
	return role, ok
}
