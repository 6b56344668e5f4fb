package middlewares

import (
	"context"

	"github.com/dropDatabas3/izzu/internal/apikey"
	"github.com/dropDatabas3/izzu/internal/domain/repository"
	adminsvc "github.com/dropDatabas3/izzu/internal/http/services/admin"
)

type ctxKey string

const (
	ctxRequestIDKey ctxKey = "request_id"
	ctxGrantKey     ctxKey = "api_grant"
	ctxAdminKey     ctxKey = "admin_principal"
	ctxAdminToken   ctxKey = "admin_token"
	ctxEndUserKey   ctxKey = "end_user_session"
)

func setRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxRequestIDKey, requestID)
}

// GetRequestID obtiene el request ID del contexto ("" si no hay).
func GetRequestID(ctx context.Context) string {
	s, _ := ctx.Value(ctxRequestIDKey).(string)
	return s
}

// WithGrant inyecta el grant de API key.
func WithGrant(ctx context.Context, g *apikey.Grant) context.Context {
	return context.WithValue(ctx, ctxGrantKey, g)
}

// GetGrant devuelve el grant autorizado por RequireAPIKey, o nil.
func GetGrant(ctx context.Context) *apikey.Grant {
	g, _ := ctx.Value(ctxGrantKey).(*apikey.Grant)
	return g
}

// WithAdmin inyecta el admin autenticado y el token crudo de su sesión.
func WithAdmin(ctx context.Context, p *adminsvc.Principal, rawToken string) context.Context {
	ctx = context.WithValue(ctx, ctxAdminKey, p)
	return context.WithValue(ctx, ctxAdminToken, rawToken)
}

// GetAdmin devuelve el admin autenticado por RequireAdminSession, o nil.
func GetAdmin(ctx context.Context) *adminsvc.Principal {
	p, _ := ctx.Value(ctxAdminKey).(*adminsvc.Principal)
	return p
}

// GetAdminToken devuelve el token de sesión del admin (para logout).
func GetAdminToken(ctx context.Context) string {
	s, _ := ctx.Value(ctxAdminToken).(string)
	return s
}

// WithEndUserSession inyecta la sesión del end user autenticado.
func WithEndUserSession(ctx context.Context, s *repository.Session) context.Context {
	return context.WithValue(ctx, ctxEndUserKey, s)
}

// GetEndUserSession devuelve la sesión validada por RequireEndUserSession, o nil.
func GetEndUserSession(ctx context.Context) *repository.Session {
	s, _ := ctx.Value(ctxEndUserKey).(*repository.Session)
	return s
}
