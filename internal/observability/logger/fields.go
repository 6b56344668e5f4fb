package logger

import (
	"time"

	"go.uber.org/zap"
)

// ---- HTTP ----

func RequestID(v string) zap.Field { return zap.String("request_id", v) }
func Method(v string) zap.Field { return zap.String("method", v) }
func Path(v string) zap.Field { return zap.String("path", v) }
func Status(v int) zap.Field { return zap.Int("status", v) }
func Duration(v time.Duration) zap.Field { return zap.Duration("duration", v) }
func Bytes(v int) zap.Field { return zap.Int("bytes", v) }
func ClientIP(v string) zap.Field { return zap.String("client_ip", v) }
func UserAgent(v string) zap.Field { return zap.String("user_agent", v) }

// ---- Negocio ----

// TenantID identifica al tenant (organización del admin).
func TenantID(v string) zap.Field { return zap.String("tenant_id", v) }

// ProjectID identifica el proyecto resuelto por el API key.
func ProjectID(v string) zap.Field { return zap.String("project_id", v) }

// EndUserID identifica al usuario final del proyecto.
func EndUserID(v string) zap.Field { return zap.String("end_user_id", v) }

// AdminID identifica al operador del dashboard.
func AdminID(v string) zap.Field { return zap.String("admin_id", v) }

// Provider es el proveedor de identidad (email, google, github, passkey, face...).
func Provider(v string) zap.Field { return zap.String("provider", v) }

// Email: usar con cuidado en prod.
func Email(v string) zap.Field { return zap.String("email", v) }

// ---- Sistema ----

func Component(v string) zap.Field { return zap.String("component", v) }
func Op(v string) zap.Field { return zap.String("op", v) }
func Layer(v string) zap.Field { return zap.String("layer", v) }
func Err(err error) zap.Field { return zap.Error(err) }

// ---- Genéricos ----

func String(key, v string) zap.Field { return zap.String(key, v) }
func Int(key string, v int) zap.Field { return zap.Int(key, v) }
func Bool(key string, v bool) zap.Field { return zap.Bool(key, v) }
func Any(key string, v any) zap.Field { return zap.Any(key, v) }
