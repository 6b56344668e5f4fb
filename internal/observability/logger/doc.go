// Package logger expone un logger Zap singleton con scoping por contexto.
//
// # Decisiones
//
//   - Singleton: una sola instancia global inicializada con Init().
//   - Context scoping: cada request lleva su propio logger con request_id,
//     project_id, etc. sin reconstruir el core.
//   - Entornos: "dev" escribe consola con colores, "prod" escribe JSON.
//
// # Uso
//
// En main.go, con la config ya cargada:
//
//	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level, ServiceName: "izzu"})
//	defer logger.Sync()
//
// En controllers y services:
//
//	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("otp.Redeem"))
//	log.Info("otp redeemed", logger.ProjectID(projectID))
package logger
