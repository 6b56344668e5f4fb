package logger

import (
	"sync"

	"go.uber.org/zap"
)

var (
	mu       sync.RWMutex
	instance *zap.Logger
)

// Init construye el logger global. Llamadas posteriores lo reemplazan,
// lo que permite a los tests instalar un logger propio con Replace.
func Init(cfg Config) {
	Replace(build(cfg))
}

// Replace instala l como logger global.
func Replace(l *zap.Logger) {
	mu.Lock()
	instance = l
	mu.Unlock()
}

// L retorna el logger global. Sin Init() usa dev/info.
func L() *zap.Logger {
	mu.RLock()
	l := instance
	mu.RUnlock()
	if l != nil {
		return l
	}
	Init(Config{Env: "dev", Level: "info"})
	return L()
}

// Named retorna un logger con nombre de componente.
func Named(name string) *zap.Logger {
	return L().Named(name)
}

// Sync flushea buffers pendientes. Va con defer en main.
func Sync() error {
	mu.RLock()
	defer mu.RUnlock()
	if instance == nil {
		return nil
	}
	return instance.Sync()
}
