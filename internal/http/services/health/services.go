// Package health contiene el service de readiness: pinguea la base y el
// Secret Store (críticos) y el face service (opcional) en paralelo.
package health

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	dto "github.com/dropDatabas3/izzu/internal/http/dto/health"
	"github.com/dropDatabas3/izzu/internal/observability/logger"
)

// Check es un componente chequeable. Critical decide si su caída deja al
// servicio "unavailable" o solo "degraded".
type Check struct {
	Name     string
	Critical bool
	Ping     func(ctx context.Context) error
}

// Deps contiene las dependencias inyectables para el health service.
type Deps struct {
	Checks  []Check
	Version string
	Timeout time.Duration
}

// HealthService define las operaciones de health check.
type HealthService interface {
	Check(ctx context.Context) dto.HealthResponse
}

// Services agrupa todos los services del dominio health.
type Services struct {
	Health HealthService
}

// NewServices crea el agregador de services health.
func NewServices(d Deps) Services {
	return Services{Health: NewHealthService(d)}
}

type healthService struct {
	deps Deps
}

func NewHealthService(d Deps) HealthService {
	if d.Timeout <= 0 {
		d.Timeout = 2 * time.Second
	}
	checks := append([]Check(nil), d.Checks...)
	sort.SliceStable(checks, func(i, j int) bool { return checks[i].Name < checks[j].Name })
	d.Checks = checks
	return &healthService{deps: d}
}

func (s *healthService) Check(ctx context.Context) dto.HealthResponse {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("health"), logger.Op("Check"))

	ctx, cancel := context.WithTimeout(ctx, s.deps.Timeout)
	defer cancel()

	var (
		mu       sync.Mutex
		degraded bool
		down     bool
	)
	resp := dto.HealthResponse{
		Components: make(map[string]dto.HealthStatus, len(s.deps.Checks)),
		Version:    s.deps.Version,
		Timestamp:  time.Now().UTC(),
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range s.deps.Checks {
		g.Go(func() error {
			st := dto.HealthStatus{Status: "ok"}
			if c.Ping == nil {
				st = dto.HealthStatus{Status: "disabled"}
			} else if err := c.Ping(gctx); err != nil {
				st = dto.HealthStatus{Status: "error", Message: err.Error()}
				log.Warn("health component failed", logger.String("component", c.Name), logger.Err(err))
			}
			mu.Lock()
			defer mu.Unlock()
			resp.Components[c.Name] = st
			if st.Status == "error" {
				if c.Critical {
					down = true
				} else {
					degraded = true
				}
			}
			// nunca cortar a los demás checks
			return nil
		})
	}
	_ = g.Wait()

	switch {
	case down:
		resp.Status = "unavailable"
	case degraded:
		resp.Status = "degraded"
	default:
		resp.Status = "ready"
	}
	return resp
}
