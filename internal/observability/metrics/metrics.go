// Package metrics define los collectors Prometheus del servicio.
//
// Los vectores se crean al cargar el paquete, así los servicios pueden
// incrementarlos aunque Register nunca se haya llamado (tests, CLI).
package metrics

import (
	"net/http"
	"regexp"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Número total de requests procesadas",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Latencia de los requests HTTP",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	HTTPInflight = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "http_inflight_requests",
		Help: "Requests en vuelo por método y ruta",
	}, []string{"method", "path"})

	otpTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "izzu_otp_total",
		Help: "Operaciones OTP por resultado",
	}, []string{"op", "result"}) // op: issue|redeem

	passkeyTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "izzu_passkey_total",
		Help: "Ceremonias WebAuthn por resultado",
	}, []string{"op", "result"})

	resolutionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "izzu_identity_resolutions_total",
		Help: "Resoluciones de identidad por outcome",
	}, []string{"outcome"}) // existing|linked|created|conflict|error

	faceTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "izzu_face_requests_total",
		Help: "Llamadas al face service por resultado",
	}, []string{"op", "result"})

	webhookTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "izzu_webhook_deliveries_total",
		Help: "Entregas de webhooks por resultado",
	}, []string{"result"})
)

func OTP(op, result string)     { otpTotal.WithLabelValues(op, result).Inc() }
func Passkey(op, result string) { passkeyTotal.WithLabelValues(op, result).Inc() }
func Resolution(outcome string) { resolutionsTotal.WithLabelValues(outcome).Inc() }
func Face(op, result string)    { faceTotal.WithLabelValues(op, result).Inc() }
func Webhook(result string)     { webhookTotal.WithLabelValues(result).Inc() }

// Config agrupa dependencias para exponer /metrics.
type Config struct {
	Registry prometheus.Registerer
	// Pool opcional; si está, se exponen gauges del pgxpool.
	Pool func() *pgxpool.Pool
}

var (
	registerOnce sync.Once
	registerErr  error
)

// Register registra todos los collectors y devuelve el handler de /metrics.
func Register(cfg Config) (http.Handler, error) {
	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	registerOnce.Do(func() {
		for _, c := range []prometheus.Collector{
			HTTPRequestsTotal, HTTPRequestDuration, HTTPInflight,
			otpTotal, passkeyTotal, resolutionsTotal, faceTotal, webhookTotal,
		} {
			if err := registerCollector(registry, c); err != nil {
				registerErr = err
				return
			}
		}
	})
	if registerErr != nil {
		return nil, registerErr
	}

	if cfg.Pool != nil {
		if err := registerCollector(registry, newPoolCollector(cfg.Pool)); err != nil {
			return nil, err
		}
	}
	return promhttp.Handler(), nil
}

// registerCollector registra el collector, ignorando duplicados.
func registerCollector(reg prometheus.Registerer, collector prometheus.Collector) error {
	if err := reg.Register(collector); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return nil
		}
		return err
	}
	return nil
}

// poolCollector expone gauges del pool de PostgreSQL.
type poolCollector struct {
	pool func() *pgxpool.Pool

	acquiredDesc *prometheus.Desc
	idleDesc     *prometheus.Desc
	totalDesc    *prometheus.Desc
}

func newPoolCollector(pool func() *pgxpool.Pool) *poolCollector {
	return &poolCollector{
		pool:         pool,
		acquiredDesc: prometheus.NewDesc("pg_pool_acquired", "Conexiones adquiridas", nil, nil),
		idleDesc:     prometheus.NewDesc("pg_pool_idle", "Conexiones inactivas", nil, nil),
		totalDesc:    prometheus.NewDesc("pg_pool_total", "Conexiones totales", nil, nil),
	}
}

func (c *poolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.acquiredDesc
	ch <- c.idleDesc
	ch <- c.totalDesc
}

func (c *poolCollector) Collect(ch chan<- prometheus.Metric) {
	p := c.pool()
	if p == nil {
		return
	}
	stat := p.Stat()
	ch <- prometheus.MustNewConstMetric(c.acquiredDesc, prometheus.GaugeValue, float64(stat.AcquiredConns()))
	ch <- prometheus.MustNewConstMetric(c.idleDesc, prometheus.GaugeValue, float64(stat.IdleConns()))
	ch <- prometheus.MustNewConstMetric(c.totalDesc, prometheus.GaugeValue, float64(stat.TotalConns()))
}

var (
	uuidSegmentRE  = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F-]{4}-[0-9a-fA-F-]{4,}$`)
	hexSegmentRE   = regexp.MustCompile(`^[0-9a-fA-F]{16,}$`)
	tokenSegmentRE = regexp.MustCompile(`^[A-Za-z0-9_-]{24,}$`)
)

// NormalizePath reemplaza ids y tokens por ":id" para acotar la cardinalidad.
func NormalizePath(p string) string {
	clean := strings.SplitN(p, "?", 2)[0]
	if clean == "" {
		return "/"
	}
	if !strings.HasPrefix(clean, "/") {
		clean = "/" + clean
	}
	segments := strings.Split(clean, "/")
	for i, seg := range segments {
		if uuidSegmentRE.MatchString(seg) || hexSegmentRE.MatchString(seg) || tokenSegmentRE.MatchString(seg) {
			segments[i] = ":id"
		}
	}
	return strings.Join(segments, "/")
}
