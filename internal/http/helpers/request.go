package helpers

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/dropDatabas3/izzu/internal/domain/repository"
	"github.com/dropDatabas3/izzu/internal/session"
)

// ClientIP extrae la IP del cliente, considerando proxies.
func ClientIP(r *http.Request) string {
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		return strings.TrimSpace(strings.Split(xf, ",")[0])
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// Meta arma la metadata de sesión/auditoría del request.
func Meta(r *http.Request) session.Meta {
	ua := r.UserAgent()
	if len(ua) > 512 {
		ua = ua[:512]
	}
	return session.Meta{IPAddress: ClientIP(r), UserAgent: ua}
}

// Page lee limit/offset de la query.
func Page(r *http.Request) repository.Page {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	return repository.Page{Limit: limit, Offset: offset}.Normalize()
}
