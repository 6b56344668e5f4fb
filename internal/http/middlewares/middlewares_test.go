package middlewares

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/izzu/internal/apikey"
	"github.com/dropDatabas3/izzu/internal/domain/repository"
	"github.com/dropDatabas3/izzu/internal/rate"
	"github.com/dropDatabas3/izzu/internal/secretstore"
	"github.com/dropDatabas3/izzu/internal/store/memory"
)

func TestChain_Order(t *testing.T) {
	var order []string
	mk := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { order = append(order, "h") }), mk("A"), mk("B"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"A", "B", "h"}, order)
}

func TestWithRequestID(t *testing.T) {
	var seen string
	h := WithRequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, "abc", seen)
	assert.Equal(t, "abc", rr.Header().Get("X-Request-ID"))

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.NotEqual(t, "abc", seen)
}

func TestWithCORS(t *testing.T) {
	h := WithCORS([]string{"http://console.test/"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/admin/me", nil)
	req.Header.Set("Origin", "http://console.test")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "http://console.test", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rr.Header().Get("Access-Control-Allow-Headers"), "X-API-Key")

	req = httptest.NewRequest(http.MethodGet, "/admin/me", nil)
	req.Header.Set("Origin", "http://evil.test")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestWithRecover(t *testing.T) {
	h := WithRecover()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestWithRateLimit(t *testing.T) {
	lim := rate.NewFixedWindow(secretstore.NewMemory("t"), "", 2, time.Minute)
	h := WithRateLimit(RateLimitConfig{Limiter: lim, Limit: 2, KeyFunc: IPOnlyRateKey})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }))

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/sdk/otp/send", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}
	assert.Equal(t, http.StatusOK, do().Code)
	assert.Equal(t, http.StatusOK, do().Code)
	rr := do()
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
	assert.Equal(t, "2", rr.Header().Get("X-RateLimit-Limit"))
}

type apiKeyFixture struct {
	auth      apikey.Authorizer
	projectID string
	pk, sk    string
}

func newAPIKeyFixture(t *testing.T) apiKeyFixture {
	t.Helper()
	ctx := context.Background()
	repos := memory.New().Repositories()
	tenant, err := repos.Tenants.Create(ctx, repository.CreateTenantInput{Name: "Acme", Slug: "acme"})
	require.NoError(t, err)
	p, _, err := repos.Projects.Create(ctx, repository.CreateProjectInput{
		TenantID: tenant.ID, Name: "App", Slug: "app", PublishableKey: "izzu_pk_live_a", SecretKey: "izzu_sk_live_a",
	})
	require.NoError(t, err)
	return apiKeyFixture{
		auth:      apikey.NewAuthorizer(repos.Projects, repos.APIKeys),
		projectID: p.ID,
		pk:        "izzu_pk_live_a",
		sk:        "izzu_sk_live_a",
	}
}

// echoProject devuelve el project del grant y el body que le llegó al handler.
func echoProject() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g := GetGrant(r.Context())
		body, _ := io.ReadAll(r.Body)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"project": g.ProjectID,
			"type":    string(g.KeyType),
			"body":    string(body),
		})
	})
}

func jsonReq(key, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/sdk/otp/send", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set(APIKeyHeader, key)
	}
	return req
}

func TestRequireAPIKey_JSONBodyRestored(t *testing.T) {
	f := newAPIKeyFixture(t)
	h := RequireAPIKey(APIKeyConfig{Authorizer: f.auth, Scope: repository.KeyTypePublishable})(echoProject())

	body := `{"email":"a@b.c","project_id":"` + f.projectID + `"}`
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, jsonReq(f.pk, body))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var out map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.Equal(t, f.projectID, out["project"])
	assert.Equal(t, "publishable", out["type"])
	assert.Equal(t, body, out["body"])
}

func TestRequireAPIKey_Rejections(t *testing.T) {
	f := newAPIKeyFixture(t)
	pub := RequireAPIKey(APIKeyConfig{Authorizer: f.auth, Scope: repository.KeyTypePublishable})(echoProject())
	sec := RequireAPIKey(APIKeyConfig{Authorizer: f.auth, Scope: repository.KeyTypeSecret})(echoProject())

	cases := []struct {
		name   string
		h      http.Handler
		key    string
		body   string
		status int
	}{
		{"missing header", pub, "", `{"project_id":"` + f.projectID + `"}`, http.StatusUnauthorized},
		{"missing project", pub, f.pk, `{"email":"a@b.c"}`, http.StatusBadRequest},
		{"wrong key", pub, "izzu_pk_live_zzz", `{"project_id":"` + f.projectID + `"}`, http.StatusUnauthorized},
		{"unknown project", pub, f.pk, `{"project_id":"does-not-exist"}`, http.StatusUnauthorized},
		{"publishable on secret op", sec, f.pk, `{"project_id":"` + f.projectID + `"}`, http.StatusForbidden},
		{"secret on secret op", sec, f.sk, `{"project_id":"` + f.projectID + `"}`, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			tc.h.ServeHTTP(rr, jsonReq(tc.key, tc.body))
			assert.Equal(t, tc.status, rr.Code, rr.Body.String())
		})
	}
}

func TestRequireAPIKey_WrongKeyAndUnknownProjectLookAlike(t *testing.T) {
	f := newAPIKeyFixture(t)
	h := RequireAPIKey(APIKeyConfig{Authorizer: f.auth, Scope: repository.KeyTypePublishable})(echoProject())

	a := httptest.NewRecorder()
	h.ServeHTTP(a, jsonReq("izzu_pk_live_zzz", `{"project_id":"`+f.projectID+`"}`))
	b := httptest.NewRecorder()
	h.ServeHTTP(b, jsonReq(f.pk, `{"project_id":"nope"}`))
	assert.Equal(t, a.Code, b.Code)
	assert.Equal(t, a.Body.String(), b.Body.String())
}

func TestRequireAPIKey_Multipart(t *testing.T) {
	f := newAPIKeyFixture(t)
	var gotEmail string
	h := RequireAPIKey(APIKeyConfig{Authorizer: f.auth, Scope: repository.KeyTypePublishable})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotEmail = r.FormValue("email")
			assert.Equal(t, f.projectID, GetGrant(r.Context()).ProjectID)
		}))

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("project_id", f.projectID))
	require.NoError(t, mw.WriteField("email", "a@b.c"))
	fw, err := mw.CreateFormFile("file", "face.jpg")
	require.NoError(t, err)
	_, _ = fw.Write([]byte{0xff, 0xd8, 0xff})
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/sdk/face/register", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(APIKeyHeader, f.pk)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "a@b.c", gotEmail)
}

func TestAdminSessionToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/admin/me", nil)
	assert.Empty(t, AdminSessionToken(req, "sess"))

	req.Header.Set("Authorization", "Bearer tok1")
	assert.Equal(t, "tok1", AdminSessionToken(req, "sess"))

	req.AddCookie(&http.Cookie{Name: "sess", Value: "tok2"})
	assert.Equal(t, "tok2", AdminSessionToken(req, "sess"))
}
