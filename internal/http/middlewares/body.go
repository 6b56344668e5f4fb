package middlewares

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
)

// DefaultMaxJSONBytes acota el body JSON que se bufferiza para leer project_id.
const DefaultMaxJSONBytes int64 = 1 << 20

// projectIDFromRequest busca project_id en header, query, form multipart o
// body JSON, en ese orden. El body JSON se repone para el controller.
func projectIDFromRequest(r *http.Request, maxJSON, maxMultipart int64) (string, error) {
	if v := strings.TrimSpace(r.Header.Get("X-Project-ID")); v != "" {
		return v, nil
	}
	if v := strings.TrimSpace(r.URL.Query().Get("project_id")); v != "" {
		return v, nil
	}
	ct := strings.ToLower(r.Header.Get("Content-Type"))
	switch {
	case strings.HasPrefix(ct, "multipart/form-data"):
		if err := r.ParseMultipartForm(maxMultipart); err != nil {
			return "", err
		}
		return strings.TrimSpace(r.FormValue("project_id")), nil
	case strings.Contains(ct, "application/json"), ct == "" && r.Body != nil && r.Body != http.NoBody:
		return extractJSONField(r, "project_id", maxJSON)
	}
	return "", nil
}

// errBodyTooLarge se devuelve cuando el JSON excede el máximo bufferizable.
var errBodyTooLarge = errors.New("request body too large")

// extractJSONField lee hasta max bytes del body para extraer un campo string y
// repone el body intacto.
func extractJSONField(r *http.Request, field string, max int64) (string, error) {
	if r.Body == nil {
		return "", nil
	}
	var buf bytes.Buffer
	n, err := io.CopyN(&buf, r.Body, max+1)
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(buf.Bytes()))
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	if n > max {
		return "", errBodyTooLarge
	}

	var tmp map[string]json.RawMessage
	if err := json.Unmarshal(buf.Bytes(), &tmp); err != nil {
		// el controller reporta el JSON inválido
		return "", nil
	}
	var s string
	if raw, ok := tmp[field]; ok && json.Unmarshal(raw, &s) == nil {
		return strings.TrimSpace(s), nil
	}
	return "", nil
}
