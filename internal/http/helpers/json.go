package helpers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	httperrors "github.com/dropDatabas3/izzu/internal/http/errors"
)

// MaxJSONBody acota los bodies JSON de la API.
const MaxJSONBody = 64 << 10

// ReadJSON decodifica el body en dst. Si falla escribe el error y devuelve false.
func ReadJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	ct := strings.ToLower(strings.TrimSpace(r.Header.Get("Content-Type")))
	if ct != "" && !strings.Contains(ct, "application/json") {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("Content-Type must be application/json"))
		return false
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxJSONBody)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var mbe *http.MaxBytesError
		switch {
		case errors.As(err, &mbe):
			httperrors.WriteError(w, httperrors.ErrBodyTooLarge)
		case errors.Is(err, io.EOF):
			httperrors.WriteError(w, httperrors.ErrInvalidJSON.WithDetail("empty body"))
		default:
			httperrors.WriteError(w, httperrors.ErrInvalidJSON)
		}
		return false
	}
	return true
}

// WriteJSON escribe v con el status dado.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
