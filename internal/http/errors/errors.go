package errors

import (
	"encoding/json"
	"net/http"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

type legacyResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// WriteError escribe la respuesta JSON para err. Errores no tipados salen como 500.
func WriteError(w http.ResponseWriter, err error) {
	appErr := FromError(err)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(appErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Code:    appErr.Code,
		Message: appErr.Message,
		Detail:  appErr.Detail,
	})
}

// WriteLegacyError escribe el formato {"error": "..."} que consume el SDK.
// Si el error no tiene mensaje legacy usa el mensaje estándar.
func WriteLegacyError(w http.ResponseWriter, err error) {
	appErr := FromError(err)
	msg := appErr.Legacy
	if msg == "" {
		msg = appErr.Message
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(appErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(legacyResponse{Error: msg, Code: appErr.Code})
}
