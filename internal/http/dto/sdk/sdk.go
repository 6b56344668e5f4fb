// Package sdk contiene los DTOs de los endpoints /sdk/* consumidos por el
// SDK cliente. Los nombres de campo siguen el contrato JSON del SDK.
package sdk

import (
	"encoding/json"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
)

// Location opcional en verify / face.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// LocationFields acepta la ubicación como la manda el SDK
// (location_lat/location_lng) o anidada en "location".
type LocationFields struct {
	Location    *Location `json:"location,omitempty"`
	LocationLat *float64  `json:"location_lat,omitempty"`
	LocationLng *float64  `json:"location_lng,omitempty"`
}

// ResolvedLocation prioriza el par plano; nil si no vino ninguna forma completa.
func (f LocationFields) ResolvedLocation() *Location {
	if f.LocationLat != nil && f.LocationLng != nil {
		return &Location{Lat: *f.LocationLat, Lng: *f.LocationLng}
	}
	return f.Location
}

// User es la vista pública de un end user.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name,omitempty"`
	FaceVerified bool      `json:"faceVerified"`
	Location     *Location `json:"location,omitempty"`
}

// Session emitida tras una verificación exitosa.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// OTPSendRequest para POST /sdk/otp/send
type OTPSendRequest struct {
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	ProjectID string `json:"project_id"`
}

type OTPSendResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	OTP     string `json:"otp,omitempty"`
	DevMode bool   `json:"devMode,omitempty"`
}

// OTPVerifyRequest para POST /sdk/otp/verify
type OTPVerifyRequest struct {
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Code      string `json:"code"`
	ProjectID string `json:"project_id"`
	Password  string `json:"password,omitempty"`
	Name      string `json:"name,omitempty"`
	LocationFields
}

type OTPVerifyResponse struct {
	Success   bool     `json:"success"`
	IsNewUser bool     `json:"isNewUser"`
	User      User     `json:"user"`
	Session   *Session `json:"session,omitempty"`
}

// CreateUserRequest para POST /sdk/user/create (secret key)
type CreateUserRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	ProjectID string `json:"project_id"`
	Name      string `json:"name,omitempty"`
	LocationFields
}

type CreateUserResponse struct {
	Success    bool `json:"success"`
	User       User `json:"user"`
	IsExisting bool `json:"isExisting,omitempty"`
}

// FaceRegisterResponse; Registered=false con Error es un rechazo del servicio.
type FaceRegisterResponse struct {
	Registered bool   `json:"registered"`
	PhotoURL   string `json:"photoUrl,omitempty"`
	User       *User  `json:"user,omitempty"`
	Error      string `json:"error,omitempty"`
}

type FaceIdentifyResponse struct {
	Verified   bool     `json:"verified"`
	Confidence float64  `json:"confidence,omitempty"`
	PhotoURL   string   `json:"photoUrl,omitempty"`
	User       *User    `json:"user,omitempty"`
	Session    *Session `json:"session,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// FaceVerifyResponse de la comparación 1:1 contra el usuario de la sesión.
type FaceVerifyResponse struct {
	Verified   bool    `json:"verified"`
	Confidence float64 `json:"confidence,omitempty"`
	UserID     string  `json:"userId,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// FaceLivenessResponse; Passed=false con Error es un rechazo (sin rostro, spoof).
type FaceLivenessResponse struct {
	Passed bool   `json:"passed"`
	IsLive bool   `json:"is_live"`
	Error  string `json:"error,omitempty"`
}

// PasskeyRegisterBeginRequest para POST /sdk/passkey/register/begin. El
// usuario sale del bearer de sesión; un userId en el body se ignora.
type PasskeyRegisterBeginRequest struct {
	ProjectID string `json:"project_id"`
}

// PasskeyRegisterCompleteRequest; Response es el JSON crudo de navigator.credentials.create.
type PasskeyRegisterCompleteRequest struct {
	ProjectID string          `json:"project_id"`
	Name      string          `json:"name,omitempty"`
	Response  json.RawMessage `json:"response"`
}

type PasskeyRegisterCompleteResponse struct {
	Success   bool   `json:"success"`
	PasskeyID string `json:"passkeyId,omitempty"`
}

type PasskeyLoginBeginRequest struct {
	ProjectID string `json:"project_id"`
	UserID    string `json:"userId,omitempty"`
}

// PasskeyLoginBeginResponse aplana las opciones y agrega authRequestId.
type PasskeyLoginBeginResponse struct {
	PublicKey     protocol.PublicKeyCredentialRequestOptions `json:"publicKey"`
	AuthRequestID string                                     `json:"authRequestId"`
}

type PasskeyLoginCompleteRequest struct {
	ProjectID     string          `json:"project_id"`
	AuthRequestID string          `json:"authRequestId"`
	Response      json.RawMessage `json:"response"`
}

type PasskeyLoginCompleteResponse struct {
	Success bool     `json:"success"`
	UserID  string   `json:"userId"`
	Session *Session `json:"session,omitempty"`
}

// SessionValidateRequest para POST /sdk/session/validate (secret key)
type SessionValidateRequest struct {
	ProjectID string `json:"project_id"`
	Token     string `json:"token"`
}

type SessionValidateResponse struct {
	Valid     bool       `json:"valid"`
	UserID    string     `json:"userId,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}
