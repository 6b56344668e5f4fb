package admin

import "time"

// OTPSendRequest para POST /admin/auth/otp/send
type OTPSendRequest struct {
	Email string `json:"email"`
}

// OTPSendResponse; OTP y DevMode solo en desarrollo.
type OTPSendResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	OTP     string `json:"otp,omitempty"`
	DevMode bool   `json:"devMode,omitempty"`
}

// OTPVerifyRequest para POST /admin/auth/otp/verify
type OTPVerifyRequest struct {
	Identifier  string   `json:"identifier"`
	Code        string   `json:"code"`
	Name        string   `json:"name,omitempty"`
	Mobile      string   `json:"mobile,omitempty"`
	LocationLat *float64 `json:"locationLat,omitempty"`
	LocationLng *float64 `json:"locationLng,omitempty"`
}

// SignInResult es el resultado de un login de admin (OTP u OAuth).
// SessionToken va en la cookie, nunca en el body.
type SignInResult struct {
	AdminID      string    `json:"adminId"`
	TenantID     string    `json:"tenantId"`
	IsNewAdmin   bool      `json:"isNewAdmin"`
	SessionToken string    `json:"-"`
	ExpiresAt    time.Time `json:"-"`
}

// VerifyResponse body de /admin/auth/otp/verify.
type VerifyResponse struct {
	Success bool `json:"success"`
	SignInResult
}

// Me para GET /admin/me
type Me struct {
	AdminID     string     `json:"adminId"`
	Email       string     `json:"email"`
	DisplayName string     `json:"displayName,omitempty"`
	Role        string     `json:"role"`
	TenantID    string     `json:"tenantId"`
	TenantName  string     `json:"tenantName,omitempty"`
	TenantSlug  string     `json:"tenantSlug,omitempty"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
}
