package password

import (
	"strings"
	"unicode"
)

// Motivos de rechazo que devuelve Validate.
const (
	ReasonTooShort      = "too_short"
	ReasonMissingUpper  = "missing_upper"
	ReasonMissingLower  = "missing_lower"
	ReasonMissingDigit  = "missing_digit"
	ReasonMissingSymbol = "missing_symbol"
	ReasonBlacklisted   = "blacklisted"
)

type Policy struct {
	MinLength     int
	RequireUpper  bool
	RequireLower  bool
	RequireDigit  bool
	RequireSymbol bool
	// Blacklist en minúsculas; comparación case-insensitive.
	Blacklist []string
}

// DefaultPolicy: 8 caracteres mínimo, sin requisitos de clase.
var DefaultPolicy = Policy{MinLength: 8}

type classes struct{ upper, lower, digit, symbol bool }

func classify(s string) (c classes) {
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			c.upper = true
		case unicode.IsLower(r):
			c.lower = true
		case unicode.IsDigit(r):
			c.digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			c.symbol = true
		}
	}
	return c
}

// Validate devuelve todos los motivos de rechazo, no solo el primero.
func (p Policy) Validate(s string) (ok bool, reasons []string) {
	if len([]rune(s)) < p.MinLength {
		reasons = append(reasons, ReasonTooShort)
	}
	c := classify(s)
	for _, req := range []struct {
		on, has bool
		reason  string
	}{
		{p.RequireUpper, c.upper, ReasonMissingUpper},
		{p.RequireLower, c.lower, ReasonMissingLower},
		{p.RequireDigit, c.digit, ReasonMissingDigit},
		{p.RequireSymbol, c.symbol, ReasonMissingSymbol},
	} {
		if req.on && !req.has {
			reasons = append(reasons, req.reason)
		}
	}
	if p.blacklisted(s) {
		reasons = append(reasons, ReasonBlacklisted)
	}
	return len(reasons) == 0, reasons
}

func (p Policy) blacklisted(s string) bool {
	lower := strings.ToLower(strings.TrimSpace(s))
	for _, b := range p.Blacklist {
		if lower == b {
			return true
		}
	}
	return false
}
