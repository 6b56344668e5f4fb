package email

import (
	"bytes"
	"context"
	"fmt"
	htemplate "html/template"
	"strings"
	ttemplate "text/template"
	"time"

	"github.com/dropDatabas3/izzu/internal/observability/logger"
)

const (
	otpText = `Your {{.Product}} verification code is {{.Code}}.
It expires in {{.Minutes}} minutes. If you did not request it, ignore this email.
`
	otpHTML = `<p>Your {{.Product}} verification code is</p>
<p style="font-size:24px;font-weight:bold;letter-spacing:4px">{{.Code}}</p>
<p>It expires in {{.Minutes}} minutes. If you did not request it, ignore this email.</p>
`
)

var (
	otpTextTmpl = ttemplate.Must(ttemplate.New("otp.txt").Parse(otpText))
	otpHTMLTmpl = htemplate.Must(htemplate.New("otp.html").Parse(otpHTML))
)

type otpVars struct {
	Product string
	Code    string
	Minutes int
}

// OTPMailer entrega códigos OTP por email.
type OTPMailer struct {
	sender  Sender
	product string
}

func NewOTPMailer(sender Sender, product string) *OTPMailer {
	if product == "" {
		product = "izzu"
	}
	return &OTPMailer{sender: sender, product: product}
}

// Deliver renderiza y envía el código a "to".
func (m *OTPMailer) Deliver(ctx context.Context, to, code string, ttl time.Duration) error {
	vars := otpVars{Product: m.product, Code: code, Minutes: int(ttl.Round(time.Minute) / time.Minute)}
	if vars.Minutes < 1 {
		vars.Minutes = 1
	}

	var txt, html bytes.Buffer
	if err := otpTextTmpl.Execute(&txt, vars); err != nil {
		return fmt.Errorf("render otp text: %w", err)
	}
	if err := otpHTMLTmpl.Execute(&html, vars); err != nil {
		return fmt.Errorf("render otp html: %w", err)
	}

	subject := fmt.Sprintf("%s is your %s code", code, m.product)
	if err := m.sender.Send(to, subject, html.String(), txt.String()); err != nil {
		logger.From(ctx).Warn("otp email failed",
			logger.Component("email"),
			logger.Email(Mask(to)),
			logger.Err(err))
		return err
	}
	return nil
}

// Mask oculta el local part de un email: "john@x.com" -> "j***@x.com".
func Mask(email string) string {
	at := strings.IndexByte(email, '@')
	if at <= 0 {
		return "***"
	}
	return email[:1] + "***" + email[at:]
}
