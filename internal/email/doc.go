// Package email envía los códigos OTP por SMTP.
//
//	otp.Service ──Deliver──▶ OTPMailer ──render──▶ Sender (SMTPSender / go-mail)
//
// El código nunca se loguea; solo el destinatario enmascarado.
package email
