package smtp

import (
	"context"
	"fmt"
	"html/template"
	"net/mail"
	"strings"
	"time"
)

const otpSubject = "Chat App OTP"

var otpTemplate = template.Must(template.New("otp").Parse(
	`<p>Hi {{.FullName}},</p>` +
		`<h3>Your chat app otp is {{.Code}}.</h3> ` +
		`<p>OTP expires in {{.Minutes}} minutes</p>`))

// OtpNotifier emails one-time codes through a Mailer.
type OtpNotifier struct {
	mailer Mailer
	ttl    time.Duration
}

// NewOtpNotifier returns a notifier whose emails state ttl as the code lifetime.
func NewOtpNotifier(m Mailer, ttl time.Duration) *OtpNotifier {
	return &OtpNotifier{mailer: m, ttl: ttl}
}

func (n *OtpNotifier) SendOtp(ctx context.Context, code, email, fullName string) error {
	body, err := renderOtp(code, fullName, n.ttl)
	if err != nil {
		return err
	}
	return n.mailer.SendEmail(ctx, mail.Address{Name: fullName, Address: email}, otpSubject, body)
}

func renderOtp(code, fullName string, ttl time.Duration) (string, error) {
	data := struct {
		FullName string
		Code     string
		Minutes  int
	}{
		FullName: fullName,
		Code:     code,
		Minutes:  int(ttl.Minutes()),
	}
	var buf strings.Builder
	if err := otpTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render otp email: %w", err)
	}
	return buf.String(), nil
}
