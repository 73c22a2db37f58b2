package mailer

import (
	"bytes"
	"embed"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Email is a rendered subject and HTML body.
type Email struct {
	Subject string
	Body    string
}

func render(name, subject string, data interface{}) (Email, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return Email{}, err
	}
	return Email{Subject: subject, Body: buf.String()}, nil
}

func OTPEmail(code string) (Email, error) {
	return render("otp.html", "GHost AI - OTP Verification", map[string]string{"Code": code})
}

func PasswordChangedEmail() (Email, error) {
	return render("password_changed.html", "GHost AI - Password Changed", nil)
}

func NewDeviceEmail(device, browser, location string) (Email, error) {
	return render("new_device.html", "🔐 GHost AI – New Device Login", map[string]string{
		"Device":   device,
		"Browser":  browser,
		"Location": location,
	})
}

func EmailChangeEmail(link string) (Email, error) {
	return render("email_change.html", "GHost AI - Confirm your new email", map[string]string{"Link": link})
}

func ExportReadyEmail(link string) (Email, error) {
	return render("export_ready.html", "GHost AI - Your chat export", map[string]string{"Link": link})
}
