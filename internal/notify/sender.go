package notify

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/nicholas-fedor/shoutrrr"

	"pingboard/internal/models"
)

// Sender abstracts message dispatch so the dispatcher can be tested
// without hitting a real SMTP server.
type Sender interface {
	Send(shoutrrrURL, message string) error
}

// ShoutrrrSender dispatches via the Shoutrrr library.
type ShoutrrrSender struct{}

func (ShoutrrrSender) Send(serviceURL, message string) error {
	return shoutrrr.Send(serviceURL, message)
}

// SMTPURL builds the Shoutrrr smtp service URL for the given settings.
// The subject rides along as a query parameter.
func SMTPURL(s *models.EmailSettings, subject string) string {
	u := url.URL{
		Scheme: "smtp",
		Host:   fmt.Sprintf("%s:%d", s.SMTPServer, s.SMTPPort),
		Path:   "/",
	}
	if s.SMTPUsername != "" {
		u.User = url.UserPassword(s.SMTPUsername, s.SMTPPassword)
	}
	q := url.Values{}
	q.Set("from", s.FromEmail)
	q.Set("to", s.ToEmail)
	if subject != "" {
		q.Set("subject", subject)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// RenderTemplate substitutes the alert placeholders into tmpl.
func RenderTemplate(tmpl, deviceName, status, ip string, at time.Time) string {
	r := strings.NewReplacer(
		"{device_name}", deviceName,
		"{status}", status,
		"{ip_address}", ip,
		"{timestamp}", at.Format("2006-01-02 15:04:05"),
	)
	return r.Replace(tmpl)
}
