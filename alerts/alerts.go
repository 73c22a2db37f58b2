// Package alerts notifies users about security-relevant account events.
package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Krish-Depani/ghost-ai-server/mailer"
	"github.com/nats-io/nats.go"
)

type Alert struct {
	UserID   string    `json:"user_id"`
	Device   string    `json:"device"`
	Browser  string    `json:"browser"`
	Location string    `json:"location"`
	IP       string    `json:"ip"`
	At       time.Time `json:"at"`
}

type Alerter interface {
	NewDevice(ctx context.Context, alert Alert) error
}

// EmailAlerter mails the account owner. The user id is the email address.
type EmailAlerter struct {
	mailer mailer.Mailer
}

func NewEmailAlerter(m mailer.Mailer) *EmailAlerter {
	return &EmailAlerter{mailer: m}
}

func (a *EmailAlerter) NewDevice(ctx context.Context, alert Alert) error {
	email, err := mailer.NewDeviceEmail(alert.Device, alert.Browser, alert.Location)
	if err != nil {
		return fmt.Errorf("render alert: %w", err)
	}
	return a.mailer.Send(ctx, alert.UserID, email.Subject, email.Body)
}

// Publisher is satisfied by *nats.Conn.
type Publisher interface {
	Publish(subject string, data []byte) error
}

type NATSAlerter struct {
	pub     Publisher
	subject string
}

func NewNATSAlerter(pub Publisher, subject string) *NATSAlerter {
	return &NATSAlerter{pub: pub, subject: subject}
}

// ConnectNATS dials the broker used by NATSAlerter.
func ConnectNATS(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("ghost-ai-server"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return nc, nil
}

func (a *NATSAlerter) NewDevice(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	if err := a.pub.Publish(a.subject, payload); err != nil {
		return fmt.Errorf("publish alert: %w", err)
	}
	return nil
}

// Multi delivers to every alerter and joins their errors.
type Multi []Alerter

func (m Multi) NewDevice(ctx context.Context, alert Alert) error {
	var errs []error
	for _, a := range m {
		if err := a.NewDevice(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
