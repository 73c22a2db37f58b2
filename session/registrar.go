// Package session records every login as a device session and raises a
// security alert the first time a device/browser pair is seen for a user.
package session

import (
	"context"
	"time"

	"github.com/Krish-Depani/ghost-ai-server/alerts"
	"github.com/Krish-Depani/ghost-ai-server/models"
	"github.com/Krish-Depani/ghost-ai-server/store"
	"github.com/Krish-Depani/ghost-ai-server/utils"
	"github.com/rs/zerolog"
)

type RequestMetadata struct {
	UserAgent string
	IP        string
}

type Geolocator interface {
	Lookup(ctx context.Context, ip string) string
}

// Registrar is the single entry point used by password login and the OAuth
// callback.
//
// A device is "known" when the user already has a session with the same
// device and browser class. Two machines of the same class are therefore
// indistinguishable.
type Registrar struct {
	geo     Geolocator
	store   store.Sessions
	alerter alerts.Alerter
	log     zerolog.Logger
	now     func() time.Time
}

func NewRegistrar(geo Geolocator, sessions store.Sessions, alerter alerts.Alerter, log zerolog.Logger) *Registrar {
	return &Registrar{
		geo:     geo,
		store:   sessions,
		alerter: alerter,
		log:     log.With().Str("component", "session").Logger(),
		now:     time.Now,
	}
}

// Register never fails. Lookup, alert and store errors are logged.
func (r *Registrar) Register(ctx context.Context, userID string, meta RequestMetadata) {
	device := utils.DeviceClass(meta.UserAgent)
	browser := utils.BrowserClass(meta.UserAgent)
	location := r.geo.Lookup(ctx, meta.IP)

	log := r.log.With().Str("user", userID).Str("ip", meta.IP).Logger()

	known, err := r.store.HasDeviceSession(ctx, userID, device, browser)
	if err != nil {
		log.Error().Err(err).Msg("device lookup failed, treating as new device")
		known = false
	}

	now := r.now().UTC()

	if !known && r.alerter != nil {
		alert := alerts.Alert{
			UserID:   userID,
			Device:   device,
			Browser:  browser,
			Location: location,
			IP:       meta.IP,
			At:       now,
		}
		if err := r.alerter.NewDevice(ctx, alert); err != nil {
			log.Warn().Err(err).Msg("new device alert failed")
		}
	}

	sess := &models.UserSession{
		UserID:    userID,
		UserAgent: meta.UserAgent,
		Device:    device,
		Browser:   browser,
		Location:  location,
		IPAddress: meta.IP,
		CreatedAt: now,
		IsActive:  true,
	}
	if err := r.store.CreateSession(ctx, sess); err != nil {
		log.Error().Err(err).Msg("failed to record session")
		return
	}

	log.Info().
		Str("device", device).
		Str("browser", browser).
		Str("location", location).
		Bool("new_device", !known).
		Msg("session registered")
}
