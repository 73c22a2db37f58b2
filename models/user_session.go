package models

import (
	"time"
)

const (
	DeviceMobile  = "mobile"
	DeviceDesktop = "desktop"
	DeviceUnknown = "unknown"
)

const (
	BrowserEdge    = "Edge"
	BrowserChrome  = "Chrome"
	BrowserSafari  = "Safari"
	BrowserFirefox = "Firefox"
	BrowserUnknown = "Unknown"
)

// UserSession records one authenticated client. Only IsActive changes after
// insert, and only from true to false.
type UserSession struct {
	ID        uint   `gorm:"primarykey"`
	UserID    string `gorm:"index;not null"`
	UserAgent string
	Device    string `gorm:"index"`
	Browser   string `gorm:"index"`
	Location  string
	IPAddress string
	CreatedAt time.Time
	IsActive  bool `gorm:"default:true"`
}
