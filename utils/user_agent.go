package utils

import (
	"strings"

	"github.com/Krish-Depani/ghost-ai-server/models"
)

// DeviceClass buckets a User-Agent into mobile, desktop or unknown.
func DeviceClass(userAgent string) string {
	ua := strings.ToLower(userAgent)

	switch {
	case containsAny(ua, "iphone", "android", "ipad"):
		return models.DeviceMobile
	case containsAny(ua, "macintosh", "windows", "linux"):
		return models.DeviceDesktop
	}
	return models.DeviceUnknown
}

// BrowserClass names the browser family. Edge user agents also carry the
// chrome and safari tokens, and Chrome carries safari, so order matters.
func BrowserClass(userAgent string) string {
	ua := strings.ToLower(userAgent)

	switch {
	case strings.Contains(ua, "edg"):
		return models.BrowserEdge
	case strings.Contains(ua, "chrome") && strings.Contains(ua, "safari"):
		return models.BrowserChrome
	case strings.Contains(ua, "safari") && !strings.Contains(ua, "chrome"):
		return models.BrowserSafari
	case strings.Contains(ua, "firefox"):
		return models.BrowserFirefox
	}
	return models.BrowserUnknown
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
