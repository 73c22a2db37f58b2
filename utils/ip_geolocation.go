package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

const (
	LocationLocal   = "Localhost"
	LocationUnknown = "Unknown location"
)

// IPGeolocator resolves an approximate "City, Country" label from an IP using
// an ipapi.co compatible endpoint. It never fails: every error maps to
// LocationUnknown.
type IPGeolocator struct {
	baseURL string
	client  *http.Client
}

func NewIPGeolocator(baseURL string, timeout time.Duration) *IPGeolocator {
	return &IPGeolocator{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// IsLocalIP reports loopback and unspecified addresses. Empty input counts as
// unspecified.
func IsLocalIP(ipAddress string) bool {
	if ipAddress == "" || strings.HasPrefix(ipAddress, "127.") {
		return true
	}
	ip := net.ParseIP(ipAddress)
	return ip != nil && (ip.IsLoopback() || ip.IsUnspecified())
}

func (g *IPGeolocator) Lookup(ctx context.Context, ipAddress string) string {
	if IsLocalIP(ipAddress) {
		return LocationLocal
	}

	url := fmt.Sprintf("%s/%s/json/", g.baseURL, ipAddress)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return LocationUnknown
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return LocationUnknown
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return LocationUnknown
	}

	var result struct {
		City    string `json:"city"`
		Country string `json:"country_name"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return LocationUnknown
	}

	switch {
	case result.City != "" && result.Country != "":
		return fmt.Sprintf("%s, %s", result.City, result.Country)
	case result.Country != "":
		return result.Country
	}

	return LocationUnknown
}
