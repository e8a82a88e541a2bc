package domain

import (
	"strings"
	"time"
)

// DeviceType is the coarse device class derived from the user-agent string.
type DeviceType string

const (
	DeviceMobile  DeviceType = "Mobile"
	DeviceTablet  DeviceType = "Tablet"
	DeviceDesktop DeviceType = "Desktop"
	DeviceUnknown DeviceType = "Unknown"
)

// ClientContext carries the request-level attributes recorded in the audit
// trail. Populated by the transport layer.
type ClientContext struct {
	IP        string
	UserAgent string
}

// LoginAuditRecord is one immutable entry per login attempt evaluated against
// an existing account. Attempts against unknown emails produce no record.
type LoginAuditRecord struct {
	ID        string     `json:"id"`
	AccountID string     `json:"account_id"`
	IP        string     `json:"ip"`
	UserAgent string     `json:"user_agent"`
	Success   bool       `json:"success"`
	Device    DeviceType `json:"device"`
	Browser   string     `json:"browser"`
	CreatedAt time.Time  `json:"created_at"`
}

// tablet keywords are checked before mobile ones: most tablet user agents
// also contain "Android" or "Mobile".
var tabletMarkers = []string{"ipad", "tablet", "kindle", "silk", "playbook"}

var mobileMarkers = []string{"mobi", "iphone", "ipod", "android", "phone", "blackberry", "opera mini"}

var desktopMarkers = []string{"windows", "macintosh", "x11", "linux", "cros"}

// DeviceTypeFromUserAgent classifies a user-agent string by keyword
// heuristics. Intentionally approximate — mis-classification is acceptable
// and must never affect the login outcome.
func DeviceTypeFromUserAgent(ua string) DeviceType {
	ua = strings.ToLower(ua)
	if ua == "" {
		return DeviceUnknown
	}
	for _, m := range tabletMarkers {
		if strings.Contains(ua, m) {
			return DeviceTablet
		}
	}
	for _, m := range mobileMarkers {
		if strings.Contains(ua, m) {
			return DeviceMobile
		}
	}
	for _, m := range desktopMarkers {
		if strings.Contains(ua, m) {
			return DeviceDesktop
		}
	}
	return DeviceUnknown
}

// BrowserFromUserAgent names the browser family, same best-effort contract as
// DeviceTypeFromUserAgent. Order matters: Edge and Opera embed "Chrome",
// Chrome embeds "Safari".
func BrowserFromUserAgent(ua string) string {
	lower := strings.ToLower(ua)
	switch {
	case lower == "":
		return "Unknown"
	case strings.Contains(lower, "edg"):
		return "Edge"
	case strings.Contains(lower, "opr") || strings.Contains(lower, "opera"):
		return "Opera"
	case strings.Contains(lower, "chrome") || strings.Contains(lower, "crios"):
		return "Chrome"
	case strings.Contains(lower, "firefox") || strings.Contains(lower, "fxios"):
		return "Firefox"
	case strings.Contains(lower, "safari"):
		return "Safari"
	case strings.Contains(lower, "msie") || strings.Contains(lower, "trident"):
		return "Internet Explorer"
	default:
		return "Other"
	}
}
