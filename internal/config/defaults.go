package config

import "time"

// Default constants for application configuration
const (
	DefaultLogLevel       = "info"
	DefaultJSONLog        = false
	DefaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	DefaultTimeout        = 60 * time.Second
	DefaultHeadless       = true
	DefaultViewportWidth  = 1920
	DefaultViewportHeight = 1080
	DefaultMaxPages       = 50
	DefaultMaxPagesLimit  = 1000
	DefaultScrollSettle   = 800 * time.Millisecond
	DefaultProbeTimeout   = 3 * time.Second
	DefaultReadyTimeout   = 15 * time.Second
	DefaultFuzzyThreshold = 0.92
	DefaultCaliber        = "9mm Luger"
)

// DefaultHeaders is the header profile sent with every request of a
// session.
func DefaultHeaders() map[string]string {
	return map[string]string{
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
		"Accept-Encoding": "gzip, deflate, br",
		"Accept-Language": "en-US,en;q=0.5",
		"Connection":      "keep-alive",
	}
}
