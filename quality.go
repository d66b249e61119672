package mediapick

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	_ "golang.org/x/image/webp"
)

// Byte-size and shape bounds for usable images.
const (
	minImageBytes  = 30 * 1024
	maxImageBytes  = 5 * 1024 * 1024
	minAspectRatio = 0.33
	maxAspectRatio = 3.0
)

// LogoBannerPatterns are URL substrings indicating non-photo images.
var LogoBannerPatterns = []string{
	"favicon", "logo", "icon", "banner", "sprite",
	"badge", "button", "widget", "avatar",
}

// IsLogoOrBanner checks if a lowercased URL contains logo/banner patterns.
func IsLogoOrBanner(lower string) bool {
	for _, p := range LogoBannerPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// QualityResult is the outcome of the deterministic pre-filter.
type QualityResult struct {
	Passed   bool
	Reason   string
	Width    int
	Height   int
	ByteSize int
}

// CheckQuality rejects technically unusable images before any oracle call:
// undersized dimensions, out-of-bounds byte size, extreme aspect ratios, and
// bytes that do not decode as an image. minWidth/minHeight below the global
// defaults are raised to them; the stricter threshold always wins. A failed
// check is a normal filtering outcome, not an error.
func CheckQuality(data []byte, minWidth, minHeight int) QualityResult {
	if minWidth < DefaultMinImageWidth {
		minWidth = DefaultMinImageWidth
	}
	if minHeight < DefaultMinImageHeight {
		minHeight = DefaultMinImageHeight
	}

	res := QualityResult{ByteSize: len(data)}

	if len(data) < minImageBytes {
		res.Reason = fmt.Sprintf("too small: %d bytes", len(data))
		return res
	}
	if len(data) > maxImageBytes {
		res.Reason = fmt.Sprintf("too large: %d bytes", len(data))
		return res
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		res.Reason = "quality check failed"
		return res
	}
	res.Width = cfg.Width
	res.Height = cfg.Height

	if cfg.Width < minWidth || cfg.Height < minHeight {
		res.Reason = fmt.Sprintf("undersized: %dx%d, want %dx%d", cfg.Width, cfg.Height, minWidth, minHeight)
		return res
	}

	if cfg.Height > 0 {
		ratio := float64(cfg.Width) / float64(cfg.Height)
		if ratio < minAspectRatio || ratio > maxAspectRatio {
			res.Reason = fmt.Sprintf("extreme aspect ratio: %.2f", ratio)
			return res
		}
	}

	res.Passed = true
	return res
}
