package http

import (
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// palette returns n visually distinct colors spread evenly around the HCL hue wheel.
func palette(n int) []string {
	colors := make([]string, n)
	for i := range n {
		hue := 360 * float64(i) / float64(max(n, 1))
		colors[i] = colorful.Hcl(hue, 0.55, 0.6).Clamped().Hex()
	}
	return colors
}

// barWidth scales v against largest as a rounded percentage.
// Non-zero values never drop below 2 so they stay visible.
func barWidth(v, largest float64) int {
	if largest <= 0 || v <= 0 {
		return 0
	}
	w := int(math.Round(v / largest * 100))
	return min(max(w, 2), 100)
}

// sanitizeInput drops control characters and trims whitespace.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}
