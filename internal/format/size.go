// Package format holds presentation helpers for the CLI.
package format

import (
	"fmt"
	"math"
)

var sizeSuffixes = [...]string{"bytes", "KB", "MB", "GB", "TB", "PB", "EB", "ZB", "YB"}

// Size renders a byte count using 1024-based suffixes, e.g. "1.50 MB".
func Size(value int64, decimals int) string {
	if decimals < 0 {
		decimals = 0
	}
	if value < 0 {
		return "-" + Size(-value, decimals)
	}
	if value == 0 {
		return fmt.Sprintf("%.*f bytes", decimals, 0.0)
	}

	mag := int(math.Log(float64(value)) / math.Log(1024))
	adjusted := float64(value) / float64(int64(1)<<(uint(mag)*10))

	// A value that rounds up to 1000 or more reads better in the next
	// magnitude: "0.98 MB" instead of "1000.00 KB".
	scale := math.Pow10(decimals)
	if math.Round(adjusted*scale)/scale >= 1000 {
		mag++
		adjusted /= 1024
	}

	return fmt.Sprintf("%.*f %s", decimals, adjusted, sizeSuffixes[mag])
}
