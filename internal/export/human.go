package export

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
)

// FormatBytes renders a payload size in binary units ("1.5 KiB").
func FormatBytes(n int64) string {
	if n <= 0 {
		return "0 B"
	}
	return humanize.IBytes(uint64(n))
}

// FormatElapsed renders a duration in milliseconds for listings.
func FormatElapsed(ms float64) string {
	switch {
	case ms < 1:
		return "<1 ms"
	case ms < 1000:
		return fmt.Sprintf("%d ms", int64(math.Round(ms)))
	default:
		return fmt.Sprintf("%.2f s", ms/1000)
	}
}
