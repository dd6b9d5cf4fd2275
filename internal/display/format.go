package display

import (
	"fmt"
	"strings"

	"github.com/mdsohelmia/smartchunking/internal/planner"
)

// byteUnits are the binary suffixes used for source, chunk, and output
// sizes in log lines and the --check report.
var byteUnits = []string{"KiB", "MiB", "GiB", "TiB", "PiB", "EiB"}

// FormatBytes renders a file or chunk size with one decimal in binary units,
// e.g. "1.4 GiB". Sizes below 1 KiB stay in plain bytes.
func FormatBytes(n int64) string {
	if n < 1024 {
		return fmt.Sprintf("%d B", n)
	}
	v := float64(n) / 1024
	unit := 0
	for v >= 1024 && unit < len(byteUnits)-1 {
		v /= 1024
		unit++
	}
	return fmt.Sprintf("%.1f %s", v, byteUnits[unit])
}

// FormatSeconds renders a duration in seconds with millisecond precision,
// switching to m:ss display past one minute.
func FormatSeconds(sec float64) string {
	if sec < 60 {
		return fmt.Sprintf("%.3f s", sec)
	}
	minutes := int(sec) / 60
	return fmt.Sprintf("%dm%06.3fs", minutes, sec-float64(minutes)*60)
}

// PlanTable renders the chunk plan as the familiar aligned listing.
func PlanTable(plan *planner.Plan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Chunk plan (%d chunks):\n", len(plan.Chunks))
	for _, c := range plan.Chunks {
		fmt.Fprintf(&b, "  #%03d  %.3f -> %.3f  (%.3f s)\n", c.Index, c.Start, c.End, c.Length())
	}
	return b.String()
}
