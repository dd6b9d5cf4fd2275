package pipeline

import (
	"fmt"
	"os"

	"github.com/jszwec/csvutil"

	"github.com/mdsohelmia/smartchunking/internal/probe"
)

// frameRow is the CSV shape of one probed frame.
type frameRow struct {
	Index      int     `csv:"index"`
	PTSTime    float64 `csv:"pts_time"`
	Keyframe   bool    `csv:"keyframe"`
	PacketSize int     `csv:"packet_size"`
}

// WriteFrameReport dumps the probed per-frame metadata as CSV, the
// debugging view of what the planner saw.
func WriteFrameReport(path string, res *probe.Result) error {
	rows := make([]frameRow, len(res.Frames))
	for i, f := range res.Frames {
		rows[i] = frameRow{
			Index:      i,
			PTSTime:    f.PTSTime,
			Keyframe:   f.Keyframe,
			PacketSize: f.PacketSize,
		}
	}

	data, err := csvutil.Marshal(rows)
	if err != nil {
		return fmt.Errorf("frame report: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
