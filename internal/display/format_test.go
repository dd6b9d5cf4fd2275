package display

import (
	"strings"
	"testing"

	"github.com/mdsohelmia/smartchunking/internal/planner"
)

func TestFormatBytes(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
		{3 * 1024 * 1024 * 1024, "3.0 GiB"},
	}
	for _, c := range cases {
		if got := FormatBytes(c.in); got != c.want {
			t.Errorf("FormatBytes(%d): got %q, want %q", c.in, got, c.want)
		}
	}
}

func TestFormatSeconds(t *testing.T) {
	if got := FormatSeconds(12.3456); got != "12.346 s" {
		t.Errorf("short: got %q", got)
	}
	if got := FormatSeconds(90.5); got != "1m30.500s" {
		t.Errorf("long: got %q", got)
	}
}

func TestPlanTable(t *testing.T) {
	plan := &planner.Plan{Chunks: []planner.Chunk{
		{Index: 0, Start: 0, End: 20},
		{Index: 1, Start: 20, End: 41.25},
	}}
	out := PlanTable(plan)
	if !strings.Contains(out, "Chunk plan (2 chunks):") {
		t.Errorf("missing header: %q", out)
	}
	if !strings.Contains(out, "#001  20.000 -> 41.250  (21.250 s)") {
		t.Errorf("missing row: %q", out)
	}
}
