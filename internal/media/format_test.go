package media

import "testing"

func TestDetectFormat(t *testing.T) {
	cases := []struct {
		path string
		want Format
	}{
		{"/data/in.mp4", FormatMP4},
		{"/data/in.M4V", FormatMP4},
		{"clip.mov", FormatMOV},
		{"clip.mkv", FormatMatroska},
		{"clip.webm", FormatWebM},
		{"noext", FormatMP4},
		{"weird.avi", FormatMP4},
	}
	for _, c := range cases {
		if got := DetectFormat(c.path); got != c.want {
			t.Errorf("DetectFormat(%q): got %s, want %s", c.path, got, c.want)
		}
	}
}

func TestResolveFormat(t *testing.T) {
	if got := ResolveFormat(true, FormatWebM, "x.mov"); got != FormatMOV {
		t.Errorf("auto should use path: got %s", got)
	}
	if got := ResolveFormat(false, FormatMatroska, "x.mov"); got != FormatMatroska {
		t.Errorf("forced format: got %s", got)
	}
	if got := ResolveFormat(false, "", "x.mov"); got != FormatMP4 {
		t.Errorf("forced default: got %s", got)
	}
}
