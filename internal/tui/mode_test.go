package tui

import (
	"bytes"
	"testing"
	"time"
)

func TestDetectMode(t *testing.T) {
	var buf bytes.Buffer
	if got := DetectMode(&buf, false, true); got != ModeJSON {
		t.Errorf("json flag: got %v, want ModeJSON", got)
	}
	if got := DetectMode(&buf, true, false); got != ModePlain {
		t.Errorf("no-progress: got %v, want ModePlain", got)
	}
	if got := DetectMode(&buf, false, false); got != ModePlain {
		t.Errorf("non-file writer: got %v, want ModePlain", got)
	}
}

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		ms   int64
		want string
	}{
		{250, "250ms"},
		{1500, "1.5s"},
		{42000, "42s"},
		{125000, "2m05s"},
	}
	for _, tt := range tests {
		if got := FormatElapsed(msDuration(tt.ms)); got != tt.want {
			t.Errorf("FormatElapsed(%dms) = %q, want %q", tt.ms, got, tt.want)
		}
	}
}

func msDuration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
