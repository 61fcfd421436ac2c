package progressbar

import (
	"bytes"
	"strings"
	"testing"
)

func TestManualProgressBar(t *testing.T) {
	var out bytes.Buffer
	p := NewManualProgressBar(&out, 10, 4)

	for i := 0; i < 6; i++ {
		p.Increment()
	}
	if p.Progress() != 1 {
		t.Errorf("progress should saturate at 1, have %v", p.Progress())
	}

	p.Display()
	bar := out.String()
	if !strings.Contains(bar, "100.00%") {
		t.Errorf("full bar should report 100%%, have %q", bar)
	}
	if n := strings.Count(bar, "█"); n != 10 {
		t.Errorf("full bar should have 10 blocks, have %v", n)
	}
}

func TestManualProgressBarPartial(t *testing.T) {
	var out bytes.Buffer
	p := NewManualProgressBar(&out, 10, 4)
	p.Increment()

	if s := p.String(); !strings.Contains(s, "25.00%") {
		t.Errorf("quarter bar should report 25%%, have %q", s)
	}
}
