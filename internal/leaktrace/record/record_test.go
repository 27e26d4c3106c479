package record

import (
	"strings"
	"testing"
	"time"

	"github.com/kolkov/leaktracer/internal/leaktrace/frames"
)

// TestStringRendering verifies the record header and that the stack follows.
func TestStringRendering(t *testing.T) {
	rec := Allocation{
		Addr:   0xdeadbeef,
		Size:   64,
		Frames: frames.Capture(0, 4),
		GID:    7,
		Time:   time.Now(),
	}

	s := rec.String()
	if !strings.Contains(s, "0xdeadbeef") {
		t.Errorf("rendering missing address:\n%s", s)
	}
	if !strings.Contains(s, "size 64") {
		t.Errorf("rendering missing size:\n%s", s)
	}
	if !strings.Contains(s, "goroutine 7") {
		t.Errorf("rendering missing goroutine id:\n%s", s)
	}
	if !strings.Contains(s, "TestStringRendering") {
		t.Errorf("rendering missing allocation site:\n%s", s)
	}
}

// TestStringNoStack verifies a record without frames still renders.
func TestStringNoStack(t *testing.T) {
	rec := Allocation{Addr: 0x1000, Size: 8}

	s := rec.String()
	if !strings.Contains(s, "<no stack>") {
		t.Errorf("stackless record rendering = %q", s)
	}
}
