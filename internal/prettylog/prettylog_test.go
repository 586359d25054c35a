package prettylog_test

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/inory/fiber/internal/prettylog"
)

// newLogger builds a slog.Logger whose JSON records flow straight into
// prettylog.Writer, with ANSI colorization disabled so assertions can match
// on literal substrings instead of escape codes.
func newLogger(t *testing.T, buf *bytes.Buffer) *slog.Logger {
	t.Setenv("NO_COLOR", "1")
	w := prettylog.NewWriter(buf)
	h := slog.NewJSONHandler(w, nil)
	return slog.New(h)
}

func TestWriteRendersWorkerFiberColumn(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(t, &buf)

	logger.Info("tick", "worker", 2, "fiber", 7)

	out := buf.String()
	if !strings.Contains(out, "2/7") {
		t.Fatalf("output %q missing combined worker/fiber column", out)
	}
	if !strings.Contains(out, "tick") {
		t.Fatalf("output %q missing message", out)
	}
	// worker and fiber must not also appear rendered individually as
	// trailing key=value fields, since writeFields skips them.
	if strings.Contains(out, "worker=") || strings.Contains(out, "fiber=") {
		t.Fatalf("output %q rendered worker/fiber twice", out)
	}
}

func TestWriteRendersExtraFieldsInOrder(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(t, &buf)

	logger.Warn("retrying", "worker", 0, "fiber", 1, "attempt", 3)

	out := buf.String()
	if !strings.Contains(out, "attempt=3") {
		t.Fatalf("output %q missing extra field, got: %s", out, out)
	}
	if !strings.Contains(out, "WRN") {
		t.Fatalf("output %q missing level abbreviation", out)
	}
	if strings.Index(out, "WRN") > strings.Index(out, "retrying") ||
		strings.Index(out, "retrying") > strings.Index(out, "attempt=3") {
		t.Fatalf("output %q not in level, message, extra-field order", out)
	}
}

func TestWriteWithoutWorkerFiberStillRenders(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(t, &buf)

	logger.Error("boom", "err", "disk full")

	out := buf.String()
	if !strings.Contains(out, "boom") {
		t.Fatalf("output %q missing message", out)
	}
	if !strings.Contains(out, "disk full") {
		t.Fatalf("output %q missing error field", out)
	}
}
