package debug

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func withOutput(t *testing.T, lvl int) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	Init(lvl)
	t.Cleanup(func() {
		Init(LevelOff)
		SetOutput(&bytes.Buffer{})
	})
	return &buf
}

func TestLevels(t *testing.T) {
	buf := withOutput(t, LevelSolve)

	Info("info %d", 1)
	Camera("shotCam", 1620, 1080, 1)
	Verbose("hidden")
	Trace("hidden")

	out := buf.String()
	if !strings.Contains(out, "[FilmGate] ") {
		t.Errorf("missing prefix:\n%s", out)
	}
	if !strings.Contains(out, "[INFO] info 1") {
		t.Errorf("missing info line:\n%s", out)
	}
	if !strings.Contains(out, "[SOLVE] Camera shotCam: visible 1620x1080, fov ratio 1.000000") {
		t.Errorf("missing camera line:\n%s", out)
	}
	if strings.Contains(out, "hidden") {
		t.Errorf("verbose/trace output at level %d:\n%s", LevelSolve, out)
	}
}

func TestOff(t *testing.T) {
	buf := withOutput(t, LevelOff)
	Info("x")
	Error(errors.New("boom"))
	Summary("title")
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
	if IsEnabled(LevelInfo) {
		t.Error("IsEnabled(LevelInfo) at level 0")
	}
	if Fmt("%d", 1) != "" {
		t.Error("Fmt should return empty when disabled")
	}
}

func TestTrace(t *testing.T) {
	buf := withOutput(t, LevelTrace)
	Trace("vertical fit: %s", "pillarbox")
	Step(1, "evaluate")
	if !strings.Contains(buf.String(), "[TRACE] vertical fit: pillarbox") {
		t.Errorf("missing trace:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "Step 1: evaluate") {
		t.Errorf("missing step:\n%s", buf.String())
	}
	if Level() != LevelTrace || !IsEnabled(LevelVerbose) {
		t.Errorf("Level() = %d", Level())
	}
}
