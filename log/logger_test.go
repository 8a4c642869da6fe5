package log

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/op/go-logging"
)

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	SetSink(&buf)
	defer SetSink(os.Stderr)
	defer SetLevel(Notice)

	logger := New("logtest")

	SetLevel(Notice)
	logger.Info("hidden")
	logger.Noticef("rank %d done", 3)
	if out := buf.String(); strings.Contains(out, "hidden") || !strings.Contains(out, "rank 3 done") {
		t.Errorf("unexpected output at Notice: %q", out)
	}
	if !strings.Contains(buf.String(), "[logtest]") {
		t.Errorf("missing module name: %q", buf.String())
	}

	buf.Reset()
	SetLevel(Debug)
	logger.Debug("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Errorf("debug message missing: %q", buf.String())
	}

	buf.Reset()
	SetLevel(Error)
	logger.Warning("quiet")
	if buf.Len() != 0 {
		t.Errorf("expected no output at Error, got %q", buf.String())
	}
}

func TestSetLevelWithoutSink(t *testing.T) {
	lock.Lock()
	saved := backend
	backend = nil
	lock.Unlock()
	defer func() {
		lock.Lock()
		backend = saved
		lock.Unlock()
		logging.SetBackend(saved)
	}()

	if CurrentLevel() != Notice {
		t.Errorf("expected default level %v but got %v", Notice, CurrentLevel())
	}
	SetLevel(Info)
	if CurrentLevel() != Info {
		t.Errorf("expected level %v but got %v", Info, CurrentLevel())
	}
}

func TestSetSinkKeepsLevel(t *testing.T) {
	defer SetSink(os.Stderr)
	defer SetLevel(Notice)

	SetLevel(Warning)
	var buf bytes.Buffer
	SetSink(&buf)
	if CurrentLevel() != Warning {
		t.Errorf("expected level %v after SetSink but got %v", Warning, CurrentLevel())
	}
}
