package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestNewLoggerFiltering(t *testing.T) {
	tests := []struct {
		name     string
		minLevel log.Level
		logAt    log.Level
		want     bool
	}{
		{"info passes at info", log.InfoLevel, log.InfoLevel, true},
		{"warn passes at info", log.InfoLevel, log.WarnLevel, true},
		{"debug filtered at info", log.InfoLevel, log.DebugLevel, false},
		{"debug passes at debug", log.DebugLevel, log.DebugLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := newLogger(&buf, tt.minLevel)
			logger.Log(tt.logAt, "probe")

			if got := buf.Len() > 0; got != tt.want {
				t.Errorf("output written = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSetLogLevel(t *testing.T) {
	var buf bytes.Buffer
	c := &CLI{Logger: newLogger(&buf, log.InfoLevel), Config: DefaultConfig()}

	c.Logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatal("debug message should be filtered at info level")
	}

	c.SetLogLevel(log.DebugLevel)
	c.Logger.Debug("visible")
	if buf.Len() == 0 {
		t.Error("debug message should pass after SetLogLevel")
	}
}

func TestProgress(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, log.InfoLevel)

	prog := newProgress(logger)
	time.Sleep(10 * time.Millisecond)
	prog.done("loaded branch.json")

	out := buf.Bytes()
	if !bytes.Contains(out, []byte("loaded branch.json")) {
		t.Error("done() output should contain the message")
	}
	if !bytes.Contains(out, []byte("duration")) {
		t.Error("done() output should carry the duration field")
	}
}
