package monitoring

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestInitWithFileConfig_WritesFile(t *testing.T) {
	origLogf, origDebugf := Logf, Debugf
	defer func() { Logf, Debugf = origLogf, origDebugf }()

	path := filepath.Join(t.TempDir(), "export.log")
	if err := InitWithFileConfig("debug", DefaultFileConfig(path), false); err != nil {
		t.Fatalf("InitWithFileConfig() error = %v", err)
	}
	Logf("wrote %d points", 42)
	Debugf("source %s culled", "a")
	Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	for _, want := range []string{"wrote 42 points", "source a culled", "INFO", "DEBUG"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("log file missing %q:\n%s", want, data)
		}
	}
}

func TestInitWithFileConfig_InfoMutesDebug(t *testing.T) {
	origLogf, origDebugf := Logf, Debugf
	defer func() { Logf, Debugf = origLogf, origDebugf }()

	path := filepath.Join(t.TempDir(), "export.log")
	if err := InitWithFileConfig("info", DefaultFileConfig(path), false); err != nil {
		t.Fatalf("InitWithFileConfig() error = %v", err)
	}
	Debugf("hidden detail")
	Sync()

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "hidden detail") {
		t.Errorf("debug line written at info level:\n%s", data)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug": zapcore.DebugLevel,
		"info":  zapcore.InfoLevel,
		"warn":  zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
		"":      zapcore.InfoLevel,
		"loud":  zapcore.InfoLevel,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
