package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	l, err := NewLogger(path, zapcore.InfoLevel)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	l.Infof("benchmark %s done", "kv_put/64/1024/10")
	l.Debugf("hidden below info")
	l.Child("etcd-client").Info("connected")
	if err := l.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "benchmark kv_put/64/1024/10 done") {
		t.Errorf("log file misses info entry:\n%s", content)
	}
	if strings.Contains(content, "hidden below info") {
		t.Errorf("log file has debug entry:\n%s", content)
	}
	if !strings.Contains(content, `"logger":"etcd-client"`) {
		t.Errorf("log file misses named logger entry:\n%s", content)
	}
}

func TestLoggerWithoutFile(t *testing.T) {
	l, err := NewLogger("", zapcore.DebugLevel)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	l.Debugf("stdout only")
	if err := l.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestLoggerBadPath(t *testing.T) {
	if _, err := NewLogger(filepath.Join(t.TempDir(), "missing", "run.log"), zapcore.InfoLevel); err == nil {
		t.Error("NewLogger() with missing directory expected error")
	}
}
