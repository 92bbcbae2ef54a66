package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestInitLogger_file(t *testing.T) {
	fileName := filepath.Join(t.TempDir(), "epg.log")
	logger := InitLogger(&LogConfig{
		Level:    zapcore.InfoLevel,
		FileName: fileName,
		MaxSize:  1,
	})
	defer zap.ReplaceGlobals(zap.NewNop())

	if zap.L() != logger {
		t.Error("InitLogger should replace the global logger")
	}

	logger.Debug("hidden")
	logger.Info("EPG data updated.", zap.Int("channels", 2))
	_ = logger.Sync()

	data, err := os.ReadFile(fileName)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	content := string(data)
	if strings.Contains(content, "hidden") {
		t.Error("debug entries should be filtered at info level")
	}
	for _, want := range []string{`"level":"INFO"`, `"msg":"EPG data updated."`, `"channels":2`, `"time":`} {
		if !strings.Contains(content, want) {
			t.Errorf("log output %q missing %s", content, want)
		}
	}
}
