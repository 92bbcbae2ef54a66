package config

import (
	"epg/internal/app/epg"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap/zapcore"
)

func TestCreateDefaultCfgAndLoad(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv(envURL, "")
	t.Setenv(envUpdateAt, "")
	t.Setenv(envLogLevel, "")

	fPath := filepath.Join(t.TempDir(), "config.yml")
	if err := CreateDefaultCfg(fPath, "epg.log"); err != nil {
		t.Fatalf("CreateDefaultCfg: %v", err)
	}

	conf, err := Load(fPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err = conf.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if conf.BatchSize != epg.DefaultBatchSize || conf.BatchDelay != 10*time.Millisecond {
		t.Errorf("unexpected batch settings: %d %v", conf.BatchSize, conf.BatchDelay)
	}
	if conf.Timeout != defaultTimeout || conf.MaxAge != epg.DefaultMaxAge {
		t.Errorf("unexpected durations: %v %v", conf.Timeout, conf.MaxAge)
	}
	if conf.UpdateHour != 3 || conf.UpdateMinute != 0 {
		t.Errorf("updateAt = %d:%d", conf.UpdateHour, conf.UpdateMinute)
	}
	if conf.Log.Level != zapcore.InfoLevel || conf.Log.FileName != "epg.log" {
		t.Errorf("unexpected log config: %+v", conf.Log)
	}
}

func TestLoad_yamlAndEnv(t *testing.T) {
	chdir(t, t.TempDir())
	fPath := filepath.Join(t.TempDir(), "config.yml")
	content := `url: " https://feed.example/guide.xml "
timeout: 30s
batchSize: 500
updateAt: "04:30"
log:
  level: warn
`
	if err := os.WriteFile(fPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv(envURL, "")
	t.Setenv(envUpdateAt, "")
	t.Setenv(envLogLevel, "")
	conf, err := Load(fPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if conf.URL != "https://feed.example/guide.xml" || conf.Timeout != 30*time.Second || conf.BatchSize != 500 {
		t.Errorf("unexpected config: %+v", conf)
	}
	if conf.Log.Level != zapcore.WarnLevel {
		t.Errorf("log level = %v", conf.Log.Level)
	}

	t.Setenv(envURL, "https://other.example/epg.xml.gz")
	t.Setenv(envUpdateAt, "05:15")
	t.Setenv(envLogLevel, "debug")
	conf, err = Load(fPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err = conf.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if conf.URL != "https://other.example/epg.xml.gz" || conf.UpdateHour != 5 || conf.UpdateMinute != 15 {
		t.Errorf("env overrides not applied: %+v", conf)
	}
	if conf.Log.Level != zapcore.DebugLevel {
		t.Errorf("log level = %v", conf.Log.Level)
	}

	t.Setenv(envLogLevel, "loud")
	if _, err = Load(fPath); err == nil {
		t.Error("expected error for invalid log level")
	}
}

func TestLoad_dotenv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	// godotenv不会覆盖已存在的环境变量，这里确保变量未设置
	os.Unsetenv(envURL)
	t.Cleanup(func() { os.Unsetenv(envURL) })

	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(envURL+"=https://dotenv.example/epg.xml\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	fPath := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(fPath, []byte("url: https://file.example/epg.xml\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	conf, err := Load(fPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if conf.URL != "https://dotenv.example/epg.xml" {
		t.Errorf("url = %q, want the .env value", conf.URL)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		conf    Config
		wantErr bool
	}{
		{"missing url", Config{}, true},
		{"bad updateAt", Config{URL: "u", UpdateAt: "25:00"}, true},
		{"garbage updateAt", Config{URL: "u", UpdateAt: "noon"}, true},
		{"defaults", Config{URL: "u"}, false},
		{"negative values", Config{URL: "u", BatchSize: -1, BatchDelay: -time.Second, UpcomingLimit: -3}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.conf.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			c := tt.conf
			if c.BatchSize != epg.DefaultBatchSize || c.BatchDelay != 0 || c.UpcomingLimit != epg.DefaultUpcomingLimit ||
				c.Port != defaultPort || c.UpdateAt != defaultUpdateAt {
				t.Errorf("defaults not applied: %+v", c)
			}
		})
	}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}
