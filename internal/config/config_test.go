package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

// chdirTemp runs the test from an empty directory so no stray config.yaml
// is picked up.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Addr() != "0.0.0.0:5000" {
		t.Errorf("addr = %q", cfg.Server.Addr())
	}
	if cfg.Upload.Dir != "temp_uploads" {
		t.Errorf("upload dir = %q", cfg.Upload.Dir)
	}
	if cfg.Upload.MaxSize != 50*1024*1024 {
		t.Errorf("max size = %d", cfg.Upload.MaxSize)
	}
	if !reflect.DeepEqual(cfg.Upload.AllowedExtensions, []string{"wav", "flac"}) {
		t.Errorf("extensions = %v", cfg.Upload.AllowedExtensions)
	}
	if cfg.Classifier.Provider != "mock" || cfg.Classifier.DelayMs != 1000 {
		t.Errorf("classifier = %+v", cfg.Classifier)
	}
	if cfg.Redis.Enabled() {
		t.Error("redis should be disabled without an address")
	}
	if cfg.Sweep.MaxAge != 10*time.Minute || cfg.Sweep.Interval != "@every 5m" {
		t.Errorf("sweep = %+v", cfg.Sweep)
	}
}

func TestLoad_Env(t *testing.T) {
	chdirTemp(t)

	t.Setenv("SERVER_PORT", "8080")
	t.Setenv("UPLOAD_MAX_SIZE", "1024")
	t.Setenv("UPLOAD_ALLOWED_EXTENSIONS", " WAV, .flac ,ogg,")
	t.Setenv("CLASSIFIER_PROVIDER", "Remote")
	t.Setenv("CLASSIFIER_SERVICE_URL", "http://classifier:8000")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("port = %q", cfg.Server.Port)
	}
	if cfg.Upload.MaxSize != 1024 {
		t.Errorf("max size = %d", cfg.Upload.MaxSize)
	}
	if !reflect.DeepEqual(cfg.Upload.AllowedExtensions, []string{"wav", "flac", "ogg"}) {
		t.Errorf("extensions = %v", cfg.Upload.AllowedExtensions)
	}
	if cfg.Classifier.Provider != "remote" || cfg.Classifier.ServiceURL != "http://classifier:8000" {
		t.Errorf("classifier = %+v", cfg.Classifier)
	}
	if !cfg.Redis.Enabled() {
		t.Error("redis should be enabled")
	}
}

func TestLoad_SecretFile(t *testing.T) {
	dir := chdirTemp(t)

	secret := filepath.Join(dir, "api_key")
	if err := os.WriteFile(secret, []byte("s3cret\n"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv("CLASSIFIER_API_KEY", "")
	t.Setenv("CLASSIFIER_API_KEY_FILE", secret)

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Classifier.APIKey != "s3cret" {
		t.Errorf("api key = %q", cfg.Classifier.APIKey)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "remote without url", env: map[string]string{"CLASSIFIER_PROVIDER": "remote"}},
		{name: "unknown provider", env: map[string]string{"CLASSIFIER_PROVIDER": "onnx"}},
		{name: "zero max size", env: map[string]string{"UPLOAD_MAX_SIZE": "0"}},
		{name: "no extensions", env: map[string]string{"UPLOAD_ALLOWED_EXTENSIONS": " , "}},
		{name: "non numeric port", env: map[string]string{"SERVER_PORT": "http"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chdirTemp(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(nil); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoad_FlagsAndFile(t *testing.T) {
	dir := chdirTemp(t)

	file := filepath.Join(dir, "voicecheck.yaml")
	content := []byte("server:\n  port: \"6000\"\nupload:\n  allowed_extensions:\n    - wav\n")
	if err := os.WriteFile(file, content, 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("config", "", "")
	flags.String("host", "0.0.0.0", "")
	flags.String("port", "5000", "")
	if err := flags.Parse([]string{"--config", file, "--host", "127.0.0.1"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	cfg, err := Load(flags)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	// Unchanged flags do not override the file
	if cfg.Server.Addr() != "127.0.0.1:6000" {
		t.Errorf("addr = %q", cfg.Server.Addr())
	}
	if !reflect.DeepEqual(cfg.Upload.AllowedExtensions, []string{"wav"}) {
		t.Errorf("extensions = %v", cfg.Upload.AllowedExtensions)
	}
}

func TestLoad_MissingConfigFile(t *testing.T) {
	chdirTemp(t)

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("config", "", "")
	if err := flags.Parse([]string{"--config", "does-not-exist.yaml"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if _, err := Load(flags); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
