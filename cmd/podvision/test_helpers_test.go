package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"podvision/internal/config"
	"podvision/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	service    *testsupport.FakeService
	configPath string
	baseDir    string
	audioPath  string
}

func setupCLITestEnv(t *testing.T, script ...testsupport.StatusStep) *cliTestEnv {
	t.Helper()
	return setupCLITestEnvWith(t, nil, script...)
}

func setupCLITestEnvWith(t *testing.T, opts []testsupport.ConfigOption, script ...testsupport.StatusStep) *cliTestEnv {
	t.Helper()
	isolateEnv(t)

	service := testsupport.NewFakeService(t, "job-123", script...)
	opts = append([]testsupport.ConfigOption{testsupport.WithAPIURL(service.URL())}, opts...)
	cfg := testsupport.NewConfig(t, opts...)
	base := testsupport.BaseDir(cfg)

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	audioPath := filepath.Join(base, "episode.wav")
	testsupport.WriteAudio(t, audioPath, 2048)

	return &cliTestEnv{
		cfg:        cfg,
		service:    service,
		configPath: configPath,
		baseDir:    base,
		audioPath:  audioPath,
	}
}

func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, key := range []string{
		"PODVISION_API_URL", "API_URL",
		"PODVISION_POLL_INTERVAL_MS", "POLL_INTERVAL_MS",
		"PODVISION_LOG_LEVEL", "LOG_LEVEL",
		"PODVISION_LOG_FORMAT", "LOG_FORMAT",
		"PODVISION_SENTRY_DSN", "SENTRY_DSN",
		"PODVISION_DOWNLOAD_DIR", "DOWNLOAD_DIR",
		"PODVISION_REQUEST_TIMEOUT", "REQUEST_TIMEOUT",
		"PODVISION_RETRY_MAX_ATTEMPTS", "RETRY_MAX_ATTEMPTS",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	encoded, err := cfg.Encode()
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(path, []byte(encoded), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := cmd.ExecuteContext(ctx)
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output string, parts ...string) {
	t.Helper()
	for _, part := range parts {
		if !strings.Contains(output, part) {
			t.Fatalf("expected %q in output:\n%s", part, output)
		}
	}
}
