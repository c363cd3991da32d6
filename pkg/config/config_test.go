package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeProfile(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "connection.toml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("failed to write test profile: %v", err)
	}
	return path
}

func TestLoadConnectionProfileDefaults(t *testing.T) {
	path := writeProfile(t, `endpoint_url = "opc.tcp://localhost:4840"`)

	profile, err := LoadConnectionProfile(path)
	if err != nil {
		t.Fatalf("LoadConnectionProfile: %v", err)
	}
	if profile.SecurityMode != SecurityModeNone {
		t.Fatalf("expected default SecurityMode None, got %s", profile.SecurityMode)
	}
	if profile.SecurityPolicyURI == "" {
		t.Fatal("expected a default security policy URI")
	}
	if profile.ConnectTimeout() != 5*time.Second {
		t.Fatalf("expected default connect timeout of 5s, got %s", profile.ConnectTimeout())
	}
}

func TestLoadConnectionProfileRequiresEndpoint(t *testing.T) {
	path := writeProfile(t, `client_cert = "cert.pem"`)

	if _, err := LoadConnectionProfile(path); err == nil {
		t.Fatal("expected an error when endpoint_url is missing")
	}
}

func TestLoadConnectionProfileRejectsSecurityWithoutCredentials(t *testing.T) {
	path := writeProfile(t, `
endpoint_url = "opc.tcp://localhost:4840"
security_mode = "Sign"
`)

	if _, err := LoadConnectionProfile(path); err == nil {
		t.Fatal("expected an error when security_mode requires client_cert/client_key and neither is set")
	}
}

func TestLoadConnectionProfileRejectsUnknownSecurityMode(t *testing.T) {
	path := writeProfile(t, `
endpoint_url = "opc.tcp://localhost:4840"
security_mode = "Bogus"
`)

	if _, err := LoadConnectionProfile(path); err == nil {
		t.Fatal("expected an error for an unrecognised security_mode")
	}
}

func TestLoadProcessConfigDefaults(t *testing.T) {
	os.Unsetenv("LOG_LEVEL")
	os.Unsetenv("MAX_RECONNECTION_ATTEMPTS")

	conf, err := LoadProcessConfig()
	if err != nil {
		t.Fatalf("LoadProcessConfig: %v", err)
	}
	if conf.LogLevel != "info" {
		t.Fatalf("expected default LogLevel info, got %s", conf.LogLevel)
	}
	if conf.MaxReconnectAttempts != 100 {
		t.Fatalf("expected default MaxReconnectAttempts 100, got %d", conf.MaxReconnectAttempts)
	}
}

func TestLoadProcessConfigRejectsNonIntegerReconnectAttempts(t *testing.T) {
	os.Setenv("MAX_RECONNECTION_ATTEMPTS", "not-a-number")
	defer os.Unsetenv("MAX_RECONNECTION_ATTEMPTS")

	if _, err := LoadProcessConfig(); err == nil {
		t.Fatal("expected an error for a non-integer MAX_RECONNECTION_ATTEMPTS")
	}
}
