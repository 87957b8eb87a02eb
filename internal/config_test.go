package internal

import (
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.App.HTTP.Address() != ":8080" {
		t.Errorf("address = %q", cfg.App.HTTP.Address())
	}
	if cfg.Publish.LockTimeout() != 10*time.Second {
		t.Errorf("lock timeout = %v", cfg.Publish.LockTimeout())
	}
	if cfg.Auth.AuthEnabled() {
		t.Error("auth should default to disabled")
	}
}

func TestHTTPConfigValidation(t *testing.T) {
	for _, port := range []int{0, -1, 70000} {
		c := HTTPConfig{Port: port}
		if err := c.Validate(); err == nil {
			t.Errorf("port %d should be invalid", port)
		}
	}
	if err := (&HTTPConfig{Port: 8080}).Validate(); err != nil {
		t.Errorf("valid port rejected: %v", err)
	}
}

func TestAuthConfigValidation(t *testing.T) {
	c := AuthConfig{Mode: AuthModeToken}
	if err := c.Validate(); err == nil {
		t.Error("token mode without a token should be invalid")
	}

	c = AuthConfig{Mode: AuthModeToken, Token: "secret"}
	if err := c.Validate(); err != nil {
		t.Errorf("token mode with token rejected: %v", err)
	}
	if !c.AuthEnabled() {
		t.Error("token mode should enable auth")
	}

	c = AuthConfig{}
	if err := c.Validate(); err != nil {
		t.Errorf("empty mode should normalise to disabled: %v", err)
	}
	if c.Mode != AuthModeDisabled {
		t.Errorf("mode = %q", c.Mode)
	}

	c = AuthConfig{Mode: "basic"}
	if err := c.Validate(); err == nil {
		t.Error("unknown mode should be invalid")
	}
}

func TestPublishConfigValidation(t *testing.T) {
	if err := (&PublishConfig{LockTimeoutSeconds: -1}).Validate(); err == nil {
		t.Error("negative timeout should be invalid")
	}
	if err := (&PublishConfig{LockTimeoutSeconds: 700}).Validate(); err == nil {
		t.Error("oversized timeout should be invalid")
	}
	if err := (&PublishConfig{LockTimeoutSeconds: 10}).Validate(); err != nil {
		t.Errorf("valid timeout rejected: %v", err)
	}
}

func TestSQLiteAndContentRequirePaths(t *testing.T) {
	if err := (&SQLiteConfig{}).Validate(); err == nil {
		t.Error("empty sqlite path should be invalid")
	}
	if err := (&ContentConfig{}).Validate(); err == nil {
		t.Error("empty content path should be invalid")
	}
}
