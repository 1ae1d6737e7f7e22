package internal

import (
	"strings"
	"testing"
	"time"

	"github.com/starford/yearwheel/internal/notestore"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should pass: %v", err)
	}
	if l := cfg.Wheel.Layout(); l.Radius != 300 || l.Margin != 40 || l.Year != 0 {
		t.Errorf("layout = %+v", l)
	}
}

func TestConnectorConfig_Policy(t *testing.T) {
	cfg := ConnectorConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty policy should default: %v", err)
	}
	if cfg.OnMoveComplete != notestore.PolicyReset {
		t.Errorf("policy = %q, want reset", cfg.OnMoveComplete)
	}

	cfg = ConnectorConfig{OnMoveComplete: notestore.PolicyTranslate}
	if err := cfg.Validate(); err != nil {
		t.Errorf("translate should pass: %v", err)
	}

	cfg = ConnectorConfig{OnMoveComplete: "stretch"}
	if err := cfg.Validate(); err == nil {
		t.Error("unknown policy should fail")
	}

	cfg = ConnectorConfig{CommitThreshold: -1}
	if err := cfg.Validate(); err == nil {
		t.Error("negative threshold should fail")
	}
}

func TestWheelConfig_Validation(t *testing.T) {
	cases := map[string]WheelConfig{
		"zero radius":     {Radius: 0, Margin: 40},
		"negative margin": {Radius: 300, Margin: -1},
		"year too large":  {Year: 10000, Radius: 300},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestFullConfig_CanvasValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Canvas.Width = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch canvas error")
	}
}

func TestAutosaveConfig_Bounds(t *testing.T) {
	if err := (&AutosaveConfig{Debounce: 2 * time.Minute}).Validate(); err == nil {
		t.Error("debounce above a minute should fail")
	}
	if err := (&AutosaveConfig{}).Validate(); err != nil {
		t.Errorf("zero debounce should pass: %v", err)
	}
}
