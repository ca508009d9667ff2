package config

import (
	"os"
	"testing"
)

func TestGetDefaults(t *testing.T) {
	c := Empty()
	if got := c.GetGatingDistanceM(); got != 8000.0 {
		t.Errorf("GetGatingDistanceM = %f, want 8000", got)
	}
	if got := c.GetMatchThreshold(); got != 0.8 {
		t.Errorf("GetMatchThreshold = %f, want 0.8", got)
	}
	if got := c.GetProjection(); got != "utm" {
		t.Errorf("GetProjection = %q, want utm", got)
	}
	if got := c.GetCacheMaxSize(); got != 1000 {
		t.Errorf("GetCacheMaxSize = %d, want 1000", got)
	}
}

func TestValidateRejectsOutOfRangeLat(t *testing.T) {
	lat := 200.0
	c := &AppConfig{SiteLat: &lat}
	if err := c.Validate(); err == nil {
		t.Fatal("expected validation error for out-of-range latitude")
	}
}

func TestMergeOverridesOnlyNonNilFields(t *testing.T) {
	base := Empty()
	gate := 5000.0
	thr := 0.9
	overlay := &AppConfig{GatingDistanceM: &gate, MatchThreshold: &thr}
	merged := base.Merge(overlay)

	if merged.GetGatingDistanceM() != 5000.0 {
		t.Errorf("expected overlay gating distance to win, got %f", merged.GetGatingDistanceM())
	}
	if merged.GetMatchThreshold() != 0.9 {
		t.Errorf("expected overlay threshold to win, got %f", merged.GetMatchThreshold())
	}
	if merged.GetSiteLat() != base.GetSiteLat() {
		t.Errorf("expected untouched field to keep base default")
	}
}

func TestLoadFromEnv(t *testing.T) {
	os.Setenv("TRACKMATCH_MATCH_THRESHOLD", "0.6")
	defer os.Unsetenv("TRACKMATCH_MATCH_THRESHOLD")

	c, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if c.GetMatchThreshold() != 0.6 {
		t.Errorf("GetMatchThreshold = %f, want 0.6", c.GetMatchThreshold())
	}
}

func TestLoadFromEnvRejectsUnparsable(t *testing.T) {
	os.Setenv("TRACKMATCH_MATCH_THRESHOLD", "not-a-number")
	defer os.Unsetenv("TRACKMATCH_MATCH_THRESHOLD")

	if _, err := LoadFromEnv(); err == nil {
		t.Fatal("expected error for unparsable env var")
	}
}
