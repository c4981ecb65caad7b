package env

import "testing"

func TestGetPrefersPrefixedVariable(t *testing.T) {
	t.Setenv("LOG_FORMAT", "console")
	t.Setenv("GUDANG_LOG_FORMAT", "json")
	if got := Get("LOG_FORMAT", "text"); got != "json" {
		t.Fatalf("expected prefixed value, got %q", got)
	}
}

func TestGetFallsBack(t *testing.T) {
	t.Setenv("PORT", "  ")
	t.Setenv("GUDANG_PORT", "")
	if got := Get("PORT", "8080"); got != "8080" {
		t.Fatalf("expected fallback for blank values, got %q", got)
	}
	t.Setenv("PORT", "9000")
	if got := Get("PORT", "8080"); got != "9000" {
		t.Fatalf("expected bare variable, got %q", got)
	}
}
