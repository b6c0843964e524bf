package secrets

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeSecret(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "secret")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write secret: %v", err)
	}
	return path
}

func TestLoadPrecedence(t *testing.T) {
	t.Setenv("RESUME_SCORER_TEST_KEY", "  from-env  ")

	tests := []struct {
		name   string
		src    Source
		expect string
	}{
		{
			name:   "inline value",
			src:    Source{Name: "api key", Value: " inline "},
			expect: "inline",
		},
		{
			name:   "env wins over inline",
			src:    Source{Name: "api key", Value: "inline", Env: "RESUME_SCORER_TEST_KEY"},
			expect: "from-env",
		},
		{
			name:   "file wins over env",
			src:    Source{Name: "api key", Value: "inline", Env: "RESUME_SCORER_TEST_KEY", File: writeSecret(t, "from-file\n")},
			expect: "from-file",
		},
		{
			name:   "unset env falls back to inline",
			src:    Source{Name: "api key", Value: "inline", Env: "RESUME_SCORER_TEST_MISSING"},
			expect: "inline",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.src)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
			if !tt.src.Configured() {
				t.Fatalf("expected source to be configured")
			}
		})
	}
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	_, err := Load(Source{Name: "gemini api key"})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if !strings.Contains(err.Error(), "gemini api key") {
		t.Fatalf("expected name in error, got %v", err)
	}

	_, err = Load(Source{File: writeSecret(t, "   \n")})
	if err == nil || !strings.Contains(err.Error(), "is empty") {
		t.Fatalf("expected empty file error, got %v", err)
	}

	_, err = Load(Source{File: filepath.Join(t.TempDir(), "missing")})
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}

	if (Source{}).Configured() {
		t.Fatalf("empty source must not be configured")
	}
}
