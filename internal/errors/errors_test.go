package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"
)

func TestBrimError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *BrimError
		expected string
	}{
		{
			name:     "error without cause",
			err:      New(CategoryConfig, SeverityFatal, "configuration invalid"),
			expected: "config (fatal): configuration invalid",
		},
		{
			name:     "error with cause",
			err:      Wrap(fmt.Errorf("unexpected EOF"), CategoryData, SeverityError, "malformed data record"),
			expected: "data (error): malformed data record: unexpected EOF",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := test.err.Error()
			if result != test.expected {
				t.Errorf("Error() = %q, want %q", result, test.expected)
			}
		})
	}
}

func TestBrimError_WithContext(t *testing.T) {
	err := New(CategoryAsset, SeverityWarning, "transcode failed").
		WithContext("path", "img/logo.png").
		WithContext("format", "png")

	if err.Context == nil {
		t.Fatal("Context should not be nil")
	}

	if err.Context["path"] != "img/logo.png" {
		t.Errorf("Context[path] = %v, want img/logo.png", err.Context["path"])
	}

	if err.Context["format"] != "png" {
		t.Errorf("Context[format] = %v, want png", err.Context["format"])
	}
}

func TestIsCategory(t *testing.T) {
	configErr := New(CategoryConfig, SeverityFatal, "config error")
	dataErr := MalformedDataRecord("a.json", fmt.Errorf("bad"))
	wrapped := fmt.Errorf("rendering: %w", dataErr)
	standardErr := fmt.Errorf("standard error")

	tests := []struct {
		name     string
		err      error
		category ErrorCategory
		expected bool
	}{
		{"config error matches config category", configErr, CategoryConfig, true},
		{"config error doesn't match data category", configErr, CategoryData, false},
		{"data error matches data category", dataErr, CategoryData, true},
		{"wrapped data error matches data category", wrapped, CategoryData, true},
		{"standard error doesn't match any category", standardErr, CategoryConfig, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := IsCategory(test.err, test.category)
			if result != test.expected {
				t.Errorf("IsCategory() = %v, want %v", result, test.expected)
			}
		})
	}
}

func TestGetCategory(t *testing.T) {
	if got := GetCategory(fmt.Errorf("plain")); got != CategoryInternal {
		t.Errorf("GetCategory(plain) = %v, want %v", got, CategoryInternal)
	}
	if got := GetCategory(TemplateNotFound("brim.html")); got != CategoryTemplate {
		t.Errorf("GetCategory(TemplateNotFound) = %v, want %v", got, CategoryTemplate)
	}
}

func TestConvenienceFunctions(t *testing.T) {
	t.Run("ConfigNotFound", func(t *testing.T) {
		err := ConfigNotFound("/path/to/brim.yaml")
		if err.Category != CategoryConfig {
			t.Errorf("Category = %v, want %v", err.Category, CategoryConfig)
		}
		if err.Severity != SeverityFatal {
			t.Errorf("Severity = %v, want %v", err.Severity, SeverityFatal)
		}
		if err.Context["path"] != "/path/to/brim.yaml" {
			t.Errorf("Context[path] = %v, want /path/to/brim.yaml", err.Context["path"])
		}
	})

	t.Run("SourceTreeNotFound", func(t *testing.T) {
		err := SourceTreeNotFound("site")
		if !err.Fatal() {
			t.Error("SourceTreeNotFound should be fatal")
		}
	})

	t.Run("MalformedDataRecord", func(t *testing.T) {
		cause := fmt.Errorf("invalid character")
		err := MalformedDataRecord("posts/a.json", cause)
		if err.Fatal() {
			t.Error("MalformedDataRecord should not be fatal")
		}
		if !stdErrors.Is(err, cause) {
			t.Errorf("Cause should match wrapped cause: %v", cause)
		}
	})

	t.Run("ValidationFailed", func(t *testing.T) {
		err := ValidationFailed("workers", "must be at least 1")
		if err.Category != CategoryValidation {
			t.Errorf("Category = %v, want %v", err.Category, CategoryValidation)
		}
		if err.Context["field"] != "workers" {
			t.Errorf("Context[field] = %v, want workers", err.Context["field"])
		}
		if err.Context["reason"] != "must be at least 1" {
			t.Errorf("Context[reason] = %v, want must be at least 1", err.Context["reason"])
		}
	})
}

func TestCLIErrorAdapter_ExitCodeFor(t *testing.T) {
	a := NewCLIErrorAdapter(false, nil)

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"plain", fmt.Errorf("boom"), 1},
		{"validation", UnknownHookAction("exec"), 2},
		{"template", TemplateNotFound("brim.html"), 3},
		{"source", SourceTreeNotFound("src"), 3},
		{"config", ConfigNotFound("brim.yaml"), 7},
		{"hook", HookFailed("clean", fmt.Errorf("denied")), 12},
		{"internal", UnhandledRenderFailure("a.json", fmt.Errorf("panic")), 10},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := a.ExitCodeFor(test.err); got != test.want {
				t.Errorf("ExitCodeFor() = %d, want %d", got, test.want)
			}
		})
	}
}

func TestCLIErrorAdapter_FormatError(t *testing.T) {
	quiet := NewCLIErrorAdapter(false, nil)
	if got := quiet.FormatError(TemplateNotFound("brim.html")); got != "Error: template not found: brim.html" {
		t.Errorf("FormatError() = %q", got)
	}
	if got := quiet.FormatError(HookFailed("clean", fmt.Errorf("denied"))); got != "Error: hook: hook action failed" {
		t.Errorf("FormatError() = %q", got)
	}

	verbose := NewCLIErrorAdapter(true, nil)
	if got := verbose.FormatError(HookFailed("clean", fmt.Errorf("denied"))); got != "hook (fatal): hook action failed: denied" {
		t.Errorf("FormatError() = %q", got)
	}
}
