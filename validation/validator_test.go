package validation

import (
	"strings"
	"testing"
)

func TestValidatorRequired(t *testing.T) {
	v := New()
	v.Required("name", "repo")
	if v.HasErrors() {
		t.Error("expected no errors for valid input")
	}

	v2 := New()
	v2.Required("name", "")
	if !v2.HasErrors() {
		t.Error("expected error for empty required field")
	}

	v3 := New()
	v3.Required("name", "   ")
	if !v3.HasErrors() {
		t.Error("expected error for whitespace-only required field")
	}
}

func TestValidatorMaxLength(t *testing.T) {
	v := New()
	v.MaxLength("name", "short", 10)
	if v.HasErrors() {
		t.Error("expected no errors")
	}

	v2 := New()
	v2.MaxLength("name", strings.Repeat("x", 11), 10)
	if !v2.HasErrors() {
		t.Error("expected error for too long")
	}
}

func TestValidatorMin(t *testing.T) {
	v := New()
	v.Min("constructors", 1, 1)
	if v.HasErrors() {
		t.Error("expected no errors at the minimum")
	}

	v2 := New()
	v2.Min("constructors", 0, 1)
	if !v2.HasErrors() {
		t.Error("expected error below the minimum")
	}
	if !strings.Contains(v2.Errors()[0].Message, "at least 1") {
		t.Errorf("unexpected message %q", v2.Errors()[0].Message)
	}
}

func TestValidatorPattern(t *testing.T) {
	v := New()
	v.Pattern("key", "cache.ttl", configKeyPattern)
	if v.HasErrors() {
		t.Error("expected dotted key to match")
	}

	v2 := New()
	v2.Pattern("key", "cache..ttl", configKeyPattern)
	if !v2.HasErrors() {
		t.Error("expected empty segment to fail")
	}

	v3 := New()
	v3.Pattern("key", "", configKeyPattern)
	if v3.HasErrors() {
		t.Error("expected empty value to be skipped")
	}
}

func TestValidatorOneOf(t *testing.T) {
	v := New()
	v.OneOf("phase", "POST_INIT", phaseNames)
	if v.HasErrors() {
		t.Error("expected no errors for valid option")
	}

	v2 := New()
	v2.OneOf("phase", "Phase(9)", phaseNames)
	if !v2.HasErrors() {
		t.Error("expected error for invalid option")
	}
}

func TestValidatorCustom(t *testing.T) {
	v := New()
	v.Custom(true, "field", "should not appear")
	if v.HasErrors() {
		t.Error("expected no errors for true condition")
	}

	v2 := New()
	v2.Custom(false, "field", "custom error")
	if !v2.HasErrors() {
		t.Error("expected error for false condition")
	}
	if v2.Errors()[0].Message != "custom error" {
		t.Errorf("expected 'custom error', got %q", v2.Errors()[0].Message)
	}
}

func TestValidatorValidate(t *testing.T) {
	v := New()
	v.Required("name", "repo")
	appErr := v.Validate()
	if appErr != nil {
		t.Error("expected nil for valid input")
	}

	v2 := New()
	v2.Required("name", "")
	v2.Required("type", "")
	appErr2 := v2.Validate()
	if appErr2 == nil {
		t.Fatal("expected error")
	}
	if appErr2.Details == nil {
		t.Fatal("expected details in error")
	}
	if !strings.Contains(appErr2.Message, "name") || !strings.Contains(appErr2.Message, "type") {
		t.Errorf("expected both fields in message, got %q", appErr2.Message)
	}
}

func TestValidatorChaining(t *testing.T) {
	v := New()
	result := v.Required("name", "repo").MaxLength("name", "repo", 100).Min("count", 25, 18)
	if result != v {
		t.Error("expected chaining to return same validator")
	}
	if v.HasErrors() {
		t.Error("expected no errors for valid chained validation")
	}
}

type telemetrySettings struct {
	Endpoint    string  `mapstructure:"endpoint" validate:"required,hostname_port"`
	SampleRatio float64 `mapstructure:"sample_ratio" validate:"gte=0,lte=1"`
}

type appSettings struct {
	Name      string            `mapstructure:"name" validate:"required"`
	Telemetry telemetrySettings `mapstructure:"telemetry"`
}

func TestStructValidateValid(t *testing.T) {
	err := Validate(appSettings{
		Name:      "orders",
		Telemetry: telemetrySettings{Endpoint: "localhost:4318", SampleRatio: 0.5},
	})
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestStructValidateInvalid(t *testing.T) {
	err := Validate(appSettings{
		Telemetry: telemetrySettings{Endpoint: "localhost:4318", SampleRatio: 2},
	})
	if err == nil {
		t.Fatal("expected validation error")
	}
	errStr := err.Error()
	if !strings.Contains(errStr, "name: is required") {
		t.Errorf("expected error to mention 'name', got %q", errStr)
	}
	if !strings.Contains(errStr, "telemetry.sample_ratio: must be at most 1") {
		t.Errorf("expected nested key path, got %q", errStr)
	}
	if !IsValidation(err) {
		t.Error("expected a validation error")
	}
}

func TestStructValidateHostPort(t *testing.T) {
	err := Validate(appSettings{Name: "orders", Telemetry: telemetrySettings{Endpoint: "no-port"}})
	if err == nil || !strings.Contains(err.Error(), "telemetry.endpoint") {
		t.Errorf("expected endpoint error, got %v", err)
	}
}

func TestToSnakeCase(t *testing.T) {
	if got := toSnakeCase("HookTimeout"); got != "hook_timeout" {
		t.Errorf("expected hook_timeout, got %q", got)
	}
}
