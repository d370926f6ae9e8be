package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestAppError_New_Success(t *testing.T) {
	err := New(ErrCodeNotFound, "not found", http.StatusNotFound)
	if err.Code != ErrCodeNotFound {
		t.Errorf("expected code %s, got %s", ErrCodeNotFound, err.Code)
	}
	if err.Message != "not found" {
		t.Errorf("expected message 'not found', got %q", err.Message)
	}
	if err.HTTPStatus != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, err.HTTPStatus)
	}
	if err.Retryable {
		t.Error("NOT_FOUND should not be retryable")
	}
}

func TestAppError_New_Retryable(t *testing.T) {
	err := New(ErrCodeTimeout, "timed out", http.StatusGatewayTimeout)
	if !err.Retryable {
		t.Error("TIMEOUT should be retryable")
	}
}

func TestNoSuitableConstructor(t *testing.T) {
	err := NoSuitableConstructor("service", []string{"string", "int"})
	if err.Code != ErrCodeNoSuitableConstructor {
		t.Errorf("expected NO_SUITABLE_CONSTRUCTOR, got %s", err.Code)
	}
	if !strings.Contains(err.Message, "service") || !strings.Contains(err.Message, "string, int") {
		t.Errorf("expected component and argument types in message, got %q", err.Message)
	}
	if err.Details["component"] != "service" {
		t.Errorf("expected component=service, got %v", err.Details["component"])
	}
}

func TestUnresolvedDependency(t *testing.T) {
	err := UnresolvedDependency("service.Repo", "*app.Repo")
	if err.Code != ErrCodeUnresolvedDependency {
		t.Errorf("expected UNRESOLVED_DEPENDENCY, got %s", err.Code)
	}
	if err.Details["consumer"] != "service.Repo" {
		t.Errorf("expected consumer detail, got %v", err.Details["consumer"])
	}
	if err.Details["dependency"] != "*app.Repo" {
		t.Errorf("expected dependency detail, got %v", err.Details["dependency"])
	}
	if err.Retryable {
		t.Error("unresolved dependencies should not be retryable")
	}
}

func TestInvocationFailure_KeepsCause(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := InvocationFailure("repo", "New", cause)
	if err.Code != ErrCodeInvocationFailure {
		t.Errorf("expected INVOCATION_FAILURE, got %s", err.Code)
	}
	if !stderrors.Is(err, cause) {
		t.Error("expected cause to be reachable through errors.Is")
	}
	if !strings.Contains(err.Error(), "repo.New") || !strings.Contains(err.Error(), "disk full") {
		t.Errorf("expected member and cause in Error(), got %q", err.Error())
	}
}

func TestConfigurationAccess(t *testing.T) {
	err := ConfigurationAccess("server.Port", "http.port", nil)
	if err.Code != ErrCodeConfigurationAccess {
		t.Errorf("expected CONFIGURATION_ACCESS_FAILURE, got %s", err.Code)
	}
	if err.Details["key"] != "http.port" {
		t.Errorf("expected key detail, got %v", err.Details["key"])
	}
}

func TestLifecycleOrder(t *testing.T) {
	err := LifecycleOrder("POST_INIT", "wiring not finalized")
	if err.Code != ErrCodeLifecycleOrder {
		t.Errorf("expected LIFECYCLE_ORDER, got %s", err.Code)
	}
	if err.HTTPStatus != http.StatusConflict {
		t.Errorf("expected 409, got %d", err.HTTPStatus)
	}
}

func TestAppError_NotFound_EmptyID(t *testing.T) {
	err := NotFound("user", "")
	if _, ok := err.Details["id"]; ok {
		t.Error("expected no 'id' key in details when id is empty")
	}
}

func TestAppError_WithCause_Chain(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := NotFound("item", "1").WithCause(cause)
	if err.Cause != cause {
		t.Error("expected cause to be set via WithCause")
	}
	if !strings.Contains(err.Error(), "root cause") {
		t.Errorf("Error() should contain cause, got %q", err.Error())
	}
}

func TestAppError_WithDetails_Merge(t *testing.T) {
	err := NotFound("item", "1").WithDetails(map[string]any{"extra": "info"})
	if err.Details["extra"] != "info" {
		t.Errorf("expected extra=info in details")
	}
	if err.Details["resource"] != "item" {
		t.Error("expected original details to be preserved")
	}

	err.WithDetails(map[string]any{"another": "detail"})
	if err.Details["another"] != "detail" {
		t.Error("expected another=detail to be merged")
	}
	if err.Details["extra"] != "info" {
		t.Error("expected extra=info to be preserved after second merge")
	}
}

func TestAppError_WithDetail_NilMap(t *testing.T) {
	err := &AppError{}
	err.WithDetail("key", "value")
	if err.Details == nil {
		t.Fatal("expected Details map to be initialized")
	}
	if err.Details["key"] != "value" {
		t.Errorf("expected key=value, got %v", err.Details["key"])
	}
}

func TestAppError_Constructors_Table(t *testing.T) {
	tests := []struct {
		name      string
		err       *AppError
		code      ErrorCode
		status    int
		retryable bool
	}{
		{"NoSuitableConstructor", NoSuitableConstructor("c", nil), ErrCodeNoSuitableConstructor, http.StatusInternalServerError, false},
		{"UnresolvedDependency", UnresolvedDependency("c", "T"), ErrCodeUnresolvedDependency, http.StatusInternalServerError, false},
		{"InvocationFailure", InvocationFailure("c", "m", nil), ErrCodeInvocationFailure, http.StatusInternalServerError, false},
		{"ConfigurationAccess", ConfigurationAccess("c", "k", nil), ErrCodeConfigurationAccess, http.StatusInternalServerError, false},
		{"AlreadyExists", AlreadyExists("binding"), ErrCodeAlreadyExists, http.StatusConflict, false},
		{"MissingField", MissingField("name"), ErrCodeMissingField, http.StatusBadRequest, false},
		{"Timeout", Timeout("shutdown"), ErrCodeTimeout, http.StatusGatewayTimeout, true},
		{"Unavailable", Unavailable("mailer"), ErrCodeUnavailable, http.StatusServiceUnavailable, true},
		{"Validation", Validation("bad input"), ErrCodeInvalidInput, http.StatusBadRequest, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.err.Code != tc.code {
				t.Errorf("expected code %s, got %s", tc.code, tc.err.Code)
			}
			if tc.err.HTTPStatus != tc.status {
				t.Errorf("expected status %d, got %d", tc.status, tc.err.HTTPStatus)
			}
			if tc.err.Retryable != tc.retryable {
				t.Errorf("expected retryable=%v, got %v", tc.retryable, tc.err.Retryable)
			}
		})
	}
}

func TestAppError_ToResponse_Success(t *testing.T) {
	err := UnresolvedDependency("svc", "Repo")
	resp := err.ToResponse()
	if resp.Error.Code != ErrCodeUnresolvedDependency {
		t.Errorf("expected code UNRESOLVED_DEPENDENCY in response, got %s", resp.Error.Code)
	}
	if resp.Error.Details["consumer"] != "svc" {
		t.Error("expected consumer=svc in response details")
	}
}

func TestAppError_IsAppError_Success(t *testing.T) {
	appErr := NotFound("x", "")
	if !IsAppError(appErr) {
		t.Error("expected IsAppError to return true for AppError")
	}

	wrapped := fmt.Errorf("wrapped: %w", appErr)
	if !IsAppError(wrapped) {
		t.Error("expected IsAppError to return true for wrapped AppError")
	}

	if IsAppError(fmt.Errorf("plain error")) {
		t.Error("expected IsAppError to return false for plain error")
	}
}

func TestAppError_AsAppError_Success(t *testing.T) {
	wrapped := fmt.Errorf("wrap: %w", Internal(nil))

	got, ok := AsAppError(wrapped)
	if !ok {
		t.Fatal("expected AsAppError to succeed for wrapped AppError")
	}
	if got.Code != ErrCodeInternal {
		t.Errorf("expected INTERNAL_ERROR, got %s", got.Code)
	}

	if _, ok = AsAppError(fmt.Errorf("not an app error")); ok {
		t.Error("expected AsAppError to return false for non-AppError")
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil) != nil {
		t.Error("Wrap(nil) should return nil")
	}

	orig := NotFound("item", "1")
	if Wrap(orig) != orig {
		t.Error("Wrap should return the original AppError unchanged")
	}
	if got := Wrap(fmt.Errorf("outer: %w", orig)); got.Code != ErrCodeNotFound {
		t.Errorf("expected NOT_FOUND, got %s", got.Code)
	}

	plain := fmt.Errorf("something broke")
	got := Wrap(plain)
	if got.Code != ErrCodeInternal {
		t.Errorf("expected INTERNAL_ERROR, got %s", got.Code)
	}
	if got.Cause != plain {
		t.Error("expected cause to be the original error")
	}
}
