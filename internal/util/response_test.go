package util

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func runFromError(err error) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	FromError(c, err)
	return w
}

func TestFromErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"validation", NewValidationError("rating", "out of range"), http.StatusBadRequest},
		{"invalid state", NewInvalidStateError(3, "Resolved", "post message"), http.StatusConflict},
		{"not found", NewNotFoundError("ticket", "3"), http.StatusNotFound},
		{"dependency", NewDependencyError("storage upload", errors.New("timeout")), http.StatusBadGateway},
		{"unknown", errors.New("surprise"), http.StatusInternalServerError},
		{"wrapped validation", fmt.Errorf("tagging: %w", NewValidationError("courseNames", "unknown")), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := runFromError(tt.err)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}

			var resp Response
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("body not json: %v", err)
			}
			if resp.Code != tt.wantStatus {
				t.Errorf("body code = %d, want %d", resp.Code, tt.wantStatus)
			}
		})
	}
}

func TestDependencyErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewDependencyError("resolver", cause)

	if !errors.Is(err, cause) {
		t.Error("DependencyError does not unwrap to its cause")
	}
}

func TestInvalidStateErrorMessage(t *testing.T) {
	err := NewInvalidStateError(7, "Closed", "rate")
	want := `ticket 7: cannot rate while status is "Closed"`
	if err.Error() != want {
		t.Errorf("message = %q, want %q", err.Error(), want)
	}
}
