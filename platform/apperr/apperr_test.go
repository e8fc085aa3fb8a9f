package apperr

import (
	"errors"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want int
	}{
		{"not found", NotFound("patient not found"), http.StatusNotFound},
		{"validation", Validation("invalid phone number"), http.StatusBadRequest},
		{"bad request", BadRequest("malformed body"), http.StatusBadRequest},
		{"conflict", Conflict("call event already exists"), http.StatusConflict},
		{"unavailable", Unavailable("voice provider unreachable"), http.StatusBadGateway},
		{"internal", Internal("unexpected"), http.StatusInternalServerError},
		{"unknown", New(KindUnknown, "unclassified"), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.HTTPStatus(); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestGetKind(t *testing.T) {
	if got := GetKind(NotFound("missing")); got != KindNotFound {
		t.Errorf("GetKind() = %v, want KindNotFound", got)
	}
	if got := GetKind(errors.New("plain")); got != KindUnknown {
		t.Errorf("GetKind(plain error) = %v, want KindUnknown", got)
	}
	if got := GetKind(nil); got != KindUnknown {
		t.Errorf("GetKind(nil) = %v, want KindUnknown", got)
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(KindUnavailable, "place call", cause)

	if !errors.Is(err, cause) {
		t.Error("wrapped error should match its cause with errors.Is")
	}
	if err.Error() != "place call" {
		t.Errorf("Error() = %q, want %q", err.Error(), "place call")
	}
	if withOp := err.WithOp("twilio.PlaceCall"); withOp.Error() != "twilio.PlaceCall: place call" {
		t.Errorf("Error() with op = %q", withOp.Error())
	}
}
