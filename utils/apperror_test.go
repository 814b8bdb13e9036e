package utils

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusByKind(t *testing.T) {
	cases := map[ErrorKind]int{
		KindValidation:       http.StatusBadRequest,
		KindNotFound:         http.StatusNotFound,
		KindConflict:         http.StatusConflict,
		KindPolicy:           http.StatusUnprocessableEntity,
		KindExternalDegraded: http.StatusBadGateway,
		KindPersistence:      http.StatusInternalServerError,
		KindConfiguration:    http.StatusServiceUnavailable,
	}
	for kind, want := range cases {
		if got := NewError(kind, "x", "y").HTTPStatus(); got != want {
			t.Errorf("%s: status = %d, want %d", kind, got, want)
		}
	}
}

func TestHasCodeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("create: %w", Conflict(CodeSlotConflict, "slot taken"))
	if !HasCode(err, CodeSlotConflict) {
		t.Fatal("expected wrapped slot_conflict to be detected")
	}
	if HasCode(err, CodeBookingNotFound) {
		t.Fatal("unexpected code match")
	}
}

func TestAsAppErrorHidesUnknownCauses(t *testing.T) {
	cause := errors.New("socket closed")
	appErr := AsAppError(cause)
	if appErr.Code != CodeInternal || appErr.Kind != KindPersistence {
		t.Fatalf("got %+v", appErr)
	}
	if !errors.Is(appErr, cause) {
		t.Fatal("cause should stay reachable through Unwrap")
	}
}
