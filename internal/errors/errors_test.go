package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHasCodeThroughWrapping(t *testing.T) {
	base := New(CodeInvalidRollSpec, "bad pattern")
	wrapped := fmt.Errorf("roll weapon: %w", base)

	if !HasCode(wrapped, CodeInvalidRollSpec) {
		t.Fatal("expected wrapped error to carry INVALID_ROLL_SPEC")
	}
	if HasCode(wrapped, CodeNotFound) {
		t.Fatal("did not expect NOT_FOUND")
	}
	if HasCode(nil, CodeUnknown) {
		t.Fatal("nil error must not match")
	}
}

func TestGetCode(t *testing.T) {
	if got := GetCode(stderrors.New("plain")); got != CodeUnknown {
		t.Fatalf("expected UNKNOWN, got %s", got)
	}
	err := Wrap(CodePersistenceFailure, "write room", stderrors.New("disk full"))
	if got := GetCode(fmt.Errorf("outer: %w", err)); got != CodePersistenceFailure {
		t.Fatalf("expected PERSISTENCE_FAILURE, got %s", got)
	}
	if err.Error() != "write room: disk full" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeInvalidRollSpec, http.StatusBadRequest},
		{CodeInvalidArgument, http.StatusBadRequest},
		{CodeInvalidOperation, http.StatusConflict},
		{CodeNotFound, http.StatusNotFound},
		{CodeChannelUnavailable, http.StatusServiceUnavailable},
		{CodeUnknown, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := tt.code.HTTPStatus(); got != tt.want {
				t.Fatalf("status = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	err := fmt.Errorf("apply damage: %w", WithMetadata(CodeNotFound, "enemy e9 not found", map[string]string{"enemyId": "e9"}))
	p := ToPayload(err)
	if p.Code != CodeNotFound || p.Metadata["enemyId"] != "e9" {
		t.Fatalf("unexpected payload %+v", p)
	}
	back := p.Err()
	if !HasCode(back, CodeNotFound) || back.Message != "apply damage: enemy e9 not found" {
		t.Fatalf("unexpected error %v", back)
	}
	if got := ToPayload(stderrors.New("boom")).Code; got != CodeUnknown {
		t.Fatalf("expected UNKNOWN, got %s", got)
	}
	if got := (Payload{Message: "x"}).Err().Code; got != CodeUnknown {
		t.Fatalf("expected UNKNOWN for empty code, got %s", got)
	}
}
