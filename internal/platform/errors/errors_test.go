package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	t.Parallel()

	err := NotFoundf("Event with id=%d was not found", 7)
	if !stderrors.Is(err, New(CodeNotFound, "")) {
		t.Fatal("expected errors.Is to match by code")
	}
	if stderrors.Is(err, New(CodeConflict, "")) {
		t.Fatal("expected different codes not to match")
	}
	if got := err.Error(); got != "Event with id=7 was not found" {
		t.Fatalf("Error() = %q", got)
	}
}

func TestCodeOfTraversesWrappedChain(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("load event: %w", Conflictf("busy"))
	if got := CodeOf(wrapped); got != CodeConflict {
		t.Fatalf("CodeOf = %q, want %q", got, CodeConflict)
	}
	if got := CodeOf(stderrors.New("plain")); got != CodeUnknown {
		t.Fatalf("CodeOf(plain) = %q, want %q", got, CodeUnknown)
	}
	if HasCode(nil, CodeUnknown) {
		t.Fatal("HasCode(nil) should be false")
	}
}

func TestWrapKeepsCause(t *testing.T) {
	t.Parallel()

	cause := stderrors.New("disk full")
	err := Wrap(CodeUnknown, "", cause)
	if !stderrors.Is(err, cause) {
		t.Fatal("expected cause in chain")
	}
	if got := err.Error(); got != "disk full" {
		t.Fatalf("Error() = %q, want cause text", got)
	}
}

func TestHTTPStatus(t *testing.T) {
	t.Parallel()

	cases := map[Code]int{
		CodeNotFound:        http.StatusNotFound,
		CodeForbidden:       http.StatusNotFound,
		CodeConflict:        http.StatusConflict,
		CodeDateInvalid:     http.StatusConflict,
		CodeInvalidArgument: http.StatusBadRequest,
		CodeUnknown:         http.StatusInternalServerError,
	}
	for code, want := range cases {
		if got := code.HTTPStatus(); got != want {
			t.Fatalf("%s.HTTPStatus() = %d, want %d", code, got, want)
		}
	}
}
