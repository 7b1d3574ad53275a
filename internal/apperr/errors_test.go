package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestAppError_IsMatchesByCode(t *testing.T) {
	err := Newf(CodeDocumentNotFound, "document not found", "id=%s", "abc")
	wrapped := fmt.Errorf("create assessment: %w", err)

	if !errors.Is(wrapped, ErrDocumentNotFound) {
		t.Error("expected wrapped error to match ErrDocumentNotFound")
	}
	if errors.Is(wrapped, ErrAssessmentNotFound) {
		t.Error("did not expect match on a different code")
	}
	if !IsNotFound(wrapped) {
		t.Error("expected IsNotFound")
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, CodeProcessingFailed, "x") != nil {
		t.Error("Wrap(nil) should return nil")
	}

	cause := errors.New("connection refused")
	err := Wrap(cause, CodeCollaboratorUnavailable, "embedding failed")
	if !errors.Is(err, cause) {
		t.Error("expected cause in chain")
	}
	if CodeOf(err) != CodeCollaboratorUnavailable {
		t.Errorf("unexpected code %s", CodeOf(err))
	}
	want := "[COLLABORATOR_UNAVAILABLE] embedding failed: connection refused"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestWithDetail_DoesNotMutateSentinel(t *testing.T) {
	d := ErrInputInvalid.WithDetail("claim is empty")
	if ErrInputInvalid.Detail != "" {
		t.Error("sentinel was mutated")
	}
	if d.Error() != "[INPUT_INVALID] invalid input: claim is empty" {
		t.Errorf("unexpected message %q", d.Error())
	}
}

func TestCodeOf_Plain(t *testing.T) {
	if CodeOf(errors.New("plain")) != "" {
		t.Error("expected empty code for plain error")
	}
}
