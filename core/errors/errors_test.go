package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestKindOfSurvivesWrapping(t *testing.T) {
	sentinel := State("lottery: draw already pending")
	wrapped := fmt.Errorf("pick winner: %w", sentinel)

	if !stderrors.Is(wrapped, sentinel) {
		t.Fatalf("expected errors.Is to match sentinel")
	}
	if got := KindOf(wrapped); got != KindState {
		t.Fatalf("unexpected kind: %s", got)
	}
	if !IsState(wrapped) || IsResource(wrapped) {
		t.Fatalf("unexpected classification for %v", wrapped)
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := stderrors.New("disk full")
	err := Wrap(KindResource, cause, "treasury %s", "yield")
	if !stderrors.Is(err, cause) {
		t.Fatalf("expected cause to be reachable")
	}
	if err.Error() != "treasury yield: disk full" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
	if !IsResource(err) {
		t.Fatalf("expected resource classification")
	}
	if Wrap(KindState, nil, "noop") != nil {
		t.Fatalf("wrapping nil must return nil")
	}
}

func TestUnclassifiedIsInternal(t *testing.T) {
	if KindOf(stderrors.New("boom")) != KindInternal {
		t.Fatalf("expected internal kind")
	}
	if IsAuthorization(nil) || IsIntegrity(nil) {
		t.Fatalf("nil must not classify")
	}
	if KindIntegrity.String() != "integrity" || KindInternal.String() != "internal" {
		t.Fatalf("unexpected kind names")
	}
}
