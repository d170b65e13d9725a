package props

import (
	"errors"
	"strings"
	"testing"
)

func TestWrapEvaluationErrorCreatesMetadata(t *testing.T) {
	base := errors.New("boom")
	err := wrapEvaluationError("expr", "width * 2", "height", base)

	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected EvaluationError, got %T", err)
	}
	if evalErr.Engine != "expr" {
		t.Fatalf("expected engine expr, got %q", evalErr.Engine)
	}
	if evalErr.Expr != "width * 2" {
		t.Fatalf("expected expression metadata, got %q", evalErr.Expr)
	}
	if evalErr.Property != "height" {
		t.Fatalf("expected property metadata, got %q", evalErr.Property)
	}
	if !errors.Is(evalErr, base) {
		t.Fatalf("wrapped error should unwrap to base error")
	}
	if !strings.Contains(evalErr.Error(), "property=height") {
		t.Fatalf("expected property in message, got %q", evalErr.Error())
	}
}

func TestWrapEvaluationErrorAugmentsExisting(t *testing.T) {
	base := errors.New("compile failure")
	existing := &EvaluationError{
		Engine: "expr",
		Err:    base,
	}

	err := wrapEvaluationError("cel", "opacity > 1", "visible", existing)
	if !errors.Is(err, base) {
		t.Fatalf("expected base error to unwrap")
	}
	if existing.Engine != "expr" {
		t.Fatalf("existing engine should not be overwritten, got %q", existing.Engine)
	}
	if existing.Expr != "opacity > 1" {
		t.Fatalf("expression should be filled, got %q", existing.Expr)
	}
	if existing.Property != "visible" {
		t.Fatalf("property should be filled, got %q", existing.Property)
	}
}

func TestWrapEvaluatorErrorKeepsPrefixedErrors(t *testing.T) {
	prefixed := errors.New("props: already described")
	if got := wrapEvaluatorError("expr", prefixed); got != prefixed {
		t.Fatalf("expected prefixed error untouched, got %v", got)
	}
	wrapped := wrapEvaluatorError("cel", errors.New("raw"))
	if !strings.HasPrefix(wrapped.Error(), "props: cel evaluator:") {
		t.Fatalf("expected engine prefix, got %q", wrapped.Error())
	}
}

func TestInternalErrorIsDistinguishable(t *testing.T) {
	width := NewProperty("width", 0.0)
	err := internalError("Start", width, ErrAlreadyStarted)
	if !IsInternal(err) {
		t.Fatalf("expected internal error, got %T", err)
	}
	if !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted to unwrap")
	}
	if IsInternal(&InvalidValueError{Property: "width"}) {
		t.Fatalf("invalid value errors must not be reported as internal")
	}
}
