package props

import (
	"errors"
	"fmt"
	"strings"
)

// EvaluationError captures evaluator metadata for a failed binding expression.
type EvaluationError struct {
	Engine   string
	Expr     string
	Property string
	Err      error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	target := e.Property
	if target == "" {
		target = "<unbound>"
	}
	return fmt.Sprintf("props: %s evaluator %s property=%s: %v", e.Engine, describeExpression(e.Expr), target, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeExpression(expr string) string {
	if expr == "" {
		return "expr=<empty>"
	}
	return fmt.Sprintf("expr=%q", expr)
}

func wrapEvaluatorError(engine string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		return err
	}

	if strings.HasPrefix(err.Error(), "props:") {
		return err
	}
	return fmt.Errorf("props: %s evaluator: %w", engine, err)
}

// wrapEvaluationError fills missing metadata on an existing EvaluationError
// or wraps err in a new one.
func wrapEvaluationError(engine, expr, property string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		if evalErr.Engine == "" {
			evalErr.Engine = engine
		}
		if evalErr.Expr == "" {
			evalErr.Expr = expr
		}
		if evalErr.Property == "" {
			evalErr.Property = property
		}
		return evalErr
	}

	return &EvaluationError{
		Engine:   engine,
		Expr:     expr,
		Property: property,
		Err:      err,
	}
}
