// Package errors provides structured, coded errors for loom.
//
// Each error carries a code (e.g. "L003") registered with a category, a short
// message and a longer explanation. Errors wrap their cause for errors.Is/As
// and compare equal to any other error with the same code:
//
//	err := errors.New(errors.CodeUnknownType).
//	    WithDetailf("tag %q", "blink").
//	    Wrap(cause)
//
//	if stderrors.Is(err, errors.New(errors.CodeUnknownType)) { ... }
//
// Format renders a colored multi-line message for terminals; FormatCompact
// renders a single line for logs.
package errors
