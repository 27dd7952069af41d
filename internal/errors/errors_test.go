package errors

import (
	stderrors "errors"
	"io"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{
			name:    "hook misuse",
			code:    CodeHookOutsideRender,
			wantMsg: "Hook called outside composite evaluation",
			wantCat: CategoryRuntime,
		},
		{
			name:    "host error",
			code:    CodeUnknownType,
			wantMsg: "Unknown host type",
			wantCat: CategoryHost,
		},
		{
			name:    "unknown error code",
			code:    "L999",
			wantMsg: "Unknown error",
			wantCat: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestIsMatchesCode(t *testing.T) {
	err := New(CodeHostMutation).Wrap(io.EOF)

	if !stderrors.Is(err, New(CodeHostMutation)) {
		t.Error("errors.Is should match on code")
	}
	if stderrors.Is(err, New(CodeUnknownType)) {
		t.Error("errors.Is matched a different code")
	}
	if !stderrors.Is(err, io.EOF) {
		t.Error("errors.Is should see the wrapped cause")
	}
	if stderrors.Is(err, Newf(CategoryHost, "no code")) {
		t.Error("errors without a code must not match")
	}
}

func TestErrorString(t *testing.T) {
	err := New(CodeUnknownType).Wrap(io.ErrUnexpectedEOF)
	want := "L003: Unknown host type: unexpected EOF"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, CodeSnapshot) != nil {
		t.Error("FromError(nil) should be nil")
	}

	orig := New(CodeProtocol)
	if FromError(orig, CodeSnapshot) != orig {
		t.Error("FromError should return *Error unchanged")
	}

	wrapped := FromError(io.EOF, CodeSnapshot)
	if wrapped.Code != CodeSnapshot || wrapped.Wrapped != io.EOF {
		t.Errorf("FromError = %+v", wrapped)
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	out := New(CodeHookOrder).WithDetailf("expected %d hooks, got %d", 2, 1).Format()
	for _, want := range []string{"ERROR L002: Hook order changed", "expected 2 hooks, got 1", "Hint:"} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q in:\n%s", want, out)
		}
	}

	compact := New(CodeHookOrder).WithDetail("x").FormatCompact()
	if compact != "L002: Hook order changed (x)" {
		t.Errorf("FormatCompact() = %q", compact)
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText("one two three four", 9)
	want := []string{"one two", "three", "four"}
	if len(lines) != len(want) {
		t.Fatalf("wrapText = %q, want %q", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}
