package errors

import (
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
			name:    "known route error",
			code:    "E200",
			wantMsg: "route not found",
			wantCat: CategoryRoute,
		},
		{
			name:    "transform error",
			code:    "E220",
			wantMsg: "transform failed",
			wantCat: CategoryTransform,
		},
		{
			name:    "handler timeout",
			code:    "E241",
			wantMsg: "handler timed out",
			wantCat: CategoryHandler,
		},
		{
			name:    "unknown error code",
			code:    "E999",
			wantMsg: "unknown error",
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

func TestNewf(t *testing.T) {
	err := Newf(CategoryConfig, "file %q not found", "vango.json")
	if err.Message != `file "vango.json" not found` {
		t.Errorf("Message = %q, want %q", err.Message, `file "vango.json" not found`)
	}
	if err.Category != CategoryConfig {
		t.Errorf("Category = %q, want %q", err.Category, CategoryConfig)
	}
}

func TestDevError_Error(t *testing.T) {
	err := New("E200")
	got := err.Error()
	want := "E200: route not found"
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	err2 := &DevError{Message: "test error"}
	if err2.Error() != "test error" {
		t.Errorf("Error() = %q, want %q", err2.Error(), "test error")
	}
}

func TestDevError_WithLocation(t *testing.T) {
	err := New("E220").WithLocation("/pages/index.jsx", 6, 12)

	if err.Location == nil {
		t.Fatal("Location is nil")
	}
	if err.Location.File != "/pages/index.jsx" {
		t.Errorf("Location.File = %q, want %q", err.Location.File, "/pages/index.jsx")
	}
	if err.Location.Line != 6 || err.Location.Column != 12 {
		t.Errorf("Location = %+v, want line 6 col 12", err.Location)
	}
}

func TestDevError_WithSuggestion(t *testing.T) {
	err := New("E200").WithSuggestion("add a page.tsx file")
	if err.Suggestion != "add a page.tsx file" {
		t.Errorf("Suggestion = %q", err.Suggestion)
	}
}

func TestDevError_WithDetail(t *testing.T) {
	err := New("E200").WithDetail("custom detail")
	if err.Detail != "custom detail" {
		t.Errorf("Detail = %q", err.Detail)
	}
}

func TestDevError_Wrap(t *testing.T) {
	inner := New("E220")
	outer := New("E200").Wrap(inner)

	if outer.Wrapped != inner {
		t.Error("Wrapped error mismatch")
	}
	if outer.Unwrap() != inner {
		t.Error("Unwrap() should return wrapped error")
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, "E200") != nil {
		t.Error("FromError(nil, ...) should return nil")
	}

	de := New("E200")
	if FromError(de, "E220") != de {
		t.Error("FromError should return DevError as-is")
	}

	stdErr := &testError{msg: "boom"}
	result := FromError(stdErr, "E200")
	if result.Wrapped != stdErr {
		t.Error("standard error should be wrapped")
	}
}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }

func TestLocation_String(t *testing.T) {
	tests := []struct {
		name string
		loc  *Location
		want string
	}{
		{"nil location", nil, ""},
		{"with column", &Location{File: "index.jsx", Line: 10, Column: 5}, "index.jsx:10:5"},
		{"without column", &Location{File: "index.jsx", Line: 10}, "index.jsx:10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.loc.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	err := New("E200").
		WithLocation("/app/users/[id]/page.tsx", 5, 12).
		WithSuggestion("add a page.tsx file or check the dynamic segment name").
		WithContext([]string{"export default function Page() {", "  return null", "}"})

	formatted := err.Format()

	if !strings.Contains(formatted, "E200") {
		t.Error("Format should contain error code")
	}
	if !strings.Contains(formatted, "route not found") {
		t.Error("Format should contain error message")
	}
	if !strings.Contains(formatted, "/app/users/[id]/page.tsx") {
		t.Error("Format should contain file path")
	}
	if !strings.Contains(formatted, "Hint:") {
		t.Error("Format should contain hint")
	}
}

func TestFormatCompact(t *testing.T) {
	err := New("E200").WithLocation("index.jsx", 10, 5)
	compact := err.FormatCompact()

	want := "index.jsx:10:5: E200: route not found"
	if compact != want {
		t.Errorf("FormatCompact() = %q, want %q", compact, want)
	}
}

func TestFormatJSON(t *testing.T) {
	err := New("E241").WithLocation("index.jsx", 10, 5)
	json := err.FormatJSON()

	if !strings.Contains(json, `"code":"E241"`) {
		t.Error("JSON should contain code")
	}
	if !strings.Contains(json, `"category":"handler"`) {
		t.Error("JSON should contain category")
	}
	if !strings.Contains(json, `"error":"handler timed out"`) {
		t.Error("JSON should contain error message")
	}
	if !strings.Contains(json, `"location":`) {
		t.Error("JSON should contain location")
	}
}

func TestGetTemplate(t *testing.T) {
	template, ok := GetTemplate("E200")
	if !ok {
		t.Error("E200 should exist")
	}
	if template.Message != "route not found" {
		t.Error("template message mismatch")
	}

	if _, ok := GetTemplate("E999"); ok {
		t.Error("E999 should not exist")
	}
}

func TestWrapText(t *testing.T) {
	got := wrapText("short text", 100)
	if len(got) != 1 || got[0] != "short text" {
		t.Errorf("wrapText short text: got %v", got)
	}

	got = wrapText("this is a longer text that should be wrapped", 20)
	if len(got) != 3 {
		t.Errorf("wrapText long text: expected 3 lines, got %d: %v", len(got), got)
	}

	if got := wrapText("", 10); len(got) != 0 {
		t.Errorf("wrapText empty: expected empty, got %v", got)
	}
}

func TestColorFunctions(t *testing.T) {
	EnableColors()
	if !strings.Contains(red("test"), "\033[31m") {
		t.Error("red should contain ANSI code when colors enabled")
	}

	DisableColors()
	if strings.Contains(red("test"), "\033[") {
		t.Error("red should not contain ANSI code when colors disabled")
	}
	EnableColors()
}
