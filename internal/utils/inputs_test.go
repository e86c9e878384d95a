package utils

import (
	"bytes"
	"strings"
	"testing"
)

func TestPromptYesNoAcceptedAnswers(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"yes\n", true},
		{"Y\n", true},
		{"YES\n", true},
		{"  y  \n", true},
		{"n\n", false},
		{"no\n", false},
		{"N\n", false},
	}

	for _, tc := range cases {
		var out bytes.Buffer
		got := PromptYesNoWithReader("Delete task?", strings.NewReader(tc.input), &out)
		if got != tc.want {
			t.Errorf("input %q: got %v, want %v", tc.input, got, tc.want)
		}
		if !strings.Contains(out.String(), "Delete task? (y/n):") {
			t.Errorf("input %q: prompt not written", tc.input)
		}
	}
}

func TestPromptYesNoRepromptsOnInvalidInput(t *testing.T) {
	var out bytes.Buffer
	got := PromptYesNoWithReader("Sure?", strings.NewReader("maybe\nok\ny\n"), &out)
	if !got {
		t.Error("expected eventual yes accepted")
	}
	if strings.Count(out.String(), "(y/n):") != 3 {
		t.Errorf("expected 3 prompts, output:\n%s", out.String())
	}
}

func TestPromptYesNoEOFIsNo(t *testing.T) {
	var out bytes.Buffer
	if PromptYesNoWithReader("Sure?", strings.NewReader(""), &out) {
		t.Error("EOF must count as no")
	}
}
