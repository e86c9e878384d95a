package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// PromptYesNo asks a yes/no question on the terminal and blocks until the
// user gives a usable answer.
func PromptYesNo(question string) bool {
	return PromptYesNoWithReader(question, os.Stdin, os.Stdout)
}

// PromptYesNoWithReader is the injectable form of PromptYesNo. Unrecognized
// answers re-ask the question; end of input counts as no, so a piped-in
// empty stdin never confirms anything destructive.
func PromptYesNoWithReader(question string, in io.Reader, out io.Writer) bool {
	lines := bufio.NewScanner(in)
	for {
		_, _ = fmt.Fprintf(out, "%s (y/n): ", question)
		if !lines.Scan() {
			return false
		}
		answer, ok := parseYesNo(lines.Text())
		if ok {
			return answer
		}
	}
}

func parseYesNo(raw string) (answer, ok bool) {
	switch strings.TrimSpace(strings.ToLower(raw)) {
	case "y", "yes":
		return true, true
	case "n", "no":
		return false, true
	default:
		return false, false
	}
}
