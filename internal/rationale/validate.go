package rationale

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"
)

// maxRationaleChars bounds generated text stored with a result.
const maxRationaleChars = 4000

// Evidence is untrusted document text; output that repeats an instruction
// override smuggled into it is discarded. Only the override phrasing
// matches, regulatory prose about "new instructions" does not.
var injectionPattern = regexp.MustCompile(
	`(?i)\b(ignore|disregard|forget)\s+(all\s+)?(of\s+)?(the\s+|your\s+)?(previous|prior|above|earlier)\s+instructions\b`,
)

var (
	errEmptyOutput    = errors.New("empty output")
	errOutputTooLong  = errors.New("output too long")
	errInjectedOutput = errors.New("output echoes embedded instructions")
)

// validateOutput rejects generated text that must not become a rationale.
func validateOutput(text string) error {
	text = strings.TrimSpace(text)
	switch {
	case text == "":
		return errEmptyOutput
	case utf8.RuneCountInString(text) > maxRationaleChars:
		return errOutputTooLong
	case injectionPattern.MatchString(text):
		return errInjectedOutput
	}
	return nil
}
