package oracle

import (
	"fmt"
	"strings"

	"github.com/JaimeStill/emoclassify/pkg/formatting"
)

// Verdict is the oracle's answer for one chunk.
type Verdict string

// Verdict values.
const (
	Yes    Verdict = "yes"
	No     Verdict = "no"
	Unsure Verdict = "unsure"
)

var verdicts = []Verdict{Yes, No, Unsure}

// Choices returns the labels the oracle is constrained to.
func Choices() []string {
	out := make([]string, len(verdicts))
	for i, v := range verdicts {
		out[i] = string(v)
	}
	return out
}

// ParseVerdict maps a label to a Verdict, ignoring case and surrounding whitespace.
func ParseVerdict(s string) (Verdict, error) {
	v := Verdict(strings.ToLower(strings.TrimSpace(s)))
	switch v {
	case Yes, No, Unsure:
		return v, nil
	default:
		return "", fmt.Errorf("%w: unexpected label %q", ErrParseFailure, s)
	}
}

type verdictResponse struct {
	Response string `json:"response"`
}

// ParseResponse interprets oracle output. Structured JSON of the form
// {"response": "<label>"} is expected; a bare label is also accepted.
func ParseResponse(content string) (Verdict, error) {
	resp, err := formatting.Parse[verdictResponse](content)
	if err == nil {
		return ParseVerdict(resp.Response)
	}

	bare := strings.Trim(strings.TrimSpace(content), `"'.`)
	if v, verr := ParseVerdict(bare); verr == nil {
		return v, nil
	}

	return "", fmt.Errorf("%w: %w", ErrParseFailure, err)
}
