package generation

import (
	"fmt"
	"strings"
)

// FallbackResponse is returned when nothing usable survives cleanup.
const FallbackResponse = "I need more context to provide a helpful answer."

// Repetition selects how a line that was already kept earlier is handled.
type Repetition string

const (
	// RepetitionBefore stops before emitting the repeated line.
	RepetitionBefore Repetition = "before"
	// RepetitionAfter emits the repeated line once, then stops.
	RepetitionAfter Repetition = "after"
	// RepetitionOff only drops consecutive duplicates.
	RepetitionOff Repetition = "off"
)

// ParseRepetition maps a config value to a Repetition. Empty means before.
func ParseRepetition(s string) (Repetition, error) {
	switch r := Repetition(strings.ToLower(strings.TrimSpace(s))); r {
	case "":
		return RepetitionBefore, nil
	case RepetitionBefore, RepetitionAfter, RepetitionOff:
		return r, nil
	default:
		return "", fmt.Errorf("unknown repetition mode %q (want before, after or off)", s)
	}
}

// Cleaner turns raw engine output into user-presentable text.
// The zero value uses RepetitionBefore.
type Cleaner struct {
	Repetition Repetition
}

// Clean cleans raw with the default Cleaner.
func Clean(raw, prefix string) string { return Cleaner{}.Clean(raw, prefix) }

// Clean strips the echoed prefix, expands literal \n escapes, drops blank
// and consecutive duplicate lines, truncates at the first repeated line and
// makes sure the answer ends with punctuation. It never returns "".
func (c Cleaner) Clean(raw, prefix string) string {
	text := raw
	if prefix != "" && strings.HasPrefix(text, prefix) {
		text = text[len(prefix):]
	}
	text = strings.ReplaceAll(text, `\n`, "\n")
	text = strings.TrimSpace(text)

	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	seen := make(map[string]struct{}, len(lines))
	last := ""
	for _, line := range lines {
		t := strings.TrimSpace(line)
		if t == "" || (len(kept) > 0 && t == last) {
			continue
		}
		_, repeated := seen[t]
		if repeated && c.mode() == RepetitionBefore {
			break
		}
		kept = append(kept, strings.TrimRight(line, " \t\r"))
		last = t
		if repeated && c.mode() == RepetitionAfter {
			break
		}
		seen[t] = struct{}{}
	}

	out := strings.TrimSpace(strings.Join(kept, "\n"))
	if out == "" {
		return FallbackResponse
	}
	if strings.IndexByte(".!?:", out[len(out)-1]) < 0 {
		out += "."
	}
	return out
}

func (c Cleaner) mode() Repetition {
	if c.Repetition == "" {
		return RepetitionBefore
	}
	return c.Repetition
}
