package speech

import (
	"regexp"
	"strings"
)

// envAnnotation matches whisper environmental annotations like
// "(keyboard clicking)", "[BLANK_AUDIO]" or "[Music]".
var envAnnotation = regexp.MustCompile(`[\(\[][a-zA-Z][a-zA-Z_\s]*[\)\]]`)

// timestampPrefix matches "[00:00:00.000 --> 00:00:02.000]".
var timestampPrefix = regexp.MustCompile(`^\[[0-9:.\s\->]+\]\s*`)

// hallucinations are phrases whisper produces from silence.
var hallucinations = map[string]bool{
	"...":                     true,
	"you":                     true,
	"thank you.":              true,
	"thank you":               true,
	"thanks for watching!":    true,
	"thank you for watching.": true,
	"bye.":                    true,
	"the end.":                true,
}

// cleanTranscription collapses whitespace and drops whisper artifacts:
// timestamps, bracketed annotations and known silence hallucinations.
func cleanTranscription(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = timestampPrefix.ReplaceAllString(s, "")
	s = envAnnotation.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), " ")

	if hallucinations[strings.ToLower(s)] {
		return ""
	}
	return s
}

// isPunctuation reports whether s holds nothing but spaces and punctuation.
func isPunctuation(s string) bool {
	for _, r := range s {
		if r != ' ' && r != ',' && r != '.' && r != '!' && r != '?' {
			return false
		}
	}
	return true
}
