// Package conversation turns typed or spoken lines into timer intents and
// renders the timer as plain text lines.
package conversation

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/hammamikhairi/pomo/internal/domain"
	"github.com/hammamikhairi/pomo/internal/logger"
)

// Compile-time interface check.
var _ domain.IntentParser = (*KeywordParser)(nil)

// KeywordParser matches user input to intents using keywords and simple patterns.
type KeywordParser struct {
	log      *logger.Logger
	patterns []patternRule
	duration *regexp.Regexp
}

type patternRule struct {
	regex  *regexp.Regexp
	intent domain.IntentType
}

// NewKeywordParser creates a keyword-based intent parser.
func NewKeywordParser(log *logger.Logger) *KeywordParser {
	p := &KeywordParser{log: log}
	p.patterns = []patternRule{
		{regexp.MustCompile(`(?i)^(start|go|begin|resume|continue|s)$`), domain.IntentStart},
		{regexp.MustCompile(`(?i)^(start|resume) (the )?timer$`), domain.IntentStart},
		{regexp.MustCompile(`(?i)^(pause|hold|wait|brb|p)$`), domain.IntentPause},
		{regexp.MustCompile(`(?i)^pause (the )?timer$`), domain.IntentPause},
		{regexp.MustCompile(`(?i)^(reset|restart|clear|stop|r)$`), domain.IntentReset},
		{regexp.MustCompile(`(?i)^(reset|stop) (the )?timer$`), domain.IntentReset},
		{regexp.MustCompile(`(?i)^(status|where|info|time left|how long)$`), domain.IntentStatus},
		{regexp.MustCompile(`(?i)^(quit|exit|bye|q)$`), domain.IntentQuit},
		{regexp.MustCompile(`(?i)^(help|h|\?)$`), domain.IntentHelp},
		{regexp.MustCompile(`(?i)^(dismiss|ok|okay|got it|thanks)$`), domain.IntentDismiss},
	}
	// "25", "set 25", "set timer to 25 minutes", "25 min".
	p.duration = regexp.MustCompile(`(?i)^(?:set(?: the)?(?: timer)?(?: to| for)? )?(-?\d+(?:[.,]\d+)?)(?: ?(?:m|mins?|minutes?))?$`)
	return p
}

// Parse converts user input into an intent. Fractional or non-positive
// durations fail with domain.ErrInvalidDuration.
func (p *KeywordParser) Parse(ctx context.Context, input string) (*domain.Intent, error) {
	trimmed := normalize(input)
	if trimmed == "" {
		return &domain.Intent{Type: domain.IntentUnknown}, nil
	}

	p.log.Debug("parsing input: %q", trimmed)

	for _, rule := range p.patterns {
		if rule.regex.MatchString(trimmed) {
			p.log.Debug("matched intent: %s", rule.intent)
			return &domain.Intent{Type: rule.intent}, nil
		}
	}

	if m := p.duration.FindStringSubmatch(trimmed); m != nil {
		minutes, err := strconv.Atoi(m[1])
		if err != nil || minutes <= 0 {
			return nil, fmt.Errorf("%q: %w", m[1], domain.ErrInvalidDuration)
		}
		p.log.Debug("matched intent: %s (%d min)", domain.IntentSetDuration, minutes)
		return &domain.Intent{Type: domain.IntentSetDuration, Minutes: minutes}, nil
	}

	p.log.Debug("no match, returning unknown intent")
	return &domain.Intent{Type: domain.IntentUnknown, Payload: trimmed}, nil
}

// normalize trims whitespace, collapses inner runs of spaces and drops the
// trailing punctuation speech transcripts tend to carry.
func normalize(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "?" {
		return s
	}
	return strings.TrimRight(s, ".!")
}

// HelpLines lists the plain-mode commands.
func HelpLines() []string {
	return []string{
		"  start / go        Start or resume the timer",
		"  pause / p         Pause the timer",
		"  reset / r         Stop and restore the full duration",
		"  set 25 / 25       Set the duration in whole minutes",
		"  status            Show the timer",
		"  ok / dismiss      Acknowledge the alert",
		"  help              Show this message",
		"  quit / exit       Exit",
	}
}
