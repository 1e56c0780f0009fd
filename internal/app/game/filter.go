/*
Package game contains the core logic for the guess-their-major chat game.

This file implements the anti-reveal filter. Two independent pattern sets are
compiled from a declarative synonym table: a direct-probe detector that blocks
major questions before they ever reach the model, and a leak detector that
sanitizes model output stating the major outright. Defense in depth: the model
is prompted not to reveal its major, but its output is not fully controllable.
*/
package game

import (
	"math/rand"
	"regexp"
	"strings"
)

// majorSynonyms lists, per major, every phrasing a player or the model might
// use to name it. New majors or localized synonyms are added here, not in the
// patterns below.
var majorSynonyms = [][]string{
	{"it", "information technology"},
	{"is", "information systems"},
	{"cs", "computer science"},
}

// deflections is the fixed pool of canned non-revealing replies. One is
// substituted, chosen uniformly at random, wherever a reply would be risky
// or generation failed.
var deflections = []string{
	"Haha nice try, let's keep it a mystery. What classes are you taking?",
	"I'll keep that secret. Tell me about your projects instead!",
	"Guessing game later, what topics do you enjoy the most?",
	"Not saying! What's your favorite course this term?",
}

// apologyReply is broadcast when reply orchestration fails unexpectedly.
const apologyReply = "(connection glitch, sorry about that)"

var (
	probePattern *regexp.Regexp
	leakPattern  *regexp.Regexp
)

func init() {
	// Alternations built from the synonym table. Short abbreviations only
	// (for "I'm an X student" style leaks) and the full set with long forms.
	var short, all []string
	for _, syns := range majorSynonyms {
		for i, s := range syns {
			quoted := strings.ReplaceAll(regexp.QuoteMeta(s), " ", `\s+`)
			all = append(all, quoted)
			if i == 0 {
				short = append(short, quoted)
			}
		}
	}
	shortAlt := strings.Join(short, "|")
	allAlt := strings.Join(all, "|")

	probePattern = regexp.MustCompile(`(?i)` + strings.Join([]string{
		`what'?s\s+your\s+major`,
		`your\s+major`,
		`which\s+major`,
		`are\s+you\s+(?:an?\s+)?(?:` + allAlt + `)\b`,
		`(?:do\s+you\s+study|are\s+you\s+studying)\s+(?:` + allAlt + `)`,
	}, "|"))

	leakPattern = regexp.MustCompile(`(?i)` + strings.Join([]string{
		`(?:i\s*am|i'?m|i\s*study|my\s+major\s+is|i\s*do)\s+(?:an?\s+)?(?:` + allAlt + `)\b`,
		`\bi\s*(?:am|'?m)\s*(?:an?\s+)?(?:` + shortAlt + `)\s+student\b`,
	}, "|"))
}

// IsDirectProbe reports whether the user text directly asks about the
// assigned major. Matching text must never reach the generation provider.
func IsDirectProbe(text string) bool {
	return probePattern.MatchString(text)
}

// Deflect returns one canned deflection chosen uniformly at random.
func Deflect() string {
	return deflections[rand.Intn(len(deflections))]
}

// SanitizeReply passes a generated reply through the leak detector. An empty
// reply or one that states the major is replaced with a deflection.
func SanitizeReply(reply string) string {
	if strings.TrimSpace(reply) == "" {
		return Deflect()
	}
	if leakPattern.MatchString(reply) {
		return Deflect()
	}
	return reply
}

// isDeflection reports whether text is a member of the deflection pool.
func isDeflection(text string) bool {
	for _, d := range deflections {
		if text == d {
			return true
		}
	}
	return false
}
