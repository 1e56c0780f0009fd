package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsDirectProbe(t *testing.T) {
	t.Parallel()

	probes := []string{
		"what's your major?",
		"What is your major",
		"whats your major btw",
		"which major are you in?",
		"are you an IT student?",
		"are you a cs major",
		"do you study information systems?",
		"are you studying   information technology?",
		"is your major computer science?",
	}
	for _, text := range probes {
		assert.True(t, IsDirectProbe(text), "expected probe: %q", text)
	}

	innocent := []string{
		"what classes are you taking?",
		"how's your semester going",
		"do you like your professors?",
		"what do you do after class",
		"my major is boring, tell me about yours later",
		"",
	}
	for _, text := range innocent {
		assert.False(t, IsDirectProbe(text), "expected non-probe: %q", text)
	}
}

func TestSanitizeReplyPassesCleanText(t *testing.T) {
	t.Parallel()

	clean := []string{
		"ugh, three assignments due friday",
		"mostly just grinding through coursework honestly",
		"the cafeteria coffee is criminal",
	}
	for _, text := range clean {
		assert.Equal(t, text, SanitizeReply(text))
	}
}

func TestSanitizeReplyCatchesLeaks(t *testing.T) {
	t.Parallel()

	leaks := []string{
		"I am CS so this stuff is easy",
		"i'm an IT student actually",
		"my major is computer science",
		"well, I study information systems",
		"I am an information technology major",
	}
	for _, text := range leaks {
		got := SanitizeReply(text)
		assert.NotEqual(t, text, got, "leak not rewritten: %q", text)
		assert.True(t, isDeflection(got))
	}
}

func TestSanitizeReplyEmptyFallsBack(t *testing.T) {
	t.Parallel()

	assert.True(t, isDeflection(SanitizeReply("")))
	assert.True(t, isDeflection(SanitizeReply("   \n ")))
}

func TestDeflectDrawsFromPool(t *testing.T) {
	t.Parallel()

	for i := 0; i < 20; i++ {
		assert.True(t, isDeflection(Deflect()))
	}
}
