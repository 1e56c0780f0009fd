package game

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"humanorit/internal/app/llm"
	"humanorit/internal/app/persona"
)

// MockGenerator is a testify mock for the llm.Generator contract.
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, systemPrompt string, history []llm.Turn, message string) (string, error) {
	args := m.Called(ctx, systemPrompt, history, message)
	return args.String(0), args.Error(1)
}

// captureSender records every event emitted to the player and forwards it on
// a channel for synchronization.
type captureSender struct {
	mu     sync.Mutex
	events []Event
	ch     chan Event
}

func newCaptureSender() *captureSender {
	return &captureSender{ch: make(chan Event, 64)}
}

func (s *captureSender) SendEvent(ev Event) error {
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()

	s.ch <- ev
	return nil
}

// waitFor blocks until an event of the wanted type arrives, skipping others.
func (s *captureSender) waitFor(t *testing.T, eventType EventType, timeout time.Duration) Event {
	t.Helper()

	deadline := time.After(timeout)
	for {
		select {
		case ev := <-s.ch:
			if ev.Type == eventType {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q event", eventType)
			return Event{}
		}
	}
}

// countByType counts recorded events of one type.
func (s *captureSender) countByType(eventType EventType) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, ev := range s.events {
		if ev.Type == eventType {
			n++
		}
	}
	return n
}

func testSettings() Settings {
	return Settings{
		GameDuration:       2 * time.Second,
		MaxMessageLen:      500,
		MinMessageInterval: 50 * time.Millisecond,
		GenerateTimeout:    500 * time.Millisecond,
		ReplyDelayMin:      10 * time.Millisecond,
		ReplyDelayJitter:   10 * time.Millisecond,
		AbandonGrace:       time.Minute,
	}
}

// startTestRoom builds a room with a fixed major, runs its loop, and tears
// it down when the test finishes.
func startTestRoom(t *testing.T, gen llm.Generator, settings Settings, major persona.Major) (*Room, *captureSender) {
	t.Helper()

	sender := newCaptureSender()
	cleanup := make(chan RoomCleanupMsg, 1)

	room := NewRoom("r_test", "conn-1", sender, gen, settings, cleanup)
	room.major = major

	go room.Run()

	t.Cleanup(func() {
		room.Stop()
		<-room.Done()
	})

	return room, sender
}

// stopAndWait ends the room loop so history can be read race-free.
func stopAndWait(r *Room) {
	r.Stop()
	<-r.Done()
}

func TestNewRoomDeadline(t *testing.T) {
	t.Parallel()

	settings := DefaultSettings()
	before := time.Now()

	room := NewRoom("r_test", "conn-1", newCaptureSender(), &MockGenerator{}, settings, make(chan RoomCleanupMsg, 1))

	wantEarliest := before.Add(settings.GameDuration)
	wantLatest := time.Now().Add(settings.GameDuration)

	assert.False(t, room.EndsAt().Before(wantEarliest), "deadline too early")
	assert.False(t, room.EndsAt().After(wantLatest.Add(time.Second)), "deadline too late")
	assert.True(t, room.major.IsValid())
}

func TestMessageProducesReply(t *testing.T) {
	t.Parallel()

	gen := &MockGenerator{}
	gen.On("Generate", mock.Anything, mock.Anything, mock.Anything, "hello there").
		Return("the lab ate my whole weekend", nil).Once()

	room, sender := startTestRoom(t, gen, testSettings(), persona.MajorCS)

	room.SubmitMessage("hello there")

	typing := sender.waitFor(t, TypeTyping, time.Second)
	assert.True(t, typing.Payload.(TypingPayload).On)

	reply := sender.waitFor(t, TypeMessage, time.Second)
	payload := reply.Payload.(ChatPayload)
	assert.Equal(t, PeerName, payload.From)
	assert.Equal(t, "the lab ate my whole weekend", payload.Text)
	assert.NotZero(t, payload.Ts)

	stopAndWait(room)

	require.Len(t, room.history, 2)
	assert.Equal(t, llm.Turn{Role: llm.RoleUser, Text: "hello there"}, room.history[0])
	assert.Equal(t, llm.Turn{Role: llm.RoleModel, Text: "the lab ate my whole weekend"}, room.history[1])

	gen.AssertExpectations(t)
}

func TestGeneratorReceivesPersonaPromptAndPriorHistory(t *testing.T) {
	t.Parallel()

	gen := &MockGenerator{}
	gen.On("Generate", mock.Anything, persona.Prompt(persona.MajorIS), mock.MatchedBy(func(history []llm.Turn) bool {
		// First message: prior history must be empty, the new message
		// travels separately.
		return len(history) == 0
	}), "first message").Return("sure", nil).Once()

	room, sender := startTestRoom(t, gen, testSettings(), persona.MajorIS)

	room.SubmitMessage("first message")
	sender.waitFor(t, TypeMessage, time.Second)

	gen.AssertExpectations(t)
}

func TestRateLimitDropsRapidMessages(t *testing.T) {
	t.Parallel()

	settings := testSettings()
	settings.MinMessageInterval = time.Second

	gen := &MockGenerator{}
	gen.On("Generate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("reply", nil)

	room, sender := startTestRoom(t, gen, settings, persona.MajorCS)

	room.SubmitMessage("one")
	room.SubmitMessage("two")

	sender.waitFor(t, TypeMessage, time.Second)

	stopAndWait(room)

	require.Len(t, room.history, 2)
	assert.Equal(t, "one", room.history[0].Text)
	gen.AssertNumberOfCalls(t, "Generate", 1)
}

func TestMessageNormalization(t *testing.T) {
	t.Parallel()

	settings := testSettings()
	settings.MaxMessageLen = 5

	gen := &MockGenerator{}
	gen.On("Generate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("reply", nil)

	room, sender := startTestRoom(t, gen, settings, persona.MajorCS)

	// Whitespace-only input is dropped without touching history.
	room.SubmitMessage("   \t  ")

	// Past the debounce window. Over-long input is truncated to
	// MaxMessageLen runes, then trimmed.
	time.Sleep(settings.MinMessageInterval + 20*time.Millisecond)
	room.SubmitMessage("abcde apple pie")
	sender.waitFor(t, TypeMessage, time.Second)

	stopAndWait(room)

	require.Len(t, room.history, 2)
	assert.Equal(t, "abcde", room.history[0].Text)
}

func TestExpiredSessionIgnoresMessages(t *testing.T) {
	t.Parallel()

	settings := testSettings()
	settings.GameDuration = 30 * time.Millisecond

	gen := &MockGenerator{}
	gen.On("Generate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("reply", nil).Maybe()

	room, sender := startTestRoom(t, gen, settings, persona.MajorCS)

	time.Sleep(60 * time.Millisecond)

	room.SubmitMessage("too late")
	time.Sleep(100 * time.Millisecond)

	stopAndWait(room)

	assert.Empty(t, room.history)
	assert.Zero(t, sender.countByType(TypeMessage))
	gen.AssertNumberOfCalls(t, "Generate", 0)
}

func TestDirectProbeSkipsGenerator(t *testing.T) {
	t.Parallel()

	gen := &MockGenerator{}
	gen.On("Generate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("never", nil).Maybe()

	room, sender := startTestRoom(t, gen, testSettings(), persona.MajorIT)

	room.SubmitMessage("what's your major?")

	reply := sender.waitFor(t, TypeMessage, time.Second)
	assert.True(t, isDeflection(reply.Payload.(ChatPayload).Text))

	stopAndWait(room)

	require.Len(t, room.history, 2)
	assert.Equal(t, llm.RoleModel, room.history[1].Role)
	gen.AssertNumberOfCalls(t, "Generate", 0)
	// A probe answer is immediate: no typing indicator either.
	assert.Zero(t, sender.countByType(TypeTyping))
}

func TestLeakyReplyIsSanitized(t *testing.T) {
	t.Parallel()

	const raw = "I am CS major, guilty as charged"

	gen := &MockGenerator{}
	gen.On("Generate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(raw, nil).Once()

	room, sender := startTestRoom(t, gen, testSettings(), persona.MajorCS)

	room.SubmitMessage("so what do you do all day")

	reply := sender.waitFor(t, TypeMessage, time.Second)
	text := reply.Payload.(ChatPayload).Text

	assert.NotEqual(t, raw, text)
	assert.True(t, isDeflection(text))

	stopAndWait(room)
	assert.Equal(t, text, room.history[1].Text)
}

func TestGeneratorFailureFallsBackToDeflection(t *testing.T) {
	t.Parallel()

	gen := &MockGenerator{}
	gen.On("Generate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", assert.AnError).Once()

	room, sender := startTestRoom(t, gen, testSettings(), persona.MajorIS)

	room.SubmitMessage("tell me something")

	reply := sender.waitFor(t, TypeMessage, time.Second)
	assert.True(t, isDeflection(reply.Payload.(ChatPayload).Text))
	stopAndWait(room)
	assert.Len(t, room.history, 2)
}

func TestGeneratorTimeoutFallsBackAndLateResultIsIgnored(t *testing.T) {
	t.Parallel()

	settings := testSettings()
	settings.GenerateTimeout = 40 * time.Millisecond

	gen := &MockGenerator{}
	gen.On("Generate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		After(300*time.Millisecond).
		Return("a very late reply", nil).Once()

	room, sender := startTestRoom(t, gen, settings, persona.MajorCS)

	room.SubmitMessage("anyone home?")

	reply := sender.waitFor(t, TypeMessage, time.Second)
	assert.True(t, isDeflection(reply.Payload.(ChatPayload).Text))

	// Give the detached call time to resolve; its result must be discarded.
	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, 1, sender.countByType(TypeMessage))

	stopAndWait(room)
	require.Len(t, room.history, 2)
	assert.NotEqual(t, "a very late reply", room.history[1].Text)
}

func TestGuessResolvesRoom(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name        string
		major       persona.Major
		choice      GuessChoice
		wantTruth   GuessChoice
		wantCorrect bool
	}{
		{"target major guessed as target", persona.MajorIT, ChoiceTarget, ChoiceTarget, true},
		{"target major guessed as other", persona.MajorIT, ChoiceOther, ChoiceTarget, false},
		{"other major guessed as other", persona.MajorCS, ChoiceOther, ChoiceOther, true},
		{"other major guessed as target", persona.MajorIS, ChoiceTarget, ChoiceOther, false},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			room, sender := startTestRoom(t, &MockGenerator{}, testSettings(), tc.major)

			room.SubmitGuess(tc.choice)

			reveal := sender.waitFor(t, TypeReveal, time.Second)
			payload := reveal.Payload.(RevealPayload)
			assert.Equal(t, tc.wantTruth, payload.Truth)
			assert.Equal(t, tc.wantCorrect, payload.Correct)

			// The room is single-use: its loop must have exited.
			select {
			case <-room.Done():
			case <-time.After(time.Second):
				t.Fatal("room loop did not exit after guess")
			}
		})
	}
}

func TestSecondGuessIsNoop(t *testing.T) {
	t.Parallel()

	room, sender := startTestRoom(t, &MockGenerator{}, testSettings(), persona.MajorIT)

	room.SubmitGuess(ChoiceTarget)
	sender.waitFor(t, TypeReveal, time.Second)
	<-room.Done()

	room.SubmitGuess(ChoiceOther)
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, 1, sender.countByType(TypeReveal))
}

func TestStopCancelsPendingReply(t *testing.T) {
	t.Parallel()

	settings := testSettings()
	settings.ReplyDelayMin = 200 * time.Millisecond
	settings.ReplyDelayJitter = time.Millisecond

	gen := &MockGenerator{}
	gen.On("Generate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("queued reply", nil).Once()

	room, sender := startTestRoom(t, gen, settings, persona.MajorCS)

	room.SubmitMessage("hi")
	sender.waitFor(t, TypeTyping, time.Second)

	// Let the generation result reach the loop and arm the delivery
	// timer, then tear the room down before the timer fires.
	time.Sleep(50 * time.Millisecond)
	stopAndWait(room)

	time.Sleep(300 * time.Millisecond)
	assert.Zero(t, sender.countByType(TypeMessage))
}

func TestAbandonTimerTearsDownExpiredRoom(t *testing.T) {
	t.Parallel()

	settings := testSettings()
	settings.GameDuration = 20 * time.Millisecond
	settings.AbandonGrace = 30 * time.Millisecond

	room, _ := startTestRoom(t, &MockGenerator{}, settings, persona.MajorCS)

	select {
	case <-room.Done():
	case <-time.After(time.Second):
		t.Fatal("expired room did not abandon itself")
	}
}
