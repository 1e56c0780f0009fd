/*
Package game contains the core logic for the guess-their-major chat game.

This file defines the Room struct, one ephemeral 1:1 session between a human
connection and an AI persona. All room state is owned by a single event loop
goroutine: message ingestion, rate limiting, reply orchestration, delayed
delivery, and guess resolution all happen inside Run, so no locking is needed
on the history or the pending-reply queue.
*/
package game

import (
	"math/rand"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"humanorit/internal/app/llm"
	"humanorit/internal/app/persona"
	"humanorit/internal/pkg/logx"
)

const (
	inboxBuffer   = 64
	repliesBuffer = 8
)

// EventSender delivers outbound events to the room's player. The WebSocket
// Client implements it; tests substitute a capture fake.
type EventSender interface {
	SendEvent(Event) error
}

// RoomCleanupMsg notifies the Manager that a room's loop has finished.
type RoomCleanupMsg struct {
	RoomID string
}

type inboundKind int

const (
	kindMessage inboundKind = iota
	kindGuess
)

// inboundEvent is one player action queued into the room loop. Events from
// one connection are processed in submission order.
type inboundEvent struct {
	kind   inboundKind
	text   string
	choice GuessChoice
}

// Room is a single active game session.
type Room struct {
	// ID is the unique room identifier.
	ID string

	// the connection id of the owning player.
	playerID string

	// outbound channel to the player.
	player EventSender

	// the major the AI persona impersonates, fixed at creation.
	major persona.Major

	// absolute deadline of the chat window, immutable after creation.
	endsAt time.Time

	// append-only conversation history, insertion order = conversation order.
	history []llm.Turn

	settings  Settings
	generator llm.Generator

	// msgLimiter debounces the player's messages. One token per
	// MinMessageInterval; Allow consumes a token only for accepted
	// messages, so rejected spam does not push the window.
	msgLimiter *rate.Limiter

	// inbox carries player actions into the loop.
	inbox chan inboundEvent

	// replies carries finished generation results back into the loop.
	replies chan string

	// sanitized replies waiting for their simulated typing delay.
	pendingReplies []string

	// deliverTimer is the cancellable scheduled delivery task. It is
	// stopped when the loop exits so a torn-down room never broadcasts.
	deliverTimer *time.Timer

	// abandonTimer tears down an unresolved room after the deadline plus
	// a grace period.
	abandonTimer *time.Timer

	// used to signal the Room to stop its Run loop immediately.
	stopChan chan struct{}

	// closed when the Run loop has exited; submissions and in-flight
	// generation results are discarded afterwards.
	done chan struct{}

	// a write-only channel used to notify the Manager to clean up this room.
	cleanupChan chan<- RoomCleanupMsg

	// structured logger with room context.
	logger zerolog.Logger
}

// NewRoom creates a Room for one player with a uniformly random major and a
// deadline of now + GameDuration.
func NewRoom(roomID, playerID string, player EventSender, generator llm.Generator, settings Settings, cleanupChan chan<- RoomCleanupMsg) *Room {
	major := persona.Random()

	roomLogger := logx.Logger().With().
		Str("room_id", roomID).
		Str("player_id", playerID).
		Logger()

	endsAt := time.Now().Add(settings.GameDuration)

	return &Room{
		ID:           roomID,
		playerID:     playerID,
		player:       player,
		major:        major,
		endsAt:       endsAt,
		settings:     settings,
		generator:    generator,
		msgLimiter:   rate.NewLimiter(rate.Every(settings.MinMessageInterval), 1),
		inbox:        make(chan inboundEvent, inboxBuffer),
		replies:      make(chan string, repliesBuffer),
		stopChan:     make(chan struct{}),
		done:         make(chan struct{}),
		abandonTimer: time.NewTimer(time.Until(endsAt) + settings.AbandonGrace),
		cleanupChan:  cleanupChan,
		logger:       roomLogger,
	}
}

// EndsAt returns the room's absolute deadline.
func (r *Room) EndsAt() time.Time {
	return r.endsAt
}

// Done is closed once the room's loop has exited.
func (r *Room) Done() <-chan struct{} {
	return r.done
}

// SubmitMessage queues a raw user message for handling. It is a no-op once
// the room is destroyed.
func (r *Room) SubmitMessage(text string) {
	r.enqueue(inboundEvent{kind: kindMessage, text: text})
}

// SubmitGuess queues the player's final guess. It is a no-op once the room is
// destroyed, which makes a second guess on the same room harmless.
func (r *Room) SubmitGuess(choice GuessChoice) {
	r.enqueue(inboundEvent{kind: kindGuess, choice: choice})
}

func (r *Room) enqueue(ev inboundEvent) {
	select {
	case r.inbox <- ev:
	case <-r.done:
	}
}

// Stop sends a signal to immediately terminate the Room's Run loop. Used on
// player disconnect and manager shutdown.
func (r *Room) Stop() {
	select {
	case <-r.stopChan:
	default:
		close(r.stopChan)
	}
}

// Run is the room's event loop. It exits on guess resolution (RESOLVED), on
// Stop (ABANDONED), or when the abandon timer fires on an expired unresolved
// session. The loop stops pending delivery timers on the way out so nothing
// is broadcast into a torn-down room.
func (r *Room) Run() {
	defer func() {
		if r.deliverTimer != nil {
			r.deliverTimer.Stop()
		}
		r.abandonTimer.Stop()

		// Notify the Manager before closing done: Shutdown waits on done
		// and then closes the cleanup channel.
		select {
		case r.cleanupChan <- RoomCleanupMsg{RoomID: r.ID}:
		default:
			r.logger.Warn().Msg("Manager cleanup channel blocked. Skipping cleanup notification.")
		}

		close(r.done)

		r.logger.Info().Int("turns", len(r.history)).Msg("Room loop finished.")
	}()

	// nil while no delivery is scheduled; select ignores a nil channel.
	var deliverC <-chan time.Time

	for {
		select {
		case ev := <-r.inbox:
			if resolved := r.dispatch(ev); resolved {
				return
			}

		case reply := <-r.replies:
			r.pendingReplies = append(r.pendingReplies, reply)
			if deliverC == nil {
				r.deliverTimer = time.NewTimer(r.replyDelay())
				deliverC = r.deliverTimer.C
			}

		case <-deliverC:
			r.deliverReply()
			if len(r.pendingReplies) > 0 {
				r.deliverTimer = time.NewTimer(r.replyDelay())
				deliverC = r.deliverTimer.C
			} else {
				r.deliverTimer = nil
				deliverC = nil
			}

		case <-r.abandonTimer.C:
			r.logger.Info().Msg("Unresolved room expired past grace period. Abandoning.")
			return

		case <-r.stopChan:
			r.logger.Info().Msg("Room stop requested. Abandoning.")
			return
		}
	}
}

// dispatch handles one player action. An unexpected panic during reply
// orchestration is converted into a generic apologetic message so a single
// room's failure never takes the process down.
func (r *Room) dispatch(ev inboundEvent) (resolved bool) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error().Interface("panic", rec).Msg("Recovered panic during event handling.")
			r.emit(NewEvent(TypeTyping, TypingPayload{From: PeerName, On: false}))
			r.emit(NewEvent(TypeMessage, ChatPayload{From: PeerName, Text: apologyReply, Ts: time.Now().UnixMilli()}))
		}
	}()

	switch ev.kind {
	case kindMessage:
		r.handleMessage(ev.text)
	case kindGuess:
		r.resolveGuess(ev.choice)
		return true
	}
	return false
}

// handleMessage validates, records, and answers one user message. Rejections
// are silent: no event, no history mutation.
func (r *Room) handleMessage(raw string) {
	if !r.msgLimiter.Allow() {
		r.logger.Debug().Msg("Message dropped: below minimum interval.")
		return
	}

	if time.Now().After(r.endsAt) {
		r.logger.Debug().Msg("Message dropped: session expired.")
		return
	}

	clean := normalizeMessage(raw, r.settings.MaxMessageLen)
	if clean == "" {
		return
	}

	// Snapshot the history before appending so the generation goroutine
	// sees prior turns only; the new message travels separately.
	past := make([]llm.Turn, len(r.history))
	copy(past, r.history)

	r.history = append(r.history, llm.Turn{Role: llm.RoleUser, Text: clean})

	// Direct major questions never reach the model: deflect immediately.
	if IsDirectProbe(clean) {
		reply := Deflect()
		r.history = append(r.history, llm.Turn{Role: llm.RoleModel, Text: reply})
		r.emit(NewEvent(TypeMessage, ChatPayload{From: PeerName, Text: reply, Ts: time.Now().UnixMilli()}))
		return
	}

	r.emit(NewEvent(TypeTyping, TypingPayload{From: PeerName, On: true}))

	go r.generateReply(past, clean)
}

// generateReply runs off the room loop: it calls the provider under the
// configured timeout, substitutes a deflection on failure, sanitizes the
// result, and posts it back to the loop for delayed delivery.
func (r *Room) generateReply(history []llm.Turn, message string) {
	reply, err := generateWithTimeout(r.generator, persona.Prompt(r.major), history, message, r.settings.GenerateTimeout)
	if err != nil {
		r.logger.Warn().Err(err).Msg("Generation failed. Substituting deflection.")
		reply = Deflect()
	}
	reply = SanitizeReply(reply)

	select {
	case r.replies <- reply:
	case <-r.done:
		// Room destroyed while generating; the reply is discarded.
	}
}

// deliverReply appends the model turn and broadcasts it. The append happens
// at delivery time, matching the order the player observes.
func (r *Room) deliverReply() {
	reply := r.pendingReplies[0]
	r.pendingReplies = r.pendingReplies[1:]

	r.history = append(r.history, llm.Turn{Role: llm.RoleModel, Text: reply})
	r.emit(NewEvent(TypeTyping, TypingPayload{From: PeerName, On: false}))
	r.emit(NewEvent(TypeMessage, ChatPayload{From: PeerName, Text: reply, Ts: time.Now().UnixMilli()}))
}

// resolveGuess computes the ground truth, reveals it, and ends the game.
func (r *Room) resolveGuess(choice GuessChoice) {
	truth := ChoiceOther
	if r.major == persona.Target {
		truth = ChoiceTarget
	}

	correct := choice == truth

	r.logger.Info().
		Str("choice", string(choice)).
		Str("truth", string(truth)).
		Bool("correct", correct).
		Msg("Guess resolved.")

	r.emit(NewEvent(TypeReveal, RevealPayload{Truth: truth, Correct: correct}))
}

func (r *Room) replyDelay() time.Duration {
	d := r.settings.ReplyDelayMin
	if r.settings.ReplyDelayJitter > 0 {
		d += time.Duration(rand.Int63n(int64(r.settings.ReplyDelayJitter)))
	}
	return d
}

func (r *Room) emit(ev Event) {
	if err := r.player.SendEvent(ev); err != nil {
		r.logger.Warn().Err(err).Str("event_type", string(ev.Type)).Msg("Failed to deliver event to player.")
	}
}

// normalizeMessage truncates to maxLen runes and trims whitespace. An empty
// result means the message should be silently dropped.
func normalizeMessage(raw string, maxLen int) string {
	runes := []rune(raw)
	if len(runes) > maxLen {
		runes = runes[:maxLen]
	}
	return strings.TrimSpace(string(runes))
}
