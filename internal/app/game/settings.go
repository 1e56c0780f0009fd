package game

import "time"

// Settings bundles the game's timing and size tunables so tests can shrink
// them without touching process-wide state.
type Settings struct {
	// GameDuration is the wall-clock chat window per room.
	GameDuration time.Duration

	// MaxMessageLen is the maximum accepted user message length in runes.
	MaxMessageLen int

	// MinMessageInterval is the debounce between two accepted messages
	// from the same connection.
	MinMessageInterval time.Duration

	// GenerateTimeout bounds one text-generation call.
	GenerateTimeout time.Duration

	// ReplyDelayMin and ReplyDelayJitter shape the simulated typing
	// latency: delay = min + rand[0, jitter).
	ReplyDelayMin    time.Duration
	ReplyDelayJitter time.Duration

	// AbandonGrace is how long an unresolved room survives past its
	// deadline before it tears itself down.
	AbandonGrace time.Duration
}

// DefaultSettings returns the production tunables.
func DefaultSettings() Settings {
	return Settings{
		GameDuration:       120 * time.Second,
		MaxMessageLen:      500,
		MinMessageInterval: 350 * time.Millisecond,
		GenerateTimeout:    12 * time.Second,
		ReplyDelayMin:      300 * time.Millisecond,
		ReplyDelayJitter:   600 * time.Millisecond,
		AbandonGrace:       5 * time.Minute,
	}
}
