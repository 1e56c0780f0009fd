/*
Package game contains the core logic for the guess-their-major chat game.

This file defines the Manager struct, the session store for all active game
rooms. It creates, tracks, retrieves, and cleans up Room instances, and is
injected into the transport layer so the game core can be unit-tested without
a live connection.
*/
package game

import (
	"sync"

	"github.com/rs/zerolog"

	"humanorit/internal/app/llm"
	"humanorit/internal/pkg/errs"
	"humanorit/internal/pkg/logx"
	"humanorit/internal/pkg/randx"
)

const cleanupBuffer = 16

// roomCodeAttempts bounds collision retries when generating a room id.
const roomCodeAttempts = 3

// Manager coordinates all active game rooms.
type Manager struct {
	// rooms stores all Room instances, keyed by room id.
	rooms map[string]*Room

	// mu protects concurrent access to the rooms map.
	mu sync.RWMutex

	// the channel used by Rooms to notify the Manager to remove them.
	cleanup chan RoomCleanupMsg

	// wg waits for the cleanup goroutine during shutdown.
	wg sync.WaitGroup

	generator llm.Generator
	settings  Settings

	// structured logger with Manager context.
	logger zerolog.Logger
}

// NewManager constructs a Manager backed by the given text generator.
func NewManager(generator llm.Generator, settings Settings) *Manager {
	m := &Manager{
		rooms:     make(map[string]*Room),
		cleanup:   make(chan RoomCleanupMsg, cleanupBuffer),
		generator: generator,
		settings:  settings,
		logger:    logx.Logger().With().Str("component", "Manager").Logger(),
	}

	m.wg.Add(1)
	go m.runCleanupLoop()

	return m
}

func (m *Manager) runCleanupLoop() {
	defer m.wg.Done()

	for msg := range m.cleanup {
		m.deleteRoom(msg.RoomID)
	}
}

func (m *Manager) deleteRoom(roomID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rooms[roomID]; ok {
		delete(m.rooms, roomID)
		m.logger.Info().Str("room_id", roomID).Msg("Room removed.")
	}
}

// CreateRoom starts a new game session for the player: it generates a unique
// room id, assigns a random major, starts the room loop, and emits the start
// event carrying the deadline in epoch milliseconds.
func (m *Manager) CreateRoom(playerID string, player EventSender) (*Room, *errs.CustomError) {
	roomID, err := m.newRoomID()
	if err != nil {
		return nil, err
	}

	room := NewRoom(roomID, playerID, player, m.generator, m.settings, m.cleanup)

	m.mu.Lock()
	m.rooms[roomID] = room
	m.mu.Unlock()

	go room.Run()

	m.logger.Info().
		Str("room_id", roomID).
		Str("player_id", playerID).
		Time("ends_at", room.endsAt).
		Msg("New room created and started.")

	room.emit(NewEvent(TypeStart, StartPayload{Room: roomID, EndsAt: room.endsAt.UnixMilli()}))

	return room, nil
}

func (m *Manager) newRoomID() (string, *errs.CustomError) {
	for i := 0; i < roomCodeAttempts; i++ {
		code, err := randx.RoomCode()
		if err != nil {
			m.logger.Error().Err(err).Msg("Room code generation failed.")
			return "", errs.NewError(errs.ErrUnknown, err)
		}

		m.mu.RLock()
		_, taken := m.rooms[code]
		m.mu.RUnlock()

		if !taken {
			return code, nil
		}
	}
	return "", errs.NewError(errs.ErrRoomCodeExhausted)
}

// GetRoom retrieves a Room by id, or nil when it does not exist.
func (m *Manager) GetRoom(roomID string) *Room {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.rooms[roomID]
}

// Shutdown stops all room loops, closes the cleanup channel, and waits for
// the cleanup goroutine to exit.
func (m *Manager) Shutdown() {
	m.logger.Info().Msg("Shutting down Manager...")

	m.mu.Lock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, room := range m.rooms {
		rooms = append(rooms, room)
	}
	m.rooms = make(map[string]*Room)
	m.mu.Unlock()

	for _, room := range rooms {
		room.Stop()
		<-room.Done()
	}

	close(m.cleanup)
	m.wg.Wait()

	m.logger.Info().Msg("Manager shutdown complete.")
}
