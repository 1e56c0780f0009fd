/*
Package randx provides functions for generating cryptographically secure
random identifiers: Base62 room codes and UUID event/connection ids.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

const (
	// Base62Chars defines the character set used for Base62 encoding.
	Base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// Base62Len is the size of the Base62 character set.
	Base62Len = int64(len(Base62Chars))

	// RoomCodeLength is the fixed length of a generated room code.
	RoomCodeLength = 6
)

// RoomCode generates a Base62 room code of length RoomCodeLength using
// crypto/rand.
func RoomCode() (string, error) {
	result := make([]byte, RoomCodeLength)

	for i := 0; i < RoomCodeLength; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(Base62Len))
		if err != nil {
			return "", fmt.Errorf("failed to generate random number for room code: %w", err)
		}

		result[i] = Base62Chars[num.Int64()]
	}

	return string(result), nil
}

// IsValidRoomCode reports whether code has the right length and alphabet.
func IsValidRoomCode(code string) bool {
	if len(code) != RoomCodeLength {
		return false
	}

	for _, char := range code {
		if !strings.ContainsRune(Base62Chars, char) {
			return false
		}
	}

	return true
}

// EventID generates a UUID v4 string identifying one outbound event.
func EventID() string {
	return uuid.New().String()
}

// ConnectionID generates a UUID v4 string identifying one WebSocket
// connection for its lifetime.
func ConnectionID() string {
	return uuid.New().String()
}
