/*
Package llm wraps the external text-generation provider behind a narrow
interface so the game core can be exercised without network access.

This file defines the conversation Turn type and the Generator contract.
*/
package llm

import "context"

// Turn roles as the Gemini API expects them.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Turn is a single conversation turn. Turns are immutable once appended to a
// room's history and are never reordered.
type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Generator produces one persona-conditioned reply for a conversation.
//
// Implementations issue a single request and await its completion; they must
// not retry beyond transient provider hiccups and must not mutate caller
// state. Deadline enforcement is the caller's responsibility via ctx.
type Generator interface {
	Generate(ctx context.Context, systemPrompt string, history []Turn, message string) (string, error)
}
