package game

import (
	"context"
	"errors"
	"time"

	"humanorit/internal/app/llm"
)

// errGenerateTimeout marks a generation call that lost the race against the
// deadline.
var errGenerateTimeout = errors.New("generation timed out")

// generateWithTimeout races one generation call against a deadline and
// returns whichever finishes first. The provider has no cancellation hook, so
// on timeout the in-flight call is detached rather than cancelled: the result
// channel is buffered and the late result, if it ever arrives, is discarded
// with the channel.
func generateWithTimeout(gen llm.Generator, systemPrompt string, history []llm.Turn, message string, timeout time.Duration) (string, error) {
	type result struct {
		text string
		err  error
	}

	resultCh := make(chan result, 1)

	go func() {
		text, err := gen.Generate(context.Background(), systemPrompt, history, message)
		resultCh <- result{text: text, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-resultCh:
		return res.text, res.err
	case <-timer.C:
		return "", errGenerateTimeout
	}
}
