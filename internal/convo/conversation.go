// Package convo wraps the grounding text in a system directive and
// exposes a strictly sequential question/answer contract.
package convo

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tripnote/tripnote/internal/provider"
)

// ErrBusy is returned when a send is issued while a prior one is
// still outstanding. Turns are strictly sequential per conversation.
var ErrBusy = errors.New("a message is already being processed")

// ErrClosed is returned once the handle has been discarded by a reset.
// A late-arriving model reply for a closed handle is dropped.
var ErrClosed = errors.New("conversation handle has been discarded")

// Apology is the fixed user-visible text for a failed chat turn.
const Apology = "Sorry, I couldn't get an answer for that. Please check your network connection and API key, then try again."

const directive = `You are a travel assistant answering questions about one uploaded travel document.
Rules:
1. Answer only from the provided document. If the document does not contain the answer, say so explicitly instead of guessing.
2. When you can locate the answer, cite the page using the bracket notation [Page N] matching the page markers in the document.
3. Never fabricate dates, times, booking references or other identifiers.
4. Prefer structured formatting (short lists, bold key facts) for readability.`

// Conversation is a stateful handle over one document's chat. It
// preserves the ordering of all prior turns and resubmits the full
// transcript on every call.
type Conversation struct {
	llm provider.Provider

	mu         sync.Mutex
	transcript []provider.Message
	sending    bool
	closed     bool
}

// Open constructs a conversation bound to the grounding text.
func Open(llm provider.Provider, groundingText string) *Conversation {
	return &Conversation{
		llm: llm,
		transcript: []provider.Message{
			{Role: "system", Content: directive},
			{Role: "system", Content: fmt.Sprintf("Travel document:\n%s", groundingText)},
		},
	}
}

// Send appends a user turn, submits the full transcript and returns
// the assistant reply. A second Send while one is outstanding returns
// ErrBusy; the turn is only committed to the transcript on success.
func (c *Conversation) Send(ctx context.Context, userText string) (string, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return "", ErrClosed
	}
	if c.sending {
		c.mu.Unlock()
		return "", ErrBusy
	}
	c.sending = true
	outgoing := make([]provider.Message, len(c.transcript), len(c.transcript)+1)
	copy(outgoing, c.transcript)
	outgoing = append(outgoing, provider.Message{Role: "user", Content: userText})
	c.mu.Unlock()

	reply, err := c.llm.Generate(ctx, outgoing, nil)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sending = false
	if c.closed {
		// The session was reset while this turn was in flight.
		return "", ErrClosed
	}
	if err != nil {
		return "", err
	}
	c.transcript = append(c.transcript,
		provider.Message{Role: "user", Content: userText},
		provider.Message{Role: "assistant", Content: reply},
	)
	return reply, nil
}

// Turns reports how many user/assistant turns have been committed.
func (c *Conversation) Turns() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return (len(c.transcript) - 2) / 2
}

// Invalidate discards the handle. Any in-flight reply is ignored.
func (c *Conversation) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}
