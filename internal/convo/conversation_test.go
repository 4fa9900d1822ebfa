package convo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tripnote/tripnote/internal/provider"
)

type scriptedProvider struct {
	mu      sync.Mutex
	calls   [][]provider.Message
	err     error
	started chan struct{} // closed when a call begins, when non-nil
	release chan struct{} // blocks the call until closed, when non-nil
}

func (f *scriptedProvider) Generate(ctx context.Context, messages []provider.Message, schema *provider.Schema) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, messages)
	n := len(f.calls)
	started := f.started
	release := f.release
	err := f.err
	f.mu.Unlock()

	if started != nil {
		close(started)
	}
	if release != nil {
		<-release
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("reply %d", n), nil
}

func TestSendPreservesTurnOrdering(t *testing.T) {
	t.Parallel()
	fake := &scriptedProvider{}
	c := Open(fake, "--- Page 1 ---\ndocument body")

	for i := 1; i <= 3; i++ {
		reply, err := c.Send(context.Background(), fmt.Sprintf("question %d", i))
		if err != nil {
			t.Fatalf("send %d failed: %v", i, err)
		}
		if reply != fmt.Sprintf("reply %d", i) {
			t.Fatalf("send %d got %q", i, reply)
		}
	}
	if c.Turns() != 3 {
		t.Fatalf("expected 3 committed turns, got %d", c.Turns())
	}

	// The third call must carry the full ordered transcript.
	last := fake.calls[2]
	wantRoles := []string{"system", "system", "user", "assistant", "user", "assistant", "user"}
	if len(last) != len(wantRoles) {
		t.Fatalf("expected %d messages, got %d", len(wantRoles), len(last))
	}
	for i, role := range wantRoles {
		if last[i].Role != role {
			t.Fatalf("message %d: expected role %s, got %s", i, role, last[i].Role)
		}
	}
	if last[2].Content != "question 1" || last[3].Content != "reply 1" {
		t.Fatalf("transcript out of order: %+v", last[2:4])
	}
}

func TestOpenBindsDirectiveAndGrounding(t *testing.T) {
	t.Parallel()
	fake := &scriptedProvider{}
	c := Open(fake, "the grounding text")

	if _, err := c.Send(context.Background(), "hi"); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	msgs := fake.calls[0]
	if msgs[0].Role != "system" || !strings.Contains(msgs[0].Content, "[Page N]") {
		t.Fatalf("expected the citation directive first, got %+v", msgs[0])
	}
	if msgs[1].Role != "system" || !strings.Contains(msgs[1].Content, "the grounding text") {
		t.Fatalf("expected the grounding text in the second system message, got %+v", msgs[1])
	}
}

func TestSendRejectsConcurrentTurn(t *testing.T) {
	t.Parallel()
	fake := &scriptedProvider{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	c := Open(fake, "doc")

	done := make(chan error, 1)
	go func() {
		_, err := c.Send(context.Background(), "first")
		done <- err
	}()
	<-fake.started

	if _, err := c.Send(context.Background(), "second"); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy while a turn is outstanding, got %v", err)
	}

	close(fake.release)
	if err := <-done; err != nil {
		t.Fatalf("first send failed: %v", err)
	}
	if c.Turns() != 1 {
		t.Fatalf("expected exactly 1 committed turn, got %d", c.Turns())
	}
}

func TestSendDoesNotCommitFailedTurn(t *testing.T) {
	t.Parallel()
	fake := &scriptedProvider{err: provider.ErrEmptyResponse}
	c := Open(fake, "doc")

	if _, err := c.Send(context.Background(), "hello"); !errors.Is(err, provider.ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
	if c.Turns() != 0 {
		t.Fatalf("failed turn must not be committed, got %d turns", c.Turns())
	}
}

func TestInvalidateDropsLateReply(t *testing.T) {
	t.Parallel()
	fake := &scriptedProvider{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	c := Open(fake, "doc")

	done := make(chan error, 1)
	go func() {
		_, err := c.Send(context.Background(), "in flight")
		done <- err
	}()
	<-fake.started

	c.Invalidate()
	close(fake.release)

	select {
	case err := <-done:
		if !errors.Is(err, ErrClosed) {
			t.Fatalf("expected ErrClosed for a reply arriving after reset, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("send did not return")
	}
	if c.Turns() != 0 {
		t.Fatalf("late reply must be dropped, got %d turns", c.Turns())
	}

	if _, err := c.Send(context.Background(), "again"); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed on a discarded handle, got %v", err)
	}
}
