// Package session orchestrates the document pipeline: upload, text
// extraction, itinerary extraction, grounded chat and reset. A Session
// owns exactly one grounding document, at most one itinerary and a
// growing message timeline; resetting discards all three atomically by
// producing a fresh Session.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tripnote/tripnote/internal/convo"
	"github.com/tripnote/tripnote/internal/extract"
	"github.com/tripnote/tripnote/internal/grounding"
	"github.com/tripnote/tripnote/internal/ingest"
	"github.com/tripnote/tripnote/internal/metrics"
	"github.com/tripnote/tripnote/internal/provider"
	"github.com/tripnote/tripnote/internal/trip"
)

// ErrInvalidState is returned when an operation is not legal in the
// session's current state.
var ErrInvalidState = errors.New("operation not allowed in current session state")

// ErrBusy mirrors the conversation guard at the session boundary.
var ErrBusy = convo.ErrBusy

// Session drives the state machine Idle -> Parsing -> Analyzing ->
// Ready, with Error reachable from Parsing and Analyzing. Only Ready
// accepts chat and exports; only Idle accepts an upload.
type Session struct {
	llm       provider.Provider
	engine    *extract.Engine
	extractor ingest.Extractor
	logger    *log.Logger

	mu        sync.Mutex
	state     trip.SessionState
	grounding *grounding.Store
	itinerary *trip.StructuredItinerary
	messages  []trip.ConversationMessage
	convo     *convo.Conversation
	lastErr   string
}

// New creates an idle session. llm may be nil when the provider could
// not be configured; the session then fails during analysis without
// ever attempting a generative call.
func New(llm provider.Provider, engine *extract.Engine, extractor ingest.Extractor, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.New(log.Writer(), "[SESSION] ", log.LstdFlags)
	}
	return &Session{
		llm:       llm,
		engine:    engine,
		extractor: extractor,
		logger:    logger,
		state:     trip.StateIdle,
		grounding: grounding.NewStore(),
	}
}

func (s *Session) State() trip.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastError returns the user-visible description of the failure that
// moved the session to the Error state.
func (s *Session) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Upload runs the full pipeline for one document. Legal only from
// Idle. On ingestion failure the session moves to Error and must be
// reset; extraction degradation still reaches Ready.
func (s *Session) Upload(ctx context.Context, name string, data []byte) error {
	s.mu.Lock()
	if s.state != trip.StateIdle {
		s.mu.Unlock()
		return fmt.Errorf("%w: upload requires an idle session (state=%s)", ErrInvalidState, s.state)
	}
	s.state = trip.StateParsing
	s.mu.Unlock()

	res, err := s.extractor.Extract(ctx, data)
	if err != nil {
		metrics.IngestionFailures.Inc()
		s.fail(fmt.Sprintf("could not read %q: %v", name, err))
		return fmt.Errorf("text extraction failed: %w", err)
	}

	doc, err := s.grounding.SetDocument(name, res.Pages, int64(len(data)))
	if err != nil {
		metrics.IngestionFailures.Inc()
		s.fail(fmt.Sprintf("could not index %q: %v", name, err))
		return fmt.Errorf("grounding setup failed: %w", err)
	}

	s.mu.Lock()
	s.state = trip.StateAnalyzing
	s.mu.Unlock()

	if s.llm == nil {
		// Configuration failure: surface it instead of letting the
		// extraction engine run into a generic network error.
		s.fail("generative provider is not configured")
		return provider.ErrNotConfigured
	}

	it := s.engine.ExtractItinerary(ctx, doc.FullText)
	conversation := convo.Open(s.llm, doc.FullText)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.itinerary = &it
	s.convo = conversation
	s.state = trip.StateReady
	metrics.Uploads.Inc()
	s.logger.Printf("document %q ready: %d pages, %d events", name, doc.PageCount, len(it.Events))
	return nil
}

// Send submits one chat turn. Legal only from Ready. A failed or empty
// model reply is converted into an in-timeline error message with the
// fixed apology text; the session stays Ready and accepts more turns.
func (s *Session) Send(ctx context.Context, text string) (trip.ConversationMessage, error) {
	s.mu.Lock()
	if s.state != trip.StateReady {
		s.mu.Unlock()
		return trip.ConversationMessage{}, fmt.Errorf("%w: chat requires a ready session (state=%s)", ErrInvalidState, s.state)
	}
	conversation := s.convo
	s.mu.Unlock()

	metrics.ChatTurns.Inc()
	reply, err := conversation.Send(ctx, text)
	if errors.Is(err, convo.ErrBusy) || errors.Is(err, convo.ErrClosed) {
		return trip.ConversationMessage{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendMessage(trip.RoleUser, text, false)
	if err != nil {
		metrics.ChatFailures.Inc()
		s.logger.Printf("chat turn failed: %v", err)
		return s.appendMessage(trip.RoleAssistant, convo.Apology, true), nil
	}
	return s.appendMessage(trip.RoleAssistant, reply, false), nil
}

// Reset discards the document, itinerary and message timeline
// atomically and hands back a fresh idle session. In-flight model
// replies for the old handle are dropped.
func (s *Session) Reset() *Session {
	s.mu.Lock()
	if s.convo != nil {
		s.convo.Invalidate()
	}
	s.mu.Unlock()
	return New(s.llm, s.engine, s.extractor, s.logger)
}

// Itinerary returns the structured itinerary when one exists.
func (s *Session) Itinerary() (trip.StructuredItinerary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.itinerary == nil {
		return trip.StructuredItinerary{}, false
	}
	return *s.itinerary, true
}

// Document returns the grounding document when one is set.
func (s *Session) Document() (trip.GroundingDocument, bool) {
	return s.grounding.Document()
}

// Messages returns a copy of the rendered message timeline.
func (s *Session) Messages() []trip.ConversationMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]trip.ConversationMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// SearchPages proxies grounding page search for citation lookup.
func (s *Session) SearchPages(q string, k int) ([]grounding.PageHit, error) {
	s.mu.Lock()
	if s.state != trip.StateReady {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: search requires a ready session (state=%s)", ErrInvalidState, s.state)
	}
	s.mu.Unlock()
	return s.grounding.SearchPages(q, k)
}

func (s *Session) fail(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = trip.StateError
	s.lastErr = msg
	s.logger.Printf("session failed: %s", msg)
}

// appendMessage must be called with s.mu held.
func (s *Session) appendMessage(role trip.Role, text string, isErr bool) trip.ConversationMessage {
	msg := trip.ConversationMessage{
		ID:        uuid.NewString(),
		Role:      role,
		Text:      text,
		CreatedAt: time.Now().UTC(),
		IsError:   isErr,
	}
	s.messages = append(s.messages, msg)
	return msg
}
