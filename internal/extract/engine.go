// Package extract turns grounding text into a structured itinerary.
// Extraction is an enhancement, not a prerequisite for chat: every
// failure path degrades to a deterministic fallback itinerary instead
// of propagating.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/tripnote/tripnote/internal/metrics"
	"github.com/tripnote/tripnote/internal/provider"
	"github.com/tripnote/tripnote/internal/trip"
)

// DefaultMaxGroundingChars bounds how much document text is submitted
// to the model per extraction.
const DefaultMaxGroundingChars = 50000

const maxSuggestedQuestions = 3

const extractionSystemPrompt = `You are a travel itinerary analyst. Extract a structured itinerary from the travel document provided by the user.
Rules:
1. Use only information present in the document. Never invent dates, times or identifiers.
2. Dates use YYYY-MM-DD and times a 24-hour HH:MM clock.
3. Classify every event as flight, hotel, activity, food or other.
4. Suggest up to 3 short questions a traveler would ask about this document.
Respond only with JSON matching the required schema.`

// Engine calls the generative capability with a fixed schema to
// produce a structured itinerary from grounding text.
type Engine struct {
	llm    provider.Provider
	limit  int
	logger *log.Logger
}

// NewEngine creates an extraction engine. limit bounds the grounding
// text; 0 means DefaultMaxGroundingChars.
func NewEngine(llm provider.Provider, limit int, logger *log.Logger) *Engine {
	if limit <= 0 {
		limit = DefaultMaxGroundingChars
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[EXTRACT] ", log.LstdFlags)
	}
	return &Engine{llm: llm, limit: limit, logger: logger}
}

// ExtractItinerary derives a structured itinerary from the grounding
// text. It never fails: transport errors, malformed output and schema
// violations all degrade to the fixed fallback itinerary.
func (e *Engine) ExtractItinerary(ctx context.Context, text string) trip.StructuredItinerary {
	messages := []provider.Message{
		{Role: "system", Content: extractionSystemPrompt},
		{Role: "user", Content: fmt.Sprintf("Travel document:\n%s", truncateGrounding(text, e.limit))},
	}
	schema := &provider.Schema{Name: "structured_itinerary", Definition: SchemaDefinition()}

	raw, err := e.llm.Generate(ctx, messages, schema)
	if err != nil {
		e.logger.Printf("extraction degraded, using fallback: %v", err)
		metrics.ExtractionFallbacks.Inc()
		return FallbackItinerary()
	}

	if err := validateItineraryJSON(raw); err != nil {
		e.logger.Printf("extraction degraded, using fallback: %v", err)
		metrics.ExtractionFallbacks.Inc()
		return FallbackItinerary()
	}

	var it trip.StructuredItinerary
	if err := json.Unmarshal([]byte(raw), &it); err != nil {
		e.logger.Printf("extraction degraded, using fallback: %v", err)
		metrics.ExtractionFallbacks.Inc()
		return FallbackItinerary()
	}
	return normalize(it)
}

// FallbackItinerary is the fixed itinerary returned when structured
// extraction fails. Chat remains fully usable without it.
func FallbackItinerary() trip.StructuredItinerary {
	return trip.StructuredItinerary{
		Title:       "My Trip",
		Destination: "Unknown",
		Dates:       "Upcoming",
		Events:      []trip.ItineraryEvent{},
		SuggestedQuestions: []string{
			"What is the first event on my itinerary?",
			"Where will I be staying?",
			"What should I not miss on this trip?",
		},
	}
}

func truncateGrounding(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return text[:limit]
}

func normalize(it trip.StructuredItinerary) trip.StructuredItinerary {
	for i := range it.Events {
		it.Events[i].Category = trip.NormalizeCategory(string(it.Events[i].Category))
		it.Events[i].Activity = strings.TrimSpace(it.Events[i].Activity)
	}
	if it.Events == nil {
		it.Events = []trip.ItineraryEvent{}
	}
	if len(it.SuggestedQuestions) > maxSuggestedQuestions {
		it.SuggestedQuestions = it.SuggestedQuestions[:maxSuggestedQuestions]
	}
	return it
}
