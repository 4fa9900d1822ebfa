package trip

import (
	"strings"
	"time"
)

// Category classifies an itinerary event.
type Category string

const (
	CategoryFlight   Category = "flight"
	CategoryHotel    Category = "hotel"
	CategoryActivity Category = "activity"
	CategoryFood     Category = "food"
	CategoryOther    Category = "other"
)

// NormalizeCategory maps arbitrary model output onto the fixed category
// set, defaulting to "other".
func NormalizeCategory(s string) Category {
	switch Category(strings.ToLower(strings.TrimSpace(s))) {
	case CategoryFlight:
		return CategoryFlight
	case CategoryHotel:
		return CategoryHotel
	case CategoryActivity:
		return CategoryActivity
	case CategoryFood:
		return CategoryFood
	default:
		return CategoryOther
	}
}

// GroundingDocument holds the extracted text of the single active
// document. It is replaced wholesale on a new upload, never mutated.
type GroundingDocument struct {
	Name      string `json:"name"`
	FullText  string `json:"fullText"`
	ByteSize  int64  `json:"byteSize"`
	PageCount int    `json:"pageCount"`
}

// ItineraryEvent is a single dated entry of the itinerary. Date uses
// YYYY-MM-DD and Time a 24-hour HH:MM clock.
type ItineraryEvent struct {
	Date     string   `json:"date"`
	Time     string   `json:"time"`
	Activity string   `json:"activity"`
	Location string   `json:"location,omitempty"`
	Category Category `json:"type"`
}

// StructuredItinerary is the schema-validated summary derived from the
// grounding text. Immutable once produced; exports only read it.
type StructuredItinerary struct {
	Title              string           `json:"title"`
	Destination        string           `json:"destination"`
	Dates              string           `json:"dates"`
	Events             []ItineraryEvent `json:"events"`
	SuggestedQuestions []string         `json:"suggestedQuestions"`
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ConversationMessage is one entry of the append-only chat timeline.
// System messages are stored but never rendered to the user.
type ConversationMessage struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
	IsError   bool      `json:"isError,omitempty"`
}

type SessionState string

const (
	StateIdle      SessionState = "idle"
	StateParsing   SessionState = "parsing"
	StateAnalyzing SessionState = "analyzing"
	StateReady     SessionState = "ready"
	StateError     SessionState = "error"
)
