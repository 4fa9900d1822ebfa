package server

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tripnote/tripnote/internal/export"
	"github.com/tripnote/tripnote/internal/grounding"
	"github.com/tripnote/tripnote/internal/ingest"
	"github.com/tripnote/tripnote/internal/provider"
	"github.com/tripnote/tripnote/internal/session"
	"github.com/tripnote/tripnote/internal/trip"
)

// SessionsHandler exposes the document pipeline over HTTP.
type SessionsHandler struct {
	Registry       *Registry
	MaxUploadBytes int64
	Logger         *log.Logger
}

func (h *SessionsHandler) Register(g *echo.Group) {
	g.POST("", h.create)
	g.GET("/:id", h.get)
	g.POST("/:id/messages", h.postMessage)
	g.GET("/:id/itinerary", h.itinerary)
	g.GET("/:id/search", h.search)
	g.GET("/:id/export/json", h.exportJSON)
	g.GET("/:id/export/calendar", h.exportCalendar)
	g.DELETE("/:id", h.reset)
}

type sessionResponse struct {
	ID        string                     `json:"id"`
	State     trip.SessionState          `json:"state"`
	Error     string                     `json:"error,omitempty"`
	Document  *documentMeta              `json:"document,omitempty"`
	Itinerary *trip.StructuredItinerary  `json:"itinerary,omitempty"`
	Messages  []trip.ConversationMessage `json:"messages"`
}

type documentMeta struct {
	Name      string `json:"name"`
	ByteSize  int64  `json:"byteSize"`
	PageCount int    `json:"pageCount"`
}

func sessionPayload(id string, sess *session.Session) sessionResponse {
	resp := sessionResponse{
		ID:       id,
		State:    sess.State(),
		Error:    sess.LastError(),
		Messages: sess.Messages(),
	}
	if resp.Messages == nil {
		resp.Messages = []trip.ConversationMessage{}
	}
	if doc, ok := sess.Document(); ok {
		resp.Document = &documentMeta{Name: doc.Name, ByteSize: doc.ByteSize, PageCount: doc.PageCount}
	}
	if it, ok := sess.Itinerary(); ok {
		resp.Itinerary = &it
	}
	return resp
}

// create accepts one document upload and runs the whole pipeline
// before answering, so the response already carries the itinerary.
func (h *SessionsHandler) create(c echo.Context) error {
	fileHeader, err := c.FormFile("document")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "a document file is required")
	}
	if fileHeader.Size > h.MaxUploadBytes {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge,
			fmt.Sprintf("document exceeds the %d byte upload limit", h.MaxUploadBytes))
	}
	file, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "could not read the uploaded document")
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, h.MaxUploadBytes+1))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "could not read the uploaded document")
	}
	if int64(len(data)) > h.MaxUploadBytes {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge,
			fmt.Sprintf("document exceeds the %d byte upload limit", h.MaxUploadBytes))
	}

	id, sess := h.Registry.Create()
	if err := sess.Upload(c.Request().Context(), fileHeader.Filename, data); err != nil {
		// The failed session is wound back to idle so the same id can
		// take another upload after the user sees the error.
		msg := sess.LastError()
		h.Registry.Reset(id)
		switch {
		case errors.Is(err, provider.ErrNotConfigured):
			return echo.NewHTTPError(http.StatusServiceUnavailable, msg)
		case errors.Is(err, ingest.ErrUnsupportedFormat):
			return echo.NewHTTPError(http.StatusUnsupportedMediaType, msg)
		default:
			return echo.NewHTTPError(http.StatusUnprocessableEntity, msg)
		}
	}
	return c.JSON(http.StatusCreated, sessionPayload(id, sess))
}

func (h *SessionsHandler) get(c echo.Context) error {
	id := c.Param("id")
	sess, ok := h.Registry.Get(id)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	return c.JSON(http.StatusOK, sessionPayload(id, sess))
}

func (h *SessionsHandler) postMessage(c echo.Context) error {
	sess, ok := h.Registry.Get(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	var req struct {
		Message string `json:"message"`
	}
	if err := c.Bind(&req); err != nil || req.Message == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message required")
	}

	msg, err := sess.Send(c.Request().Context(), req.Message)
	if err != nil {
		if errors.Is(err, session.ErrBusy) {
			return echo.NewHTTPError(http.StatusConflict, "a previous message is still being processed")
		}
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"message": msg})
}

func (h *SessionsHandler) itinerary(c echo.Context) error {
	sess, ok := h.Registry.Get(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	it, ok := sess.Itinerary()
	if !ok {
		return echo.NewHTTPError(http.StatusConflict, "session has no itinerary yet")
	}
	return c.JSON(http.StatusOK, it)
}

func (h *SessionsHandler) search(c echo.Context) error {
	sess, ok := h.Registry.Get(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	q := c.QueryParam("q")
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "q required")
	}
	hits, err := sess.SearchPages(q, 5)
	if err != nil {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	if hits == nil {
		hits = []grounding.PageHit{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"hits": hits})
}

func (h *SessionsHandler) exportJSON(c echo.Context) error {
	sess, ok := h.Registry.Get(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	it, ok := sess.Itinerary()
	if !ok {
		return echo.NewHTTPError(http.StatusConflict, "session has no itinerary to export")
	}
	b, err := export.ToJSON(it)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", export.JSONFilename(it)))
	return c.Blob(http.StatusOK, export.JSONMediaType, b)
}

func (h *SessionsHandler) exportCalendar(c echo.Context) error {
	sess, ok := h.Registry.Get(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	it, ok := sess.Itinerary()
	if !ok {
		return echo.NewHTTPError(http.StatusConflict, "session has no itinerary to export")
	}
	b, skipped := export.ToCalendar(it, h.Logger)
	if skipped > 0 {
		h.Logger.Printf("calendar export skipped %d malformed events", skipped)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", export.CalendarFilename(it)))
	return c.Blob(http.StatusOK, export.CalendarMediaType, b)
}

// reset discards all session data and leaves a fresh idle session
// under the same id.
func (h *SessionsHandler) reset(c echo.Context) error {
	id := c.Param("id")
	sess, ok := h.Registry.Reset(id)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	return c.JSON(http.StatusOK, sessionPayload(id, sess))
}
