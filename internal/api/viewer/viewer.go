// Package viewer contains the Datastar SSE handlers that drive the map page.
package viewer

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/propmap/internal/humastar"
	"github.com/joeblew999/propmap/internal/service"
)

// SymbolsEvent is the browser event carrying re-rendered markers.
const SymbolsEvent = "symbols-updated"

// Handler serves viewer interactions for map sessions.
type Handler struct {
	humastar.Handler
	sessions *service.SessionService
}

// NewHandler creates a viewer handler.
func NewHandler(h humastar.Handler, sessions *service.SessionService) *Handler {
	return &Handler{Handler: h, sessions: sessions}
}

// RegisterRoutes registers viewer SSE routes with Huma.
func (h *Handler) RegisterRoutes(api huma.API) {
	huma.Post(api, "/api/v1/viewer/sessions/{id}/forward", h.Forward, huma.OperationTags("viewer"))
	huma.Post(api, "/api/v1/viewer/sessions/{id}/reverse", h.Reverse, huma.OperationTags("viewer"))
	huma.Post(api, "/api/v1/viewer/sessions/{id}/slide", h.Slide, huma.OperationTags("viewer"))
	huma.Post(api, "/api/v1/viewer/sessions/{id}/overlay", h.Overlay, huma.OperationTags("viewer"))
	huma.Get(api, "/api/v1/viewer/sessions/{id}/events", h.Events, huma.OperationTags("viewer"))
}

// SessionInput identifies a session.
type SessionInput struct {
	ID string `path:"id" doc:"Session ID"`
}

// SignalsInput identifies a session and carries the Datastar signals.
type SignalsInput struct {
	ID      string `path:"id" doc:"Session ID"`
	RawBody []byte
}

// LegendView is the data the legend fragment renders.
type LegendView struct {
	Heading     string
	Fill        string
	FillOpacity float64
	Stroke      string
	Circles     []service.LegendCircle
}

// NewLegendView pairs a session's legend with its symbol style.
func NewLegendView(state service.SessionState) LegendView {
	return LegendView{
		Heading:     state.Legend.Heading,
		Fill:        state.SymbolStyle.FillColor,
		FillOpacity: state.SymbolStyle.FillOpacity,
		Stroke:      state.SymbolStyle.Color,
		Circles:     state.Legend.Circles,
	}
}

// Signals returns the Datastar signals mirroring a session's position.
func Signals(state service.SessionState) map[string]any {
	return map[string]any{
		"index":     state.Index,
		"attribute": state.Attribute,
		"year":      state.Year,
		"overlay":   state.Overlay.Visible,
	}
}

// SignalsJSON returns Signals encoded for a data-signals attribute.
func SignalsJSON(state service.SessionState) string {
	b, err := json.Marshal(Signals(state))
	if err != nil {
		return "{}"
	}
	return string(b)
}

// Forward advances the session's sequence.
func (h *Handler) Forward(ctx context.Context, input *SessionInput) (*huma.StreamResponse, error) {
	return h.step(input.ID, (*service.Session).Forward)
}

// Reverse steps the session's sequence back.
func (h *Handler) Reverse(ctx context.Context, input *SessionInput) (*huma.StreamResponse, error) {
	return h.step(input.ID, (*service.Session).Reverse)
}

// Slide jumps to the index signal.
func (h *Handler) Slide(ctx context.Context, input *SignalsInput) (*huma.StreamResponse, error) {
	signals, err := humastar.ParseSignals(input.RawBody)
	if err != nil {
		return nil, huma.Error400BadRequest("Invalid signals: " + err.Error())
	}
	index, ok := signals.Int("index")
	if !ok {
		return nil, huma.Error422UnprocessableEntity("index signal is required")
	}
	return h.step(input.ID, func(s *service.Session) (service.SessionState, error) {
		return s.Slide(index)
	})
}

// Overlay shows or hides the boundary overlay from the overlay signal.
func (h *Handler) Overlay(ctx context.Context, input *SignalsInput) (*huma.StreamResponse, error) {
	signals, err := humastar.ParseSignals(input.RawBody)
	if err != nil {
		return nil, huma.Error400BadRequest("Invalid signals: " + err.Error())
	}
	sess, err := h.sessions.Get(input.ID)
	if err != nil {
		return nil, huma.Error404NotFound(err.Error())
	}
	state := sess.SetOverlay(signals.Bool("overlay"))
	return h.Stream(func(sse humastar.SSE) {
		h.patch(sse, state)
	}), nil
}

// Events streams session updates so every tab showing a session stays in
// sync with mutations made elsewhere.
func (h *Handler) Events(ctx context.Context, input *SessionInput) (*huma.StreamResponse, error) {
	if _, err := h.sessions.Get(input.ID); err != nil {
		return nil, huma.Error404NotFound(err.Error())
	}
	bus := h.sessions.Bus()

	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			sse := humastar.NewSSE(humaCtx)
			ch := bus.Subscribe()
			defer bus.Unsubscribe(ch)

			for {
				select {
				case <-humaCtx.Context().Done():
					return
				case ev := <-ch:
					if ev.Resource != "sessions" || ev.ID != input.ID {
						continue
					}
					if ev.Action == "deleted" {
						sse.Error("session expired, reload the page")
						return
					}
					sess, err := h.sessions.Get(input.ID)
					if err != nil {
						sse.Error(err.Error())
						return
					}
					h.patch(sse, sess.State())
				}
			}
		},
	}, nil
}

func (h *Handler) step(id string, fn func(*service.Session) (service.SessionState, error)) (*huma.StreamResponse, error) {
	sess, err := h.sessions.Get(id)
	if err != nil {
		return nil, huma.Error404NotFound(err.Error())
	}
	state, err := fn(sess)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoAttributes):
			return nil, huma.Error409Conflict(err.Error())
		default:
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}
	}
	return h.Stream(func(sse humastar.SSE) {
		h.patch(sse, state)
	}), nil
}

// patch pushes a session's position, legend and markers to the page.
func (h *Handler) patch(sse humastar.SSE, state service.SessionState) {
	sse.Signals(Signals(state))
	sse.Patch(h.Fragment("legend", NewLegendView(state)), "#legend")
	sse.DispatchCustomEvent(SymbolsEvent, map[string]any{
		"attribute": state.Attribute,
		"markers":   state.Markers,
		"overlay":   state.Overlay.Visible,
	})
}
