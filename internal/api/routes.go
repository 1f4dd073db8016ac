// Package api defines the Huma API routes and handlers.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/propmap/internal/config"
	"github.com/joeblew999/propmap/internal/humastar"
	"github.com/joeblew999/propmap/internal/propsym"
	"github.com/joeblew999/propmap/internal/service"
	"github.com/joeblew999/propmap/internal/tiler"
)

// Services holds the service dependencies for API handlers.
type Services struct {
	Catalog  *service.Catalog
	Sessions *service.SessionService
	Source   *service.SourceService
}

// RegisterRoutes registers every REST route on api.
func RegisterRoutes(api huma.API, svc *Services) {
	huma.AutoRegister(api, NewAPIHandler(svc))
}

// Types

type PresetInput struct {
	Name string `path:"name" doc:"Preset name" example:"texas-msa"`
}

type SessionIDInput struct {
	ID string `path:"id" doc:"Session ID"`
}

type CreateSessionInput struct {
	Body struct {
		Preset string `json:"preset,omitempty" doc:"Preset name; the first preset when empty" example:"texas-msa"`
	}
}

type SequenceInput struct {
	SessionIDInput
	Body struct {
		Index int `json:"index" minimum:"0" doc:"Target sequence index"`
	}
}

type OverlayInput struct {
	SessionIDInput
	Body struct {
		Visible bool `json:"visible" doc:"Show or hide the boundary overlay"`
	}
}

// SessionBody is a session snapshot with its state-dependent actions.
type SessionBody struct {
	service.SessionState
}

var sessionActions = []humastar.ActionDef{
	{Rel: "next", Pattern: "/api/v1/sessions/%s/forward", Method: "POST", Title: "Step forward"},
	{Rel: "prev", Pattern: "/api/v1/sessions/%s/reverse", Method: "POST", Title: "Step back"},
	{Rel: "edit", Pattern: "/api/v1/sessions/%s/sequence", Method: "PUT", Title: "Slide to index"},
}

var overlayAction = humastar.ActionDef{
	Rel: "overlay", Pattern: "/api/v1/sessions/%s/overlay", Method: "PUT", Title: "Toggle boundaries",
}

// Actions implements humastar.Actor. Sequence actions exist only when
// there are attributes to step through.
func (b SessionBody) Actions() []humastar.Action {
	var defs []humastar.ActionDef
	if b.Steps > 0 {
		defs = append(defs, sessionActions...)
	}
	if b.Overlay.Available {
		defs = append(defs, overlayAction)
	}
	return humastar.ActionsFor(b.ID, defs)
}

type SessionOutput struct {
	Body SessionBody
}

type AttributesBody struct {
	Preset            string                `json:"preset" doc:"Preset name"`
	Attributes        []string              `json:"attributes" doc:"Point attributes in sequence order"`
	PolygonAttributes []string              `json:"polygonAttributes" doc:"Polygon attributes"`
	Steps             int                   `json:"steps" doc:"Number of sequence positions"`
	Status            service.DatasetStatus `json:"status" doc:"Layer load status"`
}

type OverlayBody struct {
	Preset string       `json:"preset" doc:"Preset name"`
	Label  string       `json:"label" doc:"Layer control label"`
	Style  config.Style `json:"style" doc:"Static polygon style"`
	Bound  [4]float64   `json:"bound" doc:"Bounding box [minLng, minLat, maxLng, maxLat]"`
	Data   any          `json:"data" doc:"GeoJSON FeatureCollection"`
}

type TileInput struct {
	PresetInput
	Z int `path:"z" minimum:"0" maximum:"14" doc:"Zoom level"`
	X int `path:"x" minimum:"0" doc:"Tile column"`
	Y int `path:"y" minimum:"0" doc:"Tile row"`
}

type TileOutput struct {
	Status          int
	ContentType     string `header:"Content-Type"`
	ContentEncoding string `header:"Content-Encoding"`
	AllowOrigin     string `header:"Access-Control-Allow-Origin"`
	CacheControl    string `header:"Cache-Control"`
	Body            []byte
}

type MessageBody struct {
	Message string `json:"message" doc:"Result message"`
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"1.0.0"`
}

// APIHandler holds all REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	return &APIHandler{svc: svc}
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterPresets registers preset and dataset routes.
func (h *APIHandler) RegisterPresets(api huma.API) {
	huma.Get(api, "/api/v1/presets", h.ListPresets, huma.OperationTags("presets"))
	huma.Get(api, "/api/v1/presets/{name}", h.GetPreset, huma.OperationTags("presets"))
	huma.Get(api, "/api/v1/presets/{name}/attributes", h.GetAttributes, huma.OperationTags("presets"))
	huma.Get(api, "/api/v1/presets/{name}/overlay", h.GetOverlay, huma.OperationTags("presets"))
	huma.Get(api, "/api/v1/presets/{name}/overlay/tiles/{z}/{x}/{y}", h.GetOverlayTile, huma.OperationTags("presets"))
}

// RegisterSources registers source listing routes.
func (h *APIHandler) RegisterSources(api huma.API) {
	huma.Get(api, "/api/v1/sources", h.GetSources, huma.OperationTags("sources"))
}

// RegisterSessions registers map session routes.
func (h *APIHandler) RegisterSessions(api huma.API) {
	huma.Post(api, "/api/v1/sessions", h.CreateSession, huma.OperationTags("sessions"))
	huma.Get(api, "/api/v1/sessions/{id}", h.GetSession, huma.OperationTags("sessions"))
	huma.Delete(api, "/api/v1/sessions/{id}", h.DeleteSession, huma.OperationTags("sessions"))
	huma.Post(api, "/api/v1/sessions/{id}/forward", h.Forward, huma.OperationTags("sessions"))
	huma.Post(api, "/api/v1/sessions/{id}/reverse", h.Reverse, huma.OperationTags("sessions"))
	huma.Put(api, "/api/v1/sessions/{id}/sequence", h.Slide, huma.OperationTags("sessions"))
	huma.Get(api, "/api/v1/sessions/{id}/symbols", h.GetSymbols, huma.OperationTags("sessions"))
	huma.Get(api, "/api/v1/sessions/{id}/legend", h.GetLegend, huma.OperationTags("sessions"))
	huma.Put(api, "/api/v1/sessions/{id}/overlay", h.SetOverlay, huma.OperationTags("sessions"))
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: "1.0.0"}}, nil
}

func (h *APIHandler) ListPresets(ctx context.Context, input *struct{}) (*struct{ Body []config.Preset }, error) {
	if h.svc == nil || h.svc.Catalog == nil {
		return &struct{ Body []config.Preset }{Body: []config.Preset{}}, nil
	}
	return &struct{ Body []config.Preset }{Body: h.svc.Catalog.Presets().List()}, nil
}

func (h *APIHandler) GetPreset(ctx context.Context, input *PresetInput) (*struct{ Body config.Preset }, error) {
	if h.svc == nil || h.svc.Catalog == nil {
		return nil, huma.Error503ServiceUnavailable("catalog not available")
	}
	preset, err := h.svc.Catalog.Presets().Get(input.Name)
	if err != nil {
		return nil, toHumaError(err)
	}
	return &struct{ Body config.Preset }{Body: preset}, nil
}

func (h *APIHandler) GetAttributes(ctx context.Context, input *PresetInput) (*struct{ Body AttributesBody }, error) {
	if h.svc == nil || h.svc.Catalog == nil {
		return nil, huma.Error503ServiceUnavailable("catalog not available")
	}
	ds, err := h.svc.Catalog.Dataset(ctx, input.Name)
	if err != nil {
		return nil, toHumaError(err)
	}
	return &struct{ Body AttributesBody }{Body: AttributesBody{
		Preset:            ds.Preset.Name,
		Attributes:        nonNil(ds.Attributes),
		PolygonAttributes: nonNil(ds.PolygonAttributes),
		Steps:             ds.Steps,
		Status:            ds.Status,
	}}, nil
}

func (h *APIHandler) GetOverlay(ctx context.Context, input *PresetInput) (*struct{ Body OverlayBody }, error) {
	if h.svc == nil || h.svc.Catalog == nil {
		return nil, huma.Error503ServiceUnavailable("catalog not available")
	}
	ds, err := h.svc.Catalog.Dataset(ctx, input.Name)
	if err != nil {
		return nil, toHumaError(err)
	}
	if ds.Overlay == nil {
		return nil, huma.Error404NotFound("overlay not loaded for preset " + input.Name)
	}
	b := ds.OverlayBound
	return &struct{ Body OverlayBody }{Body: OverlayBody{
		Preset: ds.Preset.Name,
		Label:  ds.Preset.Overlay.Label,
		Style:  ds.Preset.Overlay.Style,
		Bound:  [4]float64{b.Min.Lon(), b.Min.Lat(), b.Max.Lon(), b.Max.Lat()},
		Data:   ds.Overlay,
	}}, nil
}

// GetOverlayTile serves the boundary overlay as a gzipped Mapbox vector
// tile. Tiles no feature reaches are 204 No Content.
func (h *APIHandler) GetOverlayTile(ctx context.Context, input *TileInput) (*TileOutput, error) {
	if h.svc == nil || h.svc.Catalog == nil {
		return nil, huma.Error503ServiceUnavailable("catalog not available")
	}
	ds, err := h.svc.Catalog.Dataset(ctx, input.Name)
	if err != nil {
		return nil, toHumaError(err)
	}
	if ds.OverlayTiles == nil {
		return nil, huma.Error404NotFound("overlay not loaded for preset " + input.Name)
	}

	data, err := ds.OverlayTiles.Tile(uint32(input.Z), uint32(input.X), uint32(input.Y))
	if err != nil {
		return nil, toHumaError(err)
	}
	out := &TileOutput{AllowOrigin: "*", CacheControl: "public, max-age=3600"}
	if len(data) == 0 {
		out.Status = http.StatusNoContent
		return out, nil
	}
	out.Status = http.StatusOK
	out.ContentType = "application/vnd.mapbox-vector-tile"
	out.ContentEncoding = "gzip"
	out.Body = data
	return out, nil
}

func (h *APIHandler) GetSources(ctx context.Context, input *struct{}) (*struct{ Body []service.SourceFile }, error) {
	if h.svc == nil || h.svc.Source == nil {
		return &struct{ Body []service.SourceFile }{Body: []service.SourceFile{}}, nil
	}
	sources, err := h.svc.Source.List()
	if err != nil {
		return &struct{ Body []service.SourceFile }{Body: []service.SourceFile{}}, nil
	}
	return &struct{ Body []service.SourceFile }{Body: sources}, nil
}

func (h *APIHandler) CreateSession(ctx context.Context, input *CreateSessionInput) (*SessionOutput, error) {
	if h.svc == nil || h.svc.Sessions == nil {
		return nil, huma.Error503ServiceUnavailable("sessions not available")
	}
	preset := input.Body.Preset
	if preset == "" {
		preset = h.svc.Sessions.Catalog().Presets().Default()
	}
	sess, err := h.svc.Sessions.Create(ctx, preset)
	if err != nil {
		return nil, toHumaError(err)
	}
	return &SessionOutput{Body: SessionBody{sess.State()}}, nil
}

func (h *APIHandler) GetSession(ctx context.Context, input *SessionIDInput) (*SessionOutput, error) {
	sess, err := h.session(input.ID)
	if err != nil {
		return nil, err
	}
	return &SessionOutput{Body: SessionBody{sess.State()}}, nil
}

func (h *APIHandler) DeleteSession(ctx context.Context, input *SessionIDInput) (*struct{ Body MessageBody }, error) {
	if h.svc == nil || h.svc.Sessions == nil {
		return nil, huma.Error503ServiceUnavailable("sessions not available")
	}
	if err := h.svc.Sessions.Delete(input.ID); err != nil {
		return nil, toHumaError(err)
	}
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "Session deleted"}}, nil
}

func (h *APIHandler) Forward(ctx context.Context, input *SessionIDInput) (*SessionOutput, error) {
	return h.step(input.ID, (*service.Session).Forward)
}

func (h *APIHandler) Reverse(ctx context.Context, input *SessionIDInput) (*SessionOutput, error) {
	return h.step(input.ID, (*service.Session).Reverse)
}

func (h *APIHandler) Slide(ctx context.Context, input *SequenceInput) (*SessionOutput, error) {
	return h.step(input.ID, func(s *service.Session) (service.SessionState, error) {
		return s.Slide(input.Body.Index)
	})
}

func (h *APIHandler) GetSymbols(ctx context.Context, input *SessionIDInput) (*struct{ Body []service.Marker }, error) {
	sess, err := h.session(input.ID)
	if err != nil {
		return nil, err
	}
	return &struct{ Body []service.Marker }{Body: sess.Markers()}, nil
}

func (h *APIHandler) GetLegend(ctx context.Context, input *SessionIDInput) (*struct{ Body service.Legend }, error) {
	sess, err := h.session(input.ID)
	if err != nil {
		return nil, err
	}
	return &struct{ Body service.Legend }{Body: sess.Legend()}, nil
}

func (h *APIHandler) SetOverlay(ctx context.Context, input *OverlayInput) (*SessionOutput, error) {
	sess, err := h.session(input.ID)
	if err != nil {
		return nil, err
	}
	return &SessionOutput{Body: SessionBody{sess.SetOverlay(input.Body.Visible)}}, nil
}

func (h *APIHandler) session(id string) (*service.Session, error) {
	if h.svc == nil || h.svc.Sessions == nil {
		return nil, huma.Error503ServiceUnavailable("sessions not available")
	}
	sess, err := h.svc.Sessions.Get(id)
	if err != nil {
		return nil, toHumaError(err)
	}
	return sess, nil
}

func (h *APIHandler) step(id string, fn func(*service.Session) (service.SessionState, error)) (*SessionOutput, error) {
	sess, err := h.session(id)
	if err != nil {
		return nil, err
	}
	state, err := fn(sess)
	if err != nil {
		return nil, toHumaError(err)
	}
	return &SessionOutput{Body: SessionBody{state}}, nil
}

// toHumaError maps service errors to HTTP errors.
func toHumaError(err error) error {
	switch {
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, config.ErrPresetNotFound):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, propsym.ErrIndexOutOfRange), errors.Is(err, tiler.ErrInvalidTile):
		return huma.Error422UnprocessableEntity(err.Error())
	case errors.Is(err, service.ErrNoAttributes):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, service.ErrPointsUnavailable):
		return huma.Error503ServiceUnavailable(err.Error())
	default:
		return huma.Error500InternalServerError("dataset error", err)
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
