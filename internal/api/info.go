package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/propmap/internal/service"
)

type InfoHandler struct {
	dataDir  string
	dbOK     bool
	sessions *service.SessionService
}

func NewInfoHandler(dataDir string, dbOK bool, sessions *service.SessionService) *InfoHandler {
	return &InfoHandler{dataDir: dataDir, dbOK: dbOK, sessions: sessions}
}

func (h *InfoHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

type InfoBody struct {
	Name     string   `json:"name" doc:"Service name"`
	Version  string   `json:"version" doc:"Service version"`
	DataDir  string   `json:"data_dir" doc:"Data directory path"`
	DB       bool     `json:"db" doc:"Whether database is available"`
	Presets  []string `json:"presets" doc:"Configured map presets"`
	Sessions int      `json:"sessions" doc:"Live map sessions"`
	Features []string `json:"features" doc:"Available features"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	body := InfoBody{
		Name:     "propmap",
		Version:  "0.1.0",
		DataDir:  h.dataDir,
		DB:       h.dbOK,
		Presets:  []string{},
		Features: []string{"geojson", "proportional-symbols", "datastar", "duckdb"},
	}
	if h.sessions != nil {
		for _, p := range h.sessions.Catalog().Presets().List() {
			body.Presets = append(body.Presets, p.Name)
		}
		body.Sessions = h.sessions.Len()
	}
	return &struct{ Body InfoBody }{Body: body}, nil
}
