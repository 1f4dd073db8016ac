package api

import (
	"fmt"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/propmap/internal/humastar"
)

// links maps operation paths to their RFC 8288 Link header values.
// Enables restish hypermedia navigation via `restish links <url>`.
var links = map[string][]string{
	"/health": {
		`</api/v1/info>; rel="info"`,
		`</api/v1/presets>; rel="presets"`,
		`</api/v1/sources>; rel="sources"`,
	},
	"/api/v1/info": {
		`</health>; rel="health"`,
		`</api/v1/presets>; rel="presets"`,
	},
	"/api/v1/presets": {
		`</api/v1/sessions>; rel="create-form"`,
		`</api/v1/sources>; rel="sources"`,
	},
	"/api/v1/presets/{name}": {
		`</api/v1/presets>; rel="collection"`,
	},
	"/api/v1/presets/{name}/attributes": {
		`</api/v1/presets>; rel="up"`,
	},
	"/api/v1/presets/{name}/overlay": {
		`</api/v1/presets>; rel="up"`,
	},
	"/api/v1/sources": {
		`</api/v1/presets>; rel="presets"`,
	},
	"/api/v1/sessions/{id}/symbols": {
		`</api/v1/presets>; rel="presets"`,
	},
	"/api/v1/tables": {
		`</api/v1/query>; rel="search"`,
	},
}

// LinkTransformer returns a Huma Transformer that injects RFC 8288 Link
// headers: static navigation links, a self link on item endpoints and the
// state-dependent actions of bodies implementing humastar.Actor.
func LinkTransformer() huma.Transformer {
	return func(ctx huma.Context, status string, v any) (any, error) {
		op := ctx.Operation()
		if op == nil {
			return v, nil
		}

		for _, link := range links[op.Path] {
			ctx.AppendHeader("Link", link)
		}

		// Item endpoints get a self link
		if strings.Contains(op.Path, "{") {
			ctx.AppendHeader("Link", fmt.Sprintf(`<%s>; rel="self"`, ctx.URL().Path))
		}

		if actor, ok := v.(humastar.Actor); ok {
			for _, a := range actor.Actions() {
				ctx.AppendHeader("Link", a.LinkHeader())
			}
		}

		return v, nil
	}
}
