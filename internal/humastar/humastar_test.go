package humastar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSignals(t *testing.T) {
	s, err := ParseSignals([]byte(`{"index": 3, "slider": "5", "overlay": true, "name": "tx"}`))
	require.NoError(t, err)

	i, ok := s.Int("index")
	assert.True(t, ok)
	assert.Equal(t, 3, i)

	i, ok = s.Int("slider")
	assert.True(t, ok)
	assert.Equal(t, 5, i)

	_, ok = s.Int("missing")
	assert.False(t, ok)
	_, ok = s.Int("name")
	assert.False(t, ok)

	assert.True(t, s.Bool("overlay"))
	assert.Equal(t, "tx", s.String("name"))
	assert.True(t, s.Has("overlay"))
	assert.False(t, s.Has("year"))

	_, err = ParseSignals([]byte(`{`))
	assert.Error(t, err)
}

func TestActionsFor(t *testing.T) {
	actions := ActionsFor("abc", []ActionDef{
		{Rel: "next", Pattern: "/api/v1/sessions/%s/forward", Method: "POST", Title: "Step forward"},
		{Rel: "self", Pattern: "/api/v1/sessions/%s"},
	})

	require.Len(t, actions, 2)
	assert.Equal(t, `</api/v1/sessions/abc/forward>; rel="next"; method="POST"; title="Step forward"`, actions[0].LinkHeader())
	assert.Equal(t, `</api/v1/sessions/abc>; rel="self"`, actions[1].LinkHeader())
}
