package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupCost_KnownModel(t *testing.T) {
	c := LookupCost("gpt-4o-mini")
	require.NotNil(t, c)
	assert.Equal(t, 0.15, c.InputPerMTok)
	assert.Equal(t, 0.6, c.OutputPerMTok)
}

func TestLookupCost_UnknownModel(t *testing.T) {
	assert.Nil(t, LookupCost("totally-made-up-model"))
}

func TestModelCost_Cost(t *testing.T) {
	c := ModelCost{InputPerMTok: 3, OutputPerMTok: 15}

	assert.Equal(t, 0.0, c.Cost(0, 0))
	// 1M in + 1M out at $3/$15 per MTok.
	assert.InDelta(t, 18.0, c.Cost(1_000_000, 1_000_000), 1e-9)
	// Typical marking call: ~2k in, ~400 out.
	assert.InDelta(t, 0.012, c.Cost(2_000, 400), 1e-9)
}
