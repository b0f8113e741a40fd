// ABOUTME: Tests for envelope construction and normalization
// ABOUTME: Covers raw-value wrapping and pre-enveloped passthrough
package bridge

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOkWrapsValue(t *testing.T) {
	env := Ok(ModeLive, []int{1, 2})
	assert.True(t, env.Success)
	assert.Equal(t, []int{1, 2}, env.Data)
	assert.Empty(t, env.Error)
	assert.Equal(t, ModeLive, env.Mode)
	assert.Positive(t, env.Timestamp)
}

func TestFailCarriesMessage(t *testing.T) {
	env := Fail(ModeSynthetic, errors.New("client not found"))
	assert.False(t, env.Success)
	assert.Nil(t, env.Data)
	assert.Equal(t, "client not found", env.Error)
	assert.Equal(t, ModeSynthetic, env.Mode)
}

func TestNormalizeWrapsRawValue(t *testing.T) {
	env := normalize(ModeLive, "payload")
	assert.True(t, env.Success)
	assert.Equal(t, "payload", env.Data)
}

func TestNormalizePassesThroughEnvelope(t *testing.T) {
	inner := Envelope{Success: false, Error: "denied", Mode: ModeSynthetic, Timestamp: 12.5}

	env := normalize(ModeLive, inner)
	assert.False(t, env.Success, "pre-enveloped success must survive normalization")
	assert.Equal(t, "denied", env.Error)
	assert.Equal(t, ModeLive, env.Mode, "mode is retagged")
	assert.Equal(t, 12.5, env.Timestamp, "timestamp is preserved")

	byPtr := normalize(ModeLive, &inner)
	assert.Equal(t, env, byPtr)
	assert.Equal(t, ModeSynthetic, inner.Mode, "original envelope is not mutated")
}
