package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("WISDOM_DECAY", "0.25")
	t.Setenv("WISDOM_BAD_NUMBER", "lots")
	t.Setenv("WISDOM_SEED", "42")
	t.Setenv("WISDOM_FLAG", "true")
	t.Setenv("WISDOM_EMPTY", "")

	assert.Equal(t, 0.25, GetEnvNumeric("WISDOM_DECAY", 0.6))
	assert.Equal(t, 0.6, GetEnvNumeric("WISDOM_BAD_NUMBER", 0.6))
	assert.Equal(t, 0.6, GetEnvNumeric("WISDOM_MISSING", 0.6))
	assert.Equal(t, 42, GetEnvInt("WISDOM_SEED", 7))

	seed, ok := GetEnvUint64("WISDOM_SEED")
	assert.True(t, ok)
	assert.Equal(t, uint64(42), seed)
	_, ok = GetEnvUint64("WISDOM_BAD_NUMBER")
	assert.False(t, ok)

	assert.True(t, GetEnvBool("WISDOM_FLAG", false))
	assert.True(t, GetEnvBool("WISDOM_MISSING", true))

	assert.Equal(t, "fallback", GetEnvString("WISDOM_EMPTY", "fallback"))
	assert.Equal(t, "", GetEnv("WISDOM_MISSING"))
}
