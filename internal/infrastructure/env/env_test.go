package env

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetString(t *testing.T) {
	t.Setenv("ZR_TEST_STRING", "value")
	assert.Equal(t, "value", GetString("ZR_TEST_STRING", "fallback"))
	assert.Equal(t, "fallback", GetString("ZR_TEST_MISSING", "fallback"))

	t.Setenv("ZR_TEST_EMPTY", "")
	assert.Equal(t, "fallback", GetString("ZR_TEST_EMPTY", "fallback"))
}

func TestGetInt(t *testing.T) {
	t.Setenv("ZR_TEST_INT", "42")
	t.Setenv("ZR_TEST_BAD_INT", "forty-two")

	assert.Equal(t, 42, GetInt("ZR_TEST_INT", 7))
	assert.Equal(t, 7, GetInt("ZR_TEST_BAD_INT", 7))
	assert.Equal(t, 7, GetInt("ZR_TEST_MISSING", 7))
}

func TestGetBool(t *testing.T) {
	t.Setenv("ZR_TEST_BOOL", "true")
	t.Setenv("ZR_TEST_BAD_BOOL", "maybe")

	assert.True(t, GetBool("ZR_TEST_BOOL", false))
	assert.False(t, GetBool("ZR_TEST_BAD_BOOL", false))
}

func TestGetDuration(t *testing.T) {
	t.Setenv("ZR_TEST_DURATION", "90s")
	assert.Equal(t, 90*time.Second, GetDuration("ZR_TEST_DURATION", time.Second))
	assert.Equal(t, time.Second, GetDuration("ZR_TEST_MISSING", time.Second))
}
