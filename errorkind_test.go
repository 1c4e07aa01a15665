package scribe_test

import (
	"testing"

	"github.com/scribehq/scribe"
	"github.com/stretchr/testify/assert"
)

func TestParseErrorKind(t *testing.T) {
	t.Parallel()
	known := []scribe.ErrorKind{
		scribe.KindValidation,
		scribe.KindRepoAccess,
		scribe.KindAnalysis,
		scribe.KindRateLimit,
		scribe.KindInsufficientTokens,
		scribe.KindInternal,
		scribe.KindConnection,
	}
	for _, k := range known {
		got, ok := scribe.ParseErrorKind(string(k))
		assert.True(t, ok, "%q should parse", k)
		assert.Equal(t, k, got)
	}

	_, ok := scribe.ParseErrorKind("USER_NOT_FOUND")
	assert.False(t, ok, "codes outside the closed set must not parse")
	_, ok = scribe.ParseErrorKind("")
	assert.False(t, ok)
}

func TestErrorKind_Retryable(t *testing.T) {
	t.Parallel()
	assert.True(t, scribe.KindInternal.Retryable())
	assert.True(t, scribe.KindAnalysis.Retryable())
	assert.True(t, scribe.KindRateLimit.Retryable())

	assert.False(t, scribe.KindValidation.Retryable())
	assert.False(t, scribe.KindRepoAccess.Retryable())
	assert.False(t, scribe.KindInsufficientTokens.Retryable())
	assert.False(t, scribe.KindConnection.Retryable())
	assert.False(t, scribe.ErrorKind("MYSTERY").Retryable())
}
