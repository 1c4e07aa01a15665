package scribe_test

import (
	"testing"

	"github.com/scribehq/scribe"
	"github.com/stretchr/testify/assert"
)

func TestClassify_TotalMapping(t *testing.T) {
	t.Parallel()
	kinds := []scribe.ErrorKind{
		scribe.KindValidation,
		scribe.KindRepoAccess,
		scribe.KindAnalysis,
		scribe.KindRateLimit,
		scribe.KindInsufficientTokens,
		scribe.KindInternal,
		scribe.KindConnection,
		scribe.ErrorKind("SOMETHING_NEW"), // unrecognized kinds still classify
	}
	for _, k := range kinds {
		c := scribe.Classify(k)
		assert.NotEmpty(t, c.Message, "message for %q", k)
		assert.NotEmpty(t, c.Action, "action for %q", k)
	}
}

func TestClassify_DistinguishesKinds(t *testing.T) {
	t.Parallel()
	validation := scribe.Classify(scribe.KindValidation)
	connection := scribe.Classify(scribe.KindConnection)
	rate := scribe.Classify(scribe.KindRateLimit)
	assert.NotEqual(t, validation.Message, connection.Message)
	assert.NotEqual(t, validation.Message, rate.Message)
	assert.NotEqual(t, connection.Message, rate.Message)
}

func TestClassify_UnknownFallsBackToInternal(t *testing.T) {
	t.Parallel()
	assert.Equal(t, scribe.Classify(scribe.KindInternal), scribe.Classify(scribe.ErrorKind("MYSTERY")))
}
