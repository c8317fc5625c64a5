package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Wrap(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Wrap(cause, ErrEmbeddingFailed, "embed batch 0")

	assert.ErrorIs(t, err, cause)
	assert.True(t, stderrors.Is(err, New(ErrEmbeddingFailed, "")))
	assert.False(t, stderrors.Is(err, New(ErrVectorSearch, "")))
	assert.Contains(t, err.Error(), "connection refused")
	assert.Contains(t, err.Error(), "[2003]")
}

func TestHasCode(t *testing.T) {
	inner := Newf(ErrHopLimitExceeded, "turn exceeded %d hops", 10)
	outer := fmt.Errorf("run agent: %w", inner)

	assert.True(t, HasCode(outer, ErrHopLimitExceeded))
	assert.False(t, HasCode(outer, ErrStructuredOutput))
	assert.Equal(t, inner, GetAppError(outer))
	assert.True(t, IsAppError(outer))
	assert.False(t, IsAppError(stderrors.New("plain")))
}

func TestHTTPStatusCode(t *testing.T) {
	assert.Equal(t, 400, ErrInvalidParameter.HTTPStatusCode())
	assert.Equal(t, 502, ErrLLMCallFailed.HTTPStatusCode())
	assert.Equal(t, 502, ErrStructuredOutput.HTTPStatusCode())
	assert.Equal(t, 500, ErrHopLimitExceeded.HTTPStatusCode())
	assert.Equal(t, 500, ErrVectorSearch.HTTPStatusCode())
}
