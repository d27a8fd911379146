package checker

import (
	"errors"
	"net/http"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/stretchr/testify/assert"
)

func TestCosmosError(t *testing.T) {
	missing := &azcore.ResponseError{StatusCode: http.StatusNotFound, ErrorCode: "NotFound"}
	err := cosmosError(missing)
	assert.ErrorIs(t, err, ErrNotFound)

	var respErr *azcore.ResponseError
	assert.True(t, errors.As(err, &respErr))
	assert.Equal(t, http.StatusNotFound, respErr.StatusCode)

	throttled := &azcore.ResponseError{StatusCode: http.StatusTooManyRequests}
	assert.NotErrorIs(t, cosmosError(throttled), ErrNotFound)

	plain := errors.New("dial tcp: timeout")
	assert.Same(t, plain, cosmosError(plain))
}
