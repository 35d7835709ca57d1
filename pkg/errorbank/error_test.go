package errorbank

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
)

func TestKindMappings(t *testing.T) {
	tests := []struct {
		err    *AppError
		status int
		code   codes.Code
	}{
		{BadRequest("bad"), http.StatusBadRequest, codes.InvalidArgument},
		{NotFound("missing"), http.StatusNotFound, codes.NotFound},
		{Conflict("dupe"), http.StatusConflict, codes.AlreadyExists},
		{InvalidTransition("refused"), http.StatusConflict, codes.FailedPrecondition},
		{Unavailable("down"), http.StatusServiceUnavailable, codes.Unavailable},
		{Timeout("slow"), http.StatusGatewayTimeout, codes.DeadlineExceeded},
		{Internal("boom"), http.StatusInternalServerError, codes.Internal},
	}

	for _, tc := range tests {
		t.Run(string(tc.err.Kind()), func(t *testing.T) {
			assert.Equal(t, tc.status, tc.err.StatusCode())
			assert.Equal(t, tc.code, tc.err.GRPCCode())
		})
	}
}

func TestWrappingAndDetails(t *testing.T) {
	cause := errors.New("driver: bad connection")
	err := Unavailable("failed to load order",
		WithCause(cause),
		WithDetail("order_id", int64(7)),
	)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to load order: driver: bad connection", err.Error())
	assert.Equal(t, int64(7), err.Details()["order_id"])
}

func TestFrom(t *testing.T) {
	appErr := NotFound("missing")
	require.Same(t, appErr, From(appErr))

	wrapped := From(errors.New("surprise"))
	assert.Equal(t, KindInternal, wrapped.Kind())
	assert.ErrorContains(t, wrapped, "surprise")

	assert.Nil(t, From(nil))
}
