package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		Validation:        http.StatusBadRequest,
		IllegalTransition: http.StatusBadRequest,
		NotFound:          http.StatusNotFound,
		Unauthorized:      http.StatusUnauthorized,
		Forbidden:         http.StatusForbidden,
		Conflict:          http.StatusConflict,
		Internal:          http.StatusInternalServerError,
	}

	for kind, want := range cases {
		require.Equal(t, want, kind.HTTPStatus(), kind.String())
	}
}

func TestKindOf(t *testing.T) {
	err := New(Conflict, "insufficient stock")
	require.Equal(t, Conflict, KindOf(err))

	wrapped := fmt.Errorf("placing order: %w", err)
	require.Equal(t, Conflict, KindOf(wrapped))

	require.Equal(t, Internal, KindOf(errors.New("driver exploded")))
	require.Equal(t, Internal, KindOf(nil))
}

func TestWrapPreservesChain(t *testing.T) {
	cause := errors.New("no rows")
	err := Wrap(NotFound, "order not found", cause)

	require.ErrorIs(t, err, cause)
	require.Equal(t, "order not found: no rows", err.Error())
	require.Equal(t, "order not found", MessageOf(err))
}

func TestMessageOfUnknownError(t *testing.T) {
	require.Equal(t, "internal server error", MessageOf(errors.New("pq: deadlock detected")))
}
