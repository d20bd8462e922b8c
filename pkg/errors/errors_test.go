package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromErrorKeepsTypedErrors(t *testing.T) {
	wrapped := fmt.Errorf("loading roster: %w", Clone(ErrValidation, "duplicate roster id"))

	appErr := FromError(wrapped)
	require.Equal(t, ErrValidation.Code, appErr.Code)
	require.Equal(t, "duplicate roster id", appErr.Message)
	require.Equal(t, http.StatusBadRequest, appErr.Status)
}

func TestFromErrorWrapsUnknownErrors(t *testing.T) {
	cause := errors.New("disk full")

	appErr := FromError(cause)
	require.Equal(t, ErrInternal.Code, appErr.Code)
	require.ErrorIs(t, appErr, cause)
	require.Equal(t, "internal server error: disk full", appErr.Error())
}

func TestCloneDoesNotMutateOriginal(t *testing.T) {
	clone := Clone(ErrParse, "due time must be HH:MM")

	require.Equal(t, "invalid date or time format", ErrParse.Message)
	require.Equal(t, "due time must be HH:MM", clone.Message)
	require.Nil(t, Clone(nil, "x"))
	require.Nil(t, FromError(nil))
}
