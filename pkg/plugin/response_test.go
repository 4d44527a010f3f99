package plugin

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResponseAccessors(t *testing.T) {
	ok := Success(9)
	require.False(t, ok.Failed())
	require.Equal(t, 9, ok.Result())
	require.Nil(t, ok.Err())
	require.Zero(t, ok.Code())
	require.Equal(t, "Success(9)", ok.String())

	bad := Failure(-143, "Invalid input param")
	require.True(t, bad.Failed())
	require.Nil(t, bad.Result())
	require.Equal(t, int32(-143), bad.Code())
	require.Equal(t, "Invalid input param", bad.Message())
	require.Equal(t, `Failure(-143, "Invalid input param")`, bad.String())
}

func TestResponseErrIsCopy(t *testing.T) {
	bad := Failure(1, "original")
	e := bad.Err()
	e.Message = "changed"
	require.Equal(t, "original", bad.Message())

	var target *Error
	require.True(t, errors.As(error(bad.Err()), &target))
	require.Equal(t, "plugin error 1: original", target.Error())
}

func TestZeroResponse(t *testing.T) {
	var r Response
	require.False(t, r.Failed())
	require.Nil(t, r.Result())
}
