package utils_test

import (
	"testing"

	"github.com/jrsteele09/pigmy-admin/internal/utils"
	"github.com/stretchr/testify/require"
)

func TestValueOr(t *testing.T) {
	require.True(t, utils.ValueOr(nil, true))
	require.False(t, utils.ValueOr(utils.Ptr(false), true))
}

func TestNonNil(t *testing.T) {
	type org struct{ Name string }

	require.Equal(t, &org{}, utils.NonNil[org](nil))

	existing := &org{Name: "Shree"}
	require.Same(t, existing, utils.NonNil(existing))
}
