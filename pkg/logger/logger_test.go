package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewHonorsLevel(t *testing.T) {
	l, err := New("debug")
	require.NoError(t, err)
	require.True(t, l.Core().Enabled(zap.DebugLevel))

	l, err = New("")
	require.NoError(t, err)
	require.False(t, l.Core().Enabled(zap.DebugLevel))
	require.True(t, l.Core().Enabled(zap.InfoLevel))

	_, err = New("loud")
	require.Error(t, err)
}

func TestMustPanicsOnError(t *testing.T) {
	require.Panics(t, func() {
		Must(New("loud"))
	})
}
