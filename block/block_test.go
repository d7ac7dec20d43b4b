package block

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestManagerTracksActiveAndPeak(t *testing.T) {
	m := NewManager(10)
	b1 := m.NewBlock()
	b2 := m.NewBlock()
	require.Equal(t, int64(2), m.Stats().Active)
	require.Equal(t, int64(2), m.Stats().Peak)
	m.Release(b1)
	require.Equal(t, int64(1), m.Stats().Active)
	require.Equal(t, int64(2), m.Stats().Peak)
	m.Release(b2)
	require.Equal(t, int64(0), m.Stats().Active)
}

func TestBlockFullAtCapacity(t *testing.T) {
	m := NewManager(2)
	b := m.NewBlock()
	require.False(t, b.Full())
	b.Append(Row{})
	require.False(t, b.Full())
	b.Append(Row{})
	require.True(t, b.Full())
}
