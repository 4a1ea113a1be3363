package idgen

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewTxID_WithinBounds(t *testing.T) {
	for i := 0; i < 500; i++ {
		id := NewTxID()
		require.GreaterOrEqual(t, id, uint16(TxIDMin))
		require.LessOrEqual(t, id, uint16(TxIDMax))
	}
}

func TestNewGlobalTxID_NonEmptyAndUnique(t *testing.T) {
	a := NewGlobalTxID()
	b := NewGlobalTxID()
	require.NotEmpty(t, a)
	require.NotEmpty(t, b)
	require.NotEqual(t, a, b)
}
