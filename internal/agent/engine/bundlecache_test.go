package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rdkcentral/webconfig-agent/internal/agent/domain"
)

func TestBundleCache_CurrentGlobalTxID_EmptyBeforeAnyFetch(t *testing.T) {
	c := NewBundleCache()
	require.Empty(t, c.CurrentGlobalTxID())
	require.Empty(t, c.Entries())
}

func TestBundleCache_Set_UpdatesEntriesAndTxID(t *testing.T) {
	c := NewBundleCache()
	entries := []domain.MultipartEntry{{NameSpace: "wifi", Etag: "1", Data: []byte("x")}}

	c.Set("bundle-tx-1", entries)

	require.Equal(t, "bundle-tx-1", c.CurrentGlobalTxID())
	require.Equal(t, entries, c.Entries())
}

func TestBundleCache_Set_ReplacesPreviousBundleWholesale(t *testing.T) {
	c := NewBundleCache()
	c.Set("bundle-tx-1", []domain.MultipartEntry{{NameSpace: "wifi"}})
	c.Set("bundle-tx-2", []domain.MultipartEntry{{NameSpace: "lan"}})

	require.Equal(t, "bundle-tx-2", c.CurrentGlobalTxID())
	require.Len(t, c.Entries(), 1)
	require.Equal(t, "lan", c.Entries()[0].NameSpace)
}
