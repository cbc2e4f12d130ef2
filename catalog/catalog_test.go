package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadEmbeddedCatalog(t *testing.T) {
	c := Load()
	require.NotEmpty(t, c.All())

	entry, ok := c.Lookup(130306, make([]byte, 8))
	require.True(t, ok)
	require.Equal(t, "windData", entry.ID)
}

func TestLookupFallsBackToProprietaryRange(t *testing.T) {
	c := Load()
	entry, ok := c.Lookup(65290, make([]byte, 8))
	require.True(t, ok)
	require.True(t, entry.Fallback)
}

func TestLookupUnknownPGN(t *testing.T) {
	c := Load()
	_, ok := c.Lookup(999999, nil)
	require.False(t, ok)
}

func TestLookupNameUnknownValue(t *testing.T) {
	require.Equal(t, "True", LookupName("DIRECTION_REFERENCE", 0))
	require.Equal(t, "<99>", LookupName("DIRECTION_REFERENCE", 99))
}

func TestBitLookupNames(t *testing.T) {
	names := BitLookupNames("ENGINE_STATUS_1", 0x5)
	require.Equal(t, []string{"Check Engine", "Low Oil Pressure"}, names)
}
