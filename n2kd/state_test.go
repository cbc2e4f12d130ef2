package n2kd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSecondaryKeyTimeoutInstance(t *testing.T) {
	key, timeout := secondaryKeyTimeout(127505, map[string]interface{}{"Instance": float64(1)})
	require.NotEmpty(t, key)
	require.Equal(t, timeoutShort, timeout)
}

func TestSecondaryKeyTimeoutMessageID(t *testing.T) {
	_, timeout := secondaryKeyTimeout(129038, map[string]interface{}{"Message ID": float64(3)})
	require.Equal(t, timeoutLong, timeout)
}

func TestSecondaryKeyTimeoutAddressClaimAlwaysLong(t *testing.T) {
	_, timeout := secondaryKeyTimeout(pgnISOAddressClaim, map[string]interface{}{})
	require.Equal(t, timeoutVeryLong, timeout)
}

func TestSecondaryKeyTimeoutNoneDefaultsShort(t *testing.T) {
	key, timeout := secondaryKeyTimeout(127250, map[string]interface{}{})
	require.Empty(t, key)
	require.Equal(t, timeoutShort, timeout)
}

func TestStateMapStoreAndDump(t *testing.T) {
	s := NewStateMap()
	now := time.Now()
	s.Store(`{"pgn":127250,"src":1,"fields":{"Heading":1.0}}`, now)
	s.Store(`{"pgn":130306,"src":2,"fields":{"Wind Speed":1.0}}`, now)

	dump := s.Dump(now)
	require.Len(t, dump, 2)
}

func TestStateMapEntriesExpire(t *testing.T) {
	s := NewStateMap()
	now := time.Now()
	s.Store(`{"pgn":127250,"src":1,"fields":{}}`, now)

	dump := s.Dump(now.Add(timeoutShort + time.Second))
	require.Empty(t, dump)
	require.Equal(t, 0, s.Len())
}

func TestStateMapLongLivedEntrySurvivesShortTimeout(t *testing.T) {
	s := NewStateMap()
	now := time.Now()
	s.Store(`{"pgn":60928,"src":5,"fields":{}}`, now)

	dump := s.Dump(now.Add(timeoutShort + time.Second))
	require.Len(t, dump, 1)
}

func TestStateMapIgnoresUnparsableLines(t *testing.T) {
	s := NewStateMap()
	s.Store("not json", time.Now())
	require.Equal(t, 0, s.Len())
}

func TestStateMapSecondaryKeysKeptSeparate(t *testing.T) {
	s := NewStateMap()
	now := time.Now()
	s.Store(`{"pgn":127505,"src":1,"fields":{"Instance":0}}`, now)
	s.Store(`{"pgn":127505,"src":1,"fields":{"Instance":1}}`, now)

	require.Equal(t, 2, s.Len())
}
