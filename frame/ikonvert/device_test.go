package ikonvert

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyLine(t *testing.T) {
	require.Equal(t, LineKindStatus, ClassifyLine("$PDGY,ACK,RX_LIST"))
	require.Equal(t, LineKindPGN, ClassifyLine("!PDGY,130567,6,200,255,25631.18,RgPczwYAQnYeAB4AAAADAAAAAABQbiMA"))
	require.Equal(t, LineKindUnknown, ClassifyLine("garbage"))
}

func TestFeedTracksStatusOnlyReinit(t *testing.T) {
	d := NewDevice()
	var needsReinit bool
	for i := 0; i < reinitThreshold-1; i++ {
		_, needsReinit, err := d.Feed("$PDGY,ACK,ignored")
		require.NoError(t, err)
		require.False(t, needsReinit)
	}
	_, needsReinit, err := d.Feed("$PDGY,ACK,ignored")
	require.NoError(t, err)
	require.True(t, needsReinit)
}

func TestFeedResetsStatusCountOnPGN(t *testing.T) {
	d := NewDevice()
	for i := 0; i < reinitThreshold-1; i++ {
		_, _, err := d.Feed("$PDGY,ACK,ignored")
		require.NoError(t, err)
	}
	_, needsReinit, err := d.Feed("!PDGY,130567,6,200,255,25631.18,RgPczwYAQnYeAB4AAAADAAAAAABQbiMA")
	require.NoError(t, err)
	require.False(t, needsReinit)
	require.Equal(t, 0, d.statusOnlyCount)
}

func TestRollAroundRebasesForward(t *testing.T) {
	d := NewDevice()
	// First message anchors the clock.
	rm1, _, err := d.Feed("!PDGY,130567,6,200,255,999.950,RgPczwYAQnYeAB4AAAADAAAAAABQbiMA")
	require.NoError(t, err)

	// Second message's relative clock has wrapped back to near zero;
	// the absolute timestamp must advance, not regress.
	rm2, _, err := d.Feed("!PDGY,130567,6,200,255,000.050,RgPczwYAQnYeAB4AAAADAAAAAABQbiMA")
	require.NoError(t, err)

	require.True(t, rm2.Timestamp.After(rm1.Timestamp) || rm2.Timestamp.Equal(rm1.Timestamp))
	delta := rm2.Timestamp.Sub(rm1.Timestamp)
	require.InDelta(t, 100, delta.Milliseconds(), 5)
}

func TestInitCommandsNoFilter(t *testing.T) {
	cmds := InitCommands(InitOptions{})
	require.Equal(t, []string{"$PDGY,OFFLINE", "$PDGY,ONLINE,ALL"}, cmds)
}

func TestInitCommandsWithFilter(t *testing.T) {
	cmds := InitCommands(InitOptions{RXAllow: []uint32{127250, 130306}, Verbose: true})
	require.Equal(t, []string{
		"$PDGY,OFFLINE",
		"$PDGY,RESET",
		"$PDGY,RX_LIST,127250,130306",
		"$PDGY,SHOW_LISTS",
		"$PDGY,ONLINE,NORMAL",
	}, cmds)
}
