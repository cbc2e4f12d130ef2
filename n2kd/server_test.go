package n2kd

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/kkroon/gonmea2k/common"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, []net.Addr) {
	t.Helper()
	s := NewServer(common.NewLogger(), false)
	addrs, err := s.ListenAndServe(0)
	require.NoError(t, err)
	go s.Run()
	t.Cleanup(s.Stop)
	return s, addrs
}

func TestOnDemandJSONClientReceivesDumpAndCloses(t *testing.T) {
	s, addrs := newTestServer(t)

	s.lines_ <- `{"pgn":127250,"src":1,"fields":{"Heading":1.0}}`
	time.Sleep(50 * time.Millisecond)

	conn, err := net.Dial("tcp", addrs[roleJSONOnDemand].String())
	require.NoError(t, err)
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	scanner := bufio.NewScanner(conn)
	require.True(t, scanner.Scan())
	require.Contains(t, scanner.Text(), "127250")
}

func TestJSONStreamClientReceivesSubsequentLines(t *testing.T) {
	s, addrs := newTestServer(t)

	conn, err := net.Dial("tcp", addrs[roleJSONStream].String())
	require.NoError(t, err)
	defer conn.Close()
	time.Sleep(50 * time.Millisecond)

	s.lines_ <- `{"pgn":130306,"src":2,"fields":{"Wind Speed":1.0}}`

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	scanner := bufio.NewScanner(conn)
	require.True(t, scanner.Scan())
	require.Contains(t, scanner.Text(), "130306")
}

func TestNMEA0183StreamClientReceivesDerivedSentence(t *testing.T) {
	s, addrs := newTestServer(t)

	conn, err := net.Dial("tcp", addrs[roleNMEA0183Stream].String())
	require.NoError(t, err)
	defer conn.Close()
	time.Sleep(50 * time.Millisecond)

	s.lines_ <- `{"pgn":130306,"src":2,"fields":{"Wind Speed":1.0,"Wind Angle":1.0,"Reference":"Apparent"}}`

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	scanner := bufio.NewScanner(conn)
	require.True(t, scanner.Scan())
	require.Contains(t, scanner.Text(), "MWV")
}
