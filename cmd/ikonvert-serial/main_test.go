package main

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/kkroon/gonmea2k/common"
	"github.com/stretchr/testify/require"
)

func TestParsePGNListSplitsCommaSeparatedValues(t *testing.T) {
	got, err := parsePGNList([]string{"127250,129025", "60928"})
	require.NoError(t, err)
	require.Equal(t, []uint32{127250, 129025, 60928}, got)
}

func TestParsePGNListRejectsNonNumeric(t *testing.T) {
	_, err := parsePGNList([]string{"abc"})
	require.Error(t, err)
}

func TestEncodeOutboundBase64ByDefault(t *testing.T) {
	rm := &common.RawMessage{PGN: 127250, Prio: 2, Src: 1, Dst: 255, Data: []byte{0xAA, 0xBB}}
	line := encodeOutbound(rm, false)
	require.True(t, strings.HasPrefix(line, "!PDGY,127250,2,1,255,0.0,"))
	require.Equal(t, base64.RawStdEncoding.EncodeToString(rm.Data)+"\r\n", strings.TrimPrefix(line, "!PDGY,127250,2,1,255,0.0,"))
}

func TestEncodeOutboundHexWhenRequested(t *testing.T) {
	rm := &common.RawMessage{PGN: 127250, Prio: 2, Src: 1, Dst: 255, Data: []byte{0xAA, 0xBB}}
	line := encodeOutbound(rm, true)
	require.Contains(t, line, "aabb")
}

func TestInitDeviceSendsOfflineAndWaitsForAck(t *testing.T) {
	var sent bytes.Buffer
	fake := &fakeConn{write: &sent, read: strings.NewReader("$PDGY,ACK,RX_LIST\r\n$PDGY,ACK,TX_LIST\r\n")}

	err := initDevice(fake, options{rx: []uint32{127250}, tx: []uint32{129025}})
	require.NoError(t, err)
	require.Contains(t, sent.String(), "$PDGY,OFFLINE")
	require.Contains(t, sent.String(), "$PDGY,RX_LIST,127250")
	require.Contains(t, sent.String(), "$PDGY,TX_LIST,129025")
	require.Contains(t, sent.String(), "$PDGY,ONLINE,NORMAL")
}

type fakeConn struct {
	write *bytes.Buffer
	read  *strings.Reader
}

func (f *fakeConn) Write(p []byte) (int, error) { return f.write.Write(p) }
func (f *fakeConn) Read(p []byte) (int, error)  { return f.read.Read(p) }

func TestReadLoopDecodesBinaryLine(t *testing.T) {
	line := "!PDGY,127250,2,1,255,0.050," + base64.RawStdEncoding.EncodeToString([]byte{0xAA, 0xBB}) + "\r\n"
	fake := &fakeConn{write: &bytes.Buffer{}, read: strings.NewReader(line)}

	var out bytes.Buffer
	err := readLoop(fake, &out, 0, 0, options{})
	require.NoError(t, err)
	require.Contains(t, out.String(), "127250")
}

func TestRunRejectsMissingDeviceArgument(t *testing.T) {
	err := run([]string{"ikonvert-serial"}, strings.NewReader(""), &bytes.Buffer{})
	require.Error(t, err)
	var exitErr *common.ExitError
	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, 1, exitErr.Code)
}
