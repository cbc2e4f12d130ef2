package main

import (
	"bufio"
	"bytes"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/kkroon/gonmea2k/common"
	"github.com/stretchr/testify/require"
)

func TestParseEndpointsPairsHostAndPort(t *testing.T) {
	got, err := parseEndpoints([]string{"localhost", "2000", "10.0.0.1", "2001"})
	require.NoError(t, err)
	require.Equal(t, []endpoint{{"localhost", "2000"}, {"10.0.0.1", "2001"}}, got)
}

func TestParseEndpointsRejectsOddArgumentCount(t *testing.T) {
	_, err := parseEndpoints([]string{"localhost"})
	require.Error(t, err)
}

func TestSelectNetworkDefaultsToTCP(t *testing.T) {
	n, err := selectNetwork(false, false, false)
	require.NoError(t, err)
	require.Equal(t, networkTCP, n)
}

func TestSelectNetworkRejectsConflictingFlags(t *testing.T) {
	_, err := selectNetwork(true, true, false)
	require.Error(t, err)
}

func TestRunRejectsMissingEndpoints(t *testing.T) {
	err := run([]string{"iptee"}, strings.NewReader(""), &bytes.Buffer{})
	require.Error(t, err)
	var exitErr *common.ExitError
	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, 1, exitErr.Code)
}

func TestRunForwardsLinesToTCPEndpointAndStdout(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	received := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		scanner := bufio.NewScanner(conn)
		if scanner.Scan() {
			received <- scanner.Text()
		}
	}()

	host, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)

	var out bytes.Buffer
	err = run([]string{"iptee", host, port}, strings.NewReader("hello\n"), &out)
	require.NoError(t, err)
	require.Equal(t, "hello\n", out.String())

	select {
	case line := <-received:
		require.Equal(t, "hello", line)
	case <-time.After(2 * time.Second):
		t.Fatal("endpoint never received the forwarded line")
	}
}
