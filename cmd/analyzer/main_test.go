package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const windDataLine = "2023-01-01-00:00:00.000,2,130306,1,255,8,ff,64,00,10,27,02,ff,ff\n"

func TestRunJSONDecodesPlainLine(t *testing.T) {
	var out bytes.Buffer
	err := run([]string{"analyzer", "-json"}, strings.NewReader(windDataLine), &out)
	require.NoError(t, err)

	var msg struct {
		PGN    int                    `json:"pgn"`
		Fields map[string]interface{} `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &msg))
	require.Equal(t, 130306, msg.PGN)
	require.Contains(t, msg.Fields, "Wind Speed")
}

func TestRunTextModeByDefault(t *testing.T) {
	var out bytes.Buffer
	err := run([]string{"analyzer"}, strings.NewReader(windDataLine), &out)
	require.NoError(t, err)
	require.Contains(t, out.String(), "Wind Speed =")
}

func TestRunCamelRenamesFields(t *testing.T) {
	var out bytes.Buffer
	err := run([]string{"analyzer", "-json", "-camel"}, strings.NewReader(windDataLine), &out)
	require.NoError(t, err)

	var msg struct {
		Fields map[string]interface{} `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &msg))
	require.Contains(t, msg.Fields, "windSpeed")
	require.NotContains(t, msg.Fields, "Wind Speed")
}

func TestRunSrcFilterDropsOtherSources(t *testing.T) {
	var out bytes.Buffer
	err := run([]string{"analyzer", "-json", "-src", "9"}, strings.NewReader(windDataLine), &out)
	require.NoError(t, err)
	require.Empty(t, out.String())
}

func TestRunPGNFilterKeepsMatchingArgument(t *testing.T) {
	var out bytes.Buffer
	err := run([]string{"analyzer", "-json", "130306"}, strings.NewReader(windDataLine), &out)
	require.NoError(t, err)
	require.Contains(t, out.String(), "130306")
}

func TestRunPGNFilterDropsNonMatching(t *testing.T) {
	var out bytes.Buffer
	err := run([]string{"analyzer", "-json", "127250"}, strings.NewReader(windDataLine), &out)
	require.NoError(t, err)
	require.Empty(t, out.String())
}

func TestRunListPrintsCatalogEntries(t *testing.T) {
	var out bytes.Buffer
	err := run([]string{"analyzer", "-list"}, strings.NewReader(""), &out)
	require.NoError(t, err)
	require.Contains(t, out.String(), "130306")
}

func TestRunExplainPGNPrintsFieldTable(t *testing.T) {
	var out bytes.Buffer
	err := run([]string{"analyzer", "-explain-pgn", "130306"}, strings.NewReader(""), &out)
	require.NoError(t, err)
	require.Contains(t, out.String(), "Wind Speed")
}

func TestRunExplainPGNUnknownReturnsExitError(t *testing.T) {
	var out bytes.Buffer
	err := run([]string{"analyzer", "-explain-pgn", "999999"}, strings.NewReader(""), &out)
	require.Error(t, err)
}

func TestRunMutuallyExclusiveCamelFlagsRejected(t *testing.T) {
	var out bytes.Buffer
	err := run([]string{"analyzer", "-camel", "-upper-camel"}, strings.NewReader(""), &out)
	require.Error(t, err)
}
