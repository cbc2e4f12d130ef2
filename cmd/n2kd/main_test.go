package main

import (
	"bufio"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseSrcFilterSplitsCommaSeparatedValues(t *testing.T) {
	got, err := parseSrcFilter("1,2, 3")
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3}, got)
}

func TestParseSrcFilterEmptyReturnsNil(t *testing.T) {
	got, err := parseSrcFilter("")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestParseSrcFilterRejectsNonNumeric(t *testing.T) {
	_, err := parseSrcFilter("abc")
	require.Error(t, err)
}

func TestFilterSrcPassesThroughWhenNoFilter(t *testing.T) {
	in := strings.NewReader(`{"src":1}` + "\n")
	out := filterSrc(in, nil)
	scanner := bufio.NewScanner(out)
	require.True(t, scanner.Scan())
	require.Equal(t, `{"src":1}`, scanner.Text())
}

func TestFilterSrcDropsDisallowedSource(t *testing.T) {
	in := strings.NewReader(`{"src":1}` + "\n" + `{"src":2}` + "\n")
	out := filterSrc(in, []int{2})
	scanner := bufio.NewScanner(out)
	require.True(t, scanner.Scan())
	require.Equal(t, `{"src":2}`, scanner.Text())
	require.False(t, scanner.Scan())
}
