package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestParsePrices(t *testing.T) {
	got, err := parsePrices("--local", map[string]string{"usdt": "90.5", " btc ": " 7500000 "})
	require.NoError(t, err)
	require.True(t, got["USDT"].Equal(decimal.RequireFromString("90.5")))
	require.True(t, got["BTC"].Equal(decimal.NewFromInt(7500000)))

	_, err = parsePrices("--local", map[string]string{"ETH": "abc"})
	require.Error(t, err)

	_, err = parsePrices("--global", map[string]string{"ETH": "-1"})
	require.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	versionCmd.Run(versionCmd, nil)
	require.True(t, strings.HasPrefix(out.String(), "version: "))
}
