package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"p2p-premium/internal/app"
	"p2p-premium/internal/premium"
)

var (
	simulateFX     float64
	simulateLocal  map[string]string
	simulateGlobal map[string]string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run one cycle against static prices (no network)",
	Example: `  premiumwatch simulate --fx 83.2 \
    --local USDT=90.5,BTC=7500000,ETH=300000 \
    --global BTC=90000,ETH=3600`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateFX < 0 {
			return errors.New("--fx cannot be negative")
		}

		opts := app.SimulateOptions{}
		if simulateFX > 0 {
			opts.ExchangeRate = premium.Present(decimal.NewFromFloat(simulateFX))
		}

		var err error
		if opts.Local, err = parsePrices("--local", simulateLocal); err != nil {
			return err
		}
		if opts.Global, err = parsePrices("--global", simulateGlobal); err != nil {
			return err
		}

		_, err = getApp().Simulate(cmd.Context(), opts)
		return err
	},
}

func parsePrices(flag string, raw map[string]string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(raw))
	for symbol, value := range raw {
		price, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("invalid %s price for %s: %w", flag, symbol, err)
		}
		if price.IsNegative() {
			return nil, fmt.Errorf("%s price for %s cannot be negative", flag, symbol)
		}
		out[strings.ToUpper(strings.TrimSpace(symbol))] = price
	}
	return out, nil
}

func init() {
	simulateCmd.Flags().Float64Var(&simulateFX, "fx", 0, "Local currency per USD (omit to simulate an unavailable rate)")
	simulateCmd.Flags().StringToStringVar(&simulateLocal, "local", nil, "P2P prices in local currency, SYMBOL=PRICE")
	simulateCmd.Flags().StringToStringVar(&simulateGlobal, "global", nil, "Global USD prices, SYMBOL=PRICE (stable assets are fixed at 1)")
}
