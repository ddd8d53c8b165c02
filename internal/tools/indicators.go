package tools

import (
	"context"
	"fmt"

	"github.com/markcheno/go-talib"
	"github.com/shopspring/decimal"

	"stockcrew/internal/adapters/yahoo"
	"stockcrew/pkg/templates"
)

// DefaultIndicatorPeriod is the number of calendar days of history used
// when the caller does not specify one.
const DefaultIndicatorPeriod = 365

const notAvailable = "N/A"

// GetPriceIndicators computes moving averages and RSI over daily closes.
func (k *Toolkit) GetPriceIndicators(ctx context.Context, symbol string, periodDays int) Result {
	if periodDays <= 0 {
		periodDays = DefaultIndicatorPeriod
	}
	end := k.deps.Now()
	start := end.AddDate(0, 0, -periodDays)

	bars, err := k.deps.Market.History(ctx, symbol, start, end)
	if err != nil {
		return failure(err, fmt.Sprintf("Error calculating price indicators: %v", err))
	}
	if len(bars) == 0 {
		return Failf("No historical data found for %s in the specified date range.", symbol)
	}

	ind := ComputeIndicators(bars)
	out, err := templates.Get().Render("tools/price_indicators", map[string]any{
		"Symbol":    symbol,
		"Sessions":  len(bars),
		"From":      bars[0].Date.Format(dateLayout),
		"To":        bars[len(bars)-1].Date.Format(dateLayout),
		"LastClose": ind.LastClose,
		"SMA20":     ind.SMA20,
		"SMA50":     ind.SMA50,
		"EMA20":     ind.EMA20,
		"RSI14":     ind.RSI14,
		"RSIState":  ind.RSIState,
		"Trend":     ind.Trend,
	})
	if err != nil {
		return Failf("Error calculating price indicators: %v", err)
	}
	return Ok(out)
}

// Indicators holds rounded indicator values; N/A marks a value with too
// little history behind it.
type Indicators struct {
	LastClose string
	SMA20     string
	SMA50     string
	EMA20     string
	RSI14     string
	RSIState  string
	Trend     string
}

// ComputeIndicators runs ta-lib over bars in chronological order.
func ComputeIndicators(bars []yahoo.Bar) Indicators {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close.InexactFloat64()
	}

	ind := Indicators{
		LastClose: notAvailable,
		SMA20:     notAvailable,
		SMA50:     notAvailable,
		EMA20:     notAvailable,
		RSI14:     notAvailable,
	}
	if len(closes) == 0 {
		return ind
	}
	last := closes[len(closes)-1]
	ind.LastClose = round2(last)

	var sma50 float64
	if len(closes) >= 20 {
		ind.SMA20 = round2(lastValue(talib.Sma(closes, 20)))
		ind.EMA20 = round2(lastValue(talib.Ema(closes, 20)))
	}
	if len(closes) >= 50 {
		sma50 = lastValue(talib.Sma(closes, 50))
		ind.SMA50 = round2(sma50)
		if last >= sma50 {
			ind.Trend = "price above SMA(50)"
		} else {
			ind.Trend = "price below SMA(50)"
		}
	}
	if len(closes) > 14 {
		rsi := lastValue(talib.Rsi(closes, 14))
		ind.RSI14 = round2(rsi)
		switch {
		case rsi >= 70:
			ind.RSIState = "overbought"
		case rsi <= 30:
			ind.RSIState = "oversold"
		default:
			ind.RSIState = "neutral"
		}
	}
	return ind
}

func lastValue(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return values[len(values)-1]
}

func round2(v float64) string {
	return decimal.NewFromFloat(v).Round(2).StringFixed(2)
}
