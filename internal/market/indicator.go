package market

import (
	"fmt"
	"math"

	talib "github.com/markcheno/go-talib"
)

// 中文说明：
// 技术指标计算。与决策提示词对齐的指标集：布林带、RSI、MACD、SMA 均线组、ATR。

// IndicatorValue 保存单个指标的最新值与序列。
type IndicatorValue struct {
	Latest float64   `json:"latest"`
	Series []float64 `json:"series,omitempty"`
}

// IndicatorReport 汇总单个 interval 的指标输出。
type IndicatorReport struct {
	Interval string                    `json:"interval"`
	Count    int                       `json:"count"`
	Values   map[string]IndicatorValue `json:"values"`
}

const (
	bbPeriod   = 20
	rsiPeriod  = 14
	macdFast   = 12
	macdSlow   = 26
	macdSignal = 9
	atrPeriod  = 14
)

var smaWindows = []int{5, 20, 60, 120}

// ComputeIndicators 计算指标并返回结构化报告。K 线不足时只产出能算的部分。
func ComputeIndicators(candles []Candle, interval string) (IndicatorReport, error) {
	rep := IndicatorReport{
		Interval: interval,
		Count:    len(candles),
		Values:   make(map[string]IndicatorValue),
	}
	if len(candles) == 0 {
		return rep, fmt.Errorf("no candles")
	}
	closes := make([]float64, len(candles))
	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
	}

	if len(closes) >= bbPeriod {
		upper, mid, lower := talib.BBands(closes, bbPeriod, 2, 2, talib.SMA)
		upper = sanitizeSeries(upper)
		mid = sanitizeSeries(mid)
		lower = sanitizeSeries(lower)
		rep.Values["bb_high"] = IndicatorValue{Latest: lastValid(upper), Series: upper}
		rep.Values["bb_mid"] = IndicatorValue{Latest: lastValid(mid), Series: mid}
		rep.Values["bb_low"] = IndicatorValue{Latest: lastValid(lower), Series: lower}
		rep.Values["bb_pband"] = IndicatorValue{
			Latest: bbPosition(closes[len(closes)-1], lastValid(upper), lastValid(lower)),
		}
	}

	if len(closes) > rsiPeriod {
		rsi := sanitizeSeries(talib.Rsi(closes, rsiPeriod))
		rep.Values["rsi"] = IndicatorValue{Latest: lastValid(rsi), Series: rsi}
	}

	if len(closes) >= macdSlow+macdSignal {
		macd, signal, hist := talib.Macd(closes, macdFast, macdSlow, macdSignal)
		macd = sanitizeSeries(macd)
		signal = sanitizeSeries(signal)
		hist = sanitizeSeries(hist)
		rep.Values["macd"] = IndicatorValue{Latest: lastValid(macd), Series: macd}
		rep.Values["macd_signal"] = IndicatorValue{Latest: lastValid(signal), Series: signal}
		rep.Values["macd_diff"] = IndicatorValue{Latest: lastValid(hist), Series: hist}
	}

	for _, window := range smaWindows {
		if len(closes) < window {
			continue
		}
		sma := sanitizeSeries(talib.Sma(closes, window))
		rep.Values[fmt.Sprintf("ma%d", window)] = IndicatorValue{Latest: lastValid(sma), Series: sma}
	}

	if len(closes) > atrPeriod {
		atr := sanitizeSeries(talib.Atr(highs, lows, closes, atrPeriod))
		rep.Values["atr"] = IndicatorValue{Latest: lastValid(atr), Series: atr}
	}
	return rep, nil
}

// Latest 返回指定指标的最新值，不存在时为 0。
func (r IndicatorReport) Latest(name string) float64 {
	if v, ok := r.Values[name]; ok {
		return v.Latest
	}
	return 0
}

func bbPosition(close, upper, lower float64) float64 {
	if upper <= lower {
		return 0
	}
	return (close - lower) / (upper - lower)
}

func sanitizeSeries(series []float64) []float64 {
	out := make([]float64, len(series))
	for i, v := range series {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			out[i] = 0
			continue
		}
		out[i] = v
	}
	return out
}

func lastValid(series []float64) float64 {
	for i := len(series) - 1; i >= 0; i-- {
		if series[i] != 0 {
			return series[i]
		}
	}
	return 0
}
