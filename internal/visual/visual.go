package visual

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"aurum/internal/market"
)

// 中文说明：
// 把周期内收集的 K 线渲染成合成图（K 线 + 成交量），通过无头浏览器截图成 PNG，
// 交给带视觉能力的模型生成图表叙述。渲染失败只影响可选信号，不阻断周期。

type ImageResult struct {
	Bytes       []byte `json:"-"`
	Base64      string `json:"base64"`
	Filename    string `json:"filename"`
	Description string `json:"description"`
}

func (r *ImageResult) DataURI() string {
	if r == nil {
		return ""
	}
	if r.Base64 == "" && len(r.Bytes) > 0 {
		r.Base64 = base64.StdEncoding.EncodeToString(r.Bytes)
	}
	if r.Base64 == "" {
		return ""
	}
	return "data:image/png;base64," + r.Base64
}

type CompositeInput struct {
	Context   context.Context
	Symbol    string
	Intervals []string
	Candles   map[string][]market.Candle
}

const (
	colorBackground  = "#060c1b"
	colorTextPrimary = "#eceff4"
	colorVolume      = "#a78bfa"

	chartWidthPx   = 1600
	klineHeightPx  = 600
	volumeHeightPx = 260
)

func RenderComposite(input CompositeInput) (ImageResult, error) {
	if err := EnsureHeadlessAvailable(input.Context); err != nil {
		return ImageResult{}, err
	}
	if input.Symbol == "" {
		return ImageResult{}, fmt.Errorf("symbol required for composite render")
	}
	if len(input.Intervals) == 0 {
		return ImageResult{}, fmt.Errorf("at least one interval required for %s", input.Symbol)
	}
	html, desc, err := buildCompositeHTML(input)
	if err != nil {
		return ImageResult{}, err
	}
	height := len(input.Intervals) * (klineHeightPx + volumeHeightPx)
	if height < 520 {
		height = 520
	}
	png, err := renderHTMLToPNG(input.Context, html, chartWidthPx, height)
	if err != nil {
		return ImageResult{}, err
	}
	return ImageResult{
		Bytes:       png,
		Base64:      base64.StdEncoding.EncodeToString(png),
		Filename:    fmt.Sprintf("%s_composite.png", strings.ToLower(input.Symbol)),
		Description: desc,
	}, nil
}

var (
	headlessOnce sync.Once
	headlessErr  error
)

func EnsureHeadlessAvailable(ctx context.Context) error {
	headlessOnce.Do(func() {
		targetCtx := ctx
		if targetCtx == nil {
			targetCtx = context.Background()
		}
		parent, cancel := chromedp.NewContext(targetCtx)
		if cancel != nil {
			defer cancel()
		}
		headlessErr = chromedp.Run(parent)
	})
	return headlessErr
}

func buildCompositeHTML(input CompositeInput) ([]byte, string, error) {
	page := components.NewPage()
	page.SetLayout(components.PageFlexLayout)
	descriptions := make([]string, 0, len(input.Intervals))

	rendered := 0
	for _, interval := range input.Intervals {
		candles := input.Candles[interval]
		if len(candles) == 0 {
			continue
		}
		rendered++
		descriptions = append(descriptions, fmt.Sprintf("%s: %d bars, last close %.2f",
			interval, len(candles), market.LastClose(candles)))

		minPrice, maxPrice := priceBounds(candles)
		padding := (maxPrice - minPrice) * 0.05
		if padding <= 0 {
			padding = math.Max(1, math.Abs(maxPrice)*0.01)
		}

		init := opts.Initialization{
			Theme:           types.ThemeWesteros,
			Width:           fmt.Sprintf("%dpx", chartWidthPx),
			Height:          fmt.Sprintf("%dpx", klineHeightPx),
			BackgroundColor: colorBackground,
		}
		kline := charts.NewKLine()
		kline.SetGlobalOptions(
			charts.WithInitializationOpts(init),
			charts.WithTitleOpts(opts.Title{
				Title:      fmt.Sprintf("%s %s", strings.ToUpper(input.Symbol), interval),
				Left:       "left",
				Top:        "10",
				TitleStyle: &opts.TextStyle{Color: colorTextPrimary, FontSize: 18},
			}),
			charts.WithXAxisOpts(opts.XAxis{Type: "category"}),
			charts.WithYAxisOpts(opts.YAxis{
				Scale: opts.Bool(true),
				Min:   round(minPrice-padding, 4),
				Max:   round(maxPrice+padding, 4),
			}),
		)

		labels := make([]string, 0, len(candles))
		klineData := make([]opts.KlineData, 0, len(candles))
		volumeData := make([]opts.BarData, 0, len(candles))
		for _, c := range candles {
			labels = append(labels, c.Date("01-02 15:04"))
			klineData = append(klineData, opts.KlineData{Value: [4]float64{c.Open, c.Close, c.Low, c.High}})
			volumeData = append(volumeData, opts.BarData{Value: c.Volume})
		}
		kline.SetXAxis(labels).AddSeries("kline", klineData)
		page.AddCharts(kline)

		volume := charts.NewBar()
		volume.SetGlobalOptions(
			charts.WithInitializationOpts(opts.Initialization{
				Theme:           types.ThemeWesteros,
				Width:           fmt.Sprintf("%dpx", chartWidthPx),
				Height:          fmt.Sprintf("%dpx", volumeHeightPx),
				BackgroundColor: colorBackground,
			}),
			charts.WithXAxisOpts(opts.XAxis{Type: "category"}),
		)
		volume.SetXAxis(labels).AddSeries("volume", volumeData,
			charts.WithItemStyleOpts(opts.ItemStyle{Color: colorVolume}))
		page.AddCharts(volume)
	}
	if rendered == 0 {
		return nil, "", fmt.Errorf("no candles to render for %s", input.Symbol)
	}

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), strings.Join(descriptions, "; "), nil
}

func renderHTMLToPNG(ctx context.Context, html []byte, width, height int) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	parent, cancel := chromedp.NewContext(ctx)
	defer cancel()

	timeoutCtx, cancelTimeout := context.WithTimeout(parent, 20*time.Second)
	defer cancelTimeout()

	dataURI := "data:text/html;base64," + base64.StdEncoding.EncodeToString(html)
	var screenshot []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(width), int64(height)),
		chromedp.Navigate(dataURI),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(1500 * time.Millisecond),
		chromedp.FullScreenshot(&screenshot, 0),
	}
	if err := chromedp.Run(timeoutCtx, tasks...); err != nil {
		return nil, err
	}
	return screenshot, nil
}

func priceBounds(candles []market.Candle) (float64, float64) {
	minPrice := math.MaxFloat64
	maxPrice := -math.MaxFloat64
	for _, c := range candles {
		minPrice = math.Min(minPrice, c.Low)
		maxPrice = math.Max(maxPrice, c.High)
	}
	return minPrice, maxPrice
}

func round(val float64, places int) float64 {
	factor := math.Pow10(places)
	return math.Round(val*factor) / factor
}
