package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// 中文说明：
// alternative.me 恐慌贪婪指数。决策周期每次取最新值 + 近 N 日历史，
// 并推导趋势方向与均值供提示词与仓位调整使用。

const (
	defaultFearGreedEndpoint = "https://api.alternative.me/fng/"

	TrendImproving     = "Improving"
	TrendDeteriorating = "Deteriorating"
)

type FearGreedPoint struct {
	Date           string `json:"date"`
	Value          int    `json:"value"`
	Classification string `json:"classification"`
}

type FearGreedData struct {
	Value          int              `json:"value"`
	Classification string           `json:"classification"`
	History        []FearGreedPoint `json:"history"`
	Trend          string           `json:"trend"`
	Average        float64          `json:"average"`
}

// IsExtreme 返回是否处于极端区（≤25 恐慌 / ≥75 贪婪）。
func (d FearGreedData) IsExtreme() bool {
	return d.Value <= 25 || d.Value >= 75
}

type FearGreedService struct {
	endpoint string
	client   *http.Client
}

func NewFearGreedService() *FearGreedService {
	return &FearGreedService{
		endpoint: defaultFearGreedEndpoint,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

type fearGreedResponse struct {
	Data []struct {
		Value               string `json:"value"`
		ValueClassification string `json:"value_classification"`
		Timestamp           string `json:"timestamp"`
	} `json:"data"`
	Metadata struct {
		Error interface{} `json:"error"`
	} `json:"metadata"`
}

func (s *FearGreedService) Fetch(ctx context.Context, limit int) (FearGreedData, error) {
	if s == nil || s.client == nil {
		return FearGreedData{}, fmt.Errorf("fear & greed service not initialized")
	}
	if limit <= 0 {
		limit = 7
	}
	if ctx == nil {
		ctx = context.Background()
	}
	url := fmt.Sprintf("%s?limit=%d", strings.TrimRight(s.endpoint, "?"), limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return FearGreedData{}, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return FearGreedData{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return FearGreedData{}, fmt.Errorf("unexpected status %s", resp.Status)
	}

	var payload fearGreedResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return FearGreedData{}, err
	}
	if payload.Metadata.Error != nil {
		return FearGreedData{}, fmt.Errorf("api error: %v", payload.Metadata.Error)
	}
	if len(payload.Data) == 0 {
		return FearGreedData{}, fmt.Errorf("api data empty")
	}

	points := make([]FearGreedPoint, 0, len(payload.Data))
	for _, item := range payload.Data {
		value, err := strconv.Atoi(strings.TrimSpace(item.Value))
		if err != nil {
			continue
		}
		date := ""
		if raw := strings.TrimSpace(item.Timestamp); raw != "" {
			if sec, err := strconv.ParseInt(raw, 10, 64); err == nil {
				date = time.Unix(sec, 0).UTC().Format("2006-01-02")
			}
		}
		points = append(points, FearGreedPoint{
			Date:           date,
			Value:          value,
			Classification: strings.TrimSpace(item.ValueClassification),
		})
	}
	if len(points) == 0 {
		return FearGreedData{}, fmt.Errorf("api data invalid")
	}
	return buildFearGreedData(points), nil
}

// buildFearGreedData 最新值在 points[0]（API 按时间倒序返回）。
func buildFearGreedData(points []FearGreedPoint) FearGreedData {
	sum := 0
	for _, p := range points {
		sum += p.Value
	}
	avg := float64(sum) / float64(len(points))
	trend := TrendDeteriorating
	if float64(points[0].Value) > avg {
		trend = TrendImproving
	}
	return FearGreedData{
		Value:          points[0].Value,
		Classification: points[0].Classification,
		History:        points,
		Trend:          trend,
		Average:        avg,
	}
}
