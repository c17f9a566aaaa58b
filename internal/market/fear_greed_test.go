package market

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildFearGreedData(t *testing.T) {
	points := []FearGreedPoint{
		{Date: "2026-08-29", Value: 70, Classification: "Greed"},
		{Date: "2026-08-28", Value: 40, Classification: "Fear"},
		{Date: "2026-08-27", Value: 40, Classification: "Fear"},
	}
	data := buildFearGreedData(points)
	assert.Equal(t, 70, data.Value)
	assert.Equal(t, "Greed", data.Classification)
	assert.InDelta(t, 50, data.Average, 1e-9)
	// 最新值高于均值视为改善
	assert.Equal(t, TrendImproving, data.Trend)

	points[0].Value = 30
	data = buildFearGreedData(points)
	assert.Equal(t, TrendDeteriorating, data.Trend)
}

func TestFearGreedIsExtreme(t *testing.T) {
	assert.True(t, FearGreedData{Value: 20}.IsExtreme())
	assert.True(t, FearGreedData{Value: 80}.IsExtreme())
	assert.False(t, FearGreedData{Value: 50}.IsExtreme())
}

func TestFearGreedFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"data": [
				{"value": "22", "value_classification": "Extreme Fear", "timestamp": "1782000000"},
				{"value": "35", "value_classification": "Fear", "timestamp": "1781913600"}
			],
			"metadata": {"error": null}
		}`))
	}))
	defer srv.Close()

	svc := &FearGreedService{endpoint: srv.URL, client: srv.Client()}
	data, err := svc.Fetch(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 22, data.Value)
	assert.Equal(t, "Extreme Fear", data.Classification)
	assert.Len(t, data.History, 2)
	assert.True(t, data.IsExtreme())
}

func TestFearGreedFetchAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data": [], "metadata": {"error": "rate limited"}}`))
	}))
	defer srv.Close()

	svc := &FearGreedService{endpoint: srv.URL, client: srv.Client()}
	_, err := svc.Fetch(context.Background(), 1)
	assert.Error(t, err)
}

func TestFearGreedFetchBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	svc := &FearGreedService{endpoint: srv.URL, client: srv.Client()}
	_, err := svc.Fetch(context.Background(), 1)
	assert.Error(t, err)
}
