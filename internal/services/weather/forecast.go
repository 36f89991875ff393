// Package weather fetches the hourly precipitation forecast from a
// Dark Sky compatible API (Pirate Weather by default).
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/LeonardoBeccarini/farmbot-watering/internal/model"
	"github.com/LeonardoBeccarini/farmbot-watering/pkg/circuit"
)

const DefaultBaseURL = "https://api.pirateweather.net"

type darkSkyResp struct {
	Hourly struct {
		Data []struct {
			Time              int64   `json:"time"`
			PrecipIntensity   float64 `json:"precipIntensity"`
			PrecipProbability float64 `json:"precipProbability"`
		} `json:"data"`
	} `json:"hourly"`
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
}

func NewClient(baseURL, apiKey string, timeout time.Duration, breaker *gobreaker.CircuitBreaker) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if breaker == nil {
		breaker = circuit.New("forecast", circuit.Settings{})
	}
	return &Client{baseURL: baseURL, apiKey: apiKey, http: &http.Client{Timeout: timeout}, breaker: breaker}
}

// HourlyForecast returns the next model.ForecastHours hourly samples for
// (lat, lon). Intensities are in mm/h.
func (c *Client) HourlyForecast(ctx context.Context, lat, lon float64) (model.Forecast, error) {
	if c.apiKey == "" {
		return nil, errors.New("forecast: missing api key")
	}
	res, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetch(ctx, lat, lon)
	})
	if err != nil {
		return nil, fmt.Errorf("forecast: %w", err)
	}
	out := res.(*darkSkyResp)

	data := out.Hourly.Data
	if len(data) < model.ForecastHours {
		return nil, fmt.Errorf("forecast has %d hourly samples, want %d: %w", len(data), model.ForecastHours, model.ErrDataIncomplete)
	}
	f := make(model.Forecast, model.ForecastHours)
	for i := range f {
		f[i] = model.ForecastSample{
			Time:              time.Unix(data[i].Time, 0).UTC(),
			PrecipIntensity:   data[i].PrecipIntensity,
			PrecipProbability: data[i].PrecipProbability,
		}
	}
	return f, nil
}

func (c *Client) fetch(ctx context.Context, lat, lon float64) (*darkSkyResp, error) {
	u := fmt.Sprintf("%s/forecast/%s/%s,%s?units=si&exclude=currently,minutely,daily,alerts",
		c.baseURL, url.PathEscape(c.apiKey),
		strconv.FormatFloat(lat, 'f', -1, 64), strconv.FormatFloat(lon, 'f', -1, 64))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(b))
	}
	var out darkSkyResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}
