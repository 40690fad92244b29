// Package external fetches factual augmentation (weather, country facts) for
// a resolved location. Every lookup is independently failable and the caller
// must treat failure as "no data", never as a turn failure.
package external

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/solenne/wayfarer/internal/circuitbreaker"
	"github.com/solenne/wayfarer/internal/domain"
	"github.com/solenne/wayfarer/internal/metrics"
	"github.com/solenne/wayfarer/shared/httpclient"
)

const (
	defaultWeatherBaseURL   = "https://api.openweathermap.org/data/2.5"
	defaultCountriesBaseURL = "https://restcountries.com/v3.1"

	breakerFailures = 5
	breakerCooldown = 30 * time.Second
)

type Client struct {
	weatherAPIKey    string
	weatherBaseURL   string
	countriesBaseURL string
	httpClient       *http.Client

	weatherBreaker *circuitbreaker.CircuitBreaker
	countryBreaker *circuitbreaker.CircuitBreaker
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithWeatherBaseURL(u string) Option {
	return func(c *Client) {
		c.weatherBaseURL = u
	}
}

func WithCountriesBaseURL(u string) Option {
	return func(c *Client) {
		c.countriesBaseURL = u
	}
}

func NewClient(weatherAPIKey string, opts ...Option) *Client {
	c := &Client{
		weatherAPIKey:    weatherAPIKey,
		weatherBaseURL:   defaultWeatherBaseURL,
		countriesBaseURL: defaultCountriesBaseURL,
		httpClient:       httpclient.NewShort(),
		weatherBreaker:   circuitbreaker.New(breakerFailures, breakerCooldown),
		countryBreaker:   circuitbreaker.New(breakerFailures, breakerCooldown),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type owmWeather struct {
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Name string `json:"name"`
	Sys  struct {
		Country string `json:"country"`
	} `json:"sys"`
}

// Weather fetches current conditions for a city name or "city,country" pair.
func (c *Client) Weather(ctx context.Context, location string) (*domain.WeatherReport, error) {
	if c.weatherAPIKey == "" {
		return nil, fmt.Errorf("%w: weather API key not configured", domain.ErrExternalData)
	}

	var report *domain.WeatherReport
	err := c.weatherBreaker.Execute(func() error {
		params := url.Values{}
		params.Set("q", location)
		params.Set("appid", c.weatherAPIKey)
		params.Set("units", "metric")

		var parsed owmWeather
		if err := c.getJSON(ctx, c.weatherBaseURL+"/weather?"+params.Encode(), &parsed); err != nil {
			return err
		}
		if len(parsed.Weather) == 0 {
			return fmt.Errorf("weather response missing conditions")
		}

		report = &domain.WeatherReport{
			TempC:       int(math.Round(parsed.Main.Temp)),
			FeelsLikeC:  int(math.Round(parsed.Main.FeelsLike)),
			Description: parsed.Weather[0].Description,
			Humidity:    parsed.Main.Humidity,
			WindSpeed:   parsed.Wind.Speed,
			Icon:        parsed.Weather[0].Icon,
			Location:    parsed.Name,
			Country:     parsed.Sys.Country,
		}
		return nil
	})
	if err != nil {
		metrics.ExternalFetchesTotal.WithLabelValues("weather", "error").Inc()
		return nil, fmt.Errorf("%w: weather: %v", domain.ErrExternalData, err)
	}

	metrics.ExternalFetchesTotal.WithLabelValues("weather", "ok").Inc()
	return report, nil
}

type owmForecast struct {
	City struct {
		Name string `json:"name"`
	} `json:"city"`
	List []struct {
		DtTxt string `json:"dt_txt"`
		Main  struct {
			Temp float64 `json:"temp"`
		} `json:"main"`
		Weather []struct {
			Description string `json:"description"`
		} `json:"weather"`
		Pop float64 `json:"pop"`
	} `json:"list"`
}

// Forecast fetches the next 24 hours in 3-hour steps.
func (c *Client) Forecast(ctx context.Context, location string) ([]domain.ForecastEntry, error) {
	if c.weatherAPIKey == "" {
		return nil, fmt.Errorf("%w: weather API key not configured", domain.ErrExternalData)
	}

	var entries []domain.ForecastEntry
	err := c.weatherBreaker.Execute(func() error {
		params := url.Values{}
		params.Set("q", location)
		params.Set("appid", c.weatherAPIKey)
		params.Set("units", "metric")
		params.Set("cnt", "8")

		var parsed owmForecast
		if err := c.getJSON(ctx, c.weatherBaseURL+"/forecast?"+params.Encode(), &parsed); err != nil {
			return err
		}

		entries = make([]domain.ForecastEntry, 0, len(parsed.List))
		for _, item := range parsed.List {
			description := ""
			if len(item.Weather) > 0 {
				description = item.Weather[0].Description
			}
			entries = append(entries, domain.ForecastEntry{
				Time:          item.DtTxt,
				TempC:         int(math.Round(item.Main.Temp)),
				Description:   description,
				Precipitation: int(math.Round(item.Pop * 100)),
			})
		}
		return nil
	})
	if err != nil {
		metrics.ExternalFetchesTotal.WithLabelValues("forecast", "error").Inc()
		return nil, fmt.Errorf("%w: forecast: %v", domain.ErrExternalData, err)
	}

	metrics.ExternalFetchesTotal.WithLabelValues("forecast", "ok").Inc()
	return entries, nil
}

type restCountry struct {
	Name struct {
		Common   string `json:"common"`
		Official string `json:"official"`
	} `json:"name"`
	Capital    []string          `json:"capital"`
	Region     string            `json:"region"`
	Subregion  string            `json:"subregion"`
	Population int64             `json:"population"`
	Languages  map[string]string `json:"languages"`
	Currencies map[string]struct {
		Name   string `json:"name"`
		Symbol string `json:"symbol"`
	} `json:"currencies"`
	Timezones  []string `json:"timezones"`
	Continents []string `json:"continents"`
	Borders    []string `json:"borders"`
}

// Country fetches country facts by name, taking the first match.
func (c *Client) Country(ctx context.Context, name string) (*domain.CountryInfo, error) {
	var info *domain.CountryInfo
	err := c.countryBreaker.Execute(func() error {
		var parsed []restCountry
		if err := c.getJSON(ctx, c.countriesBaseURL+"/name/"+url.PathEscape(name), &parsed); err != nil {
			return err
		}
		if len(parsed) == 0 {
			return fmt.Errorf("no country match for %q", name)
		}

		data := parsed[0]
		info = &domain.CountryInfo{
			Name:         data.Name.Common,
			OfficialName: data.Name.Official,
			Region:       data.Region,
			Subregion:    data.Subregion,
			Population:   data.Population,
			Languages:    sortedValues(data.Languages),
			Timezones:    data.Timezones,
			Continents:   data.Continents,
			Borders:      data.Borders,
		}
		if len(data.Capital) > 0 {
			info.Capital = data.Capital[0]
		}
		if currency := firstCurrency(data); currency != "" {
			info.Currency = currency
		}
		return nil
	})
	if err != nil {
		metrics.ExternalFetchesTotal.WithLabelValues("country", "error").Inc()
		return nil, fmt.Errorf("%w: country: %v", domain.ErrExternalData, err)
	}

	metrics.ExternalFetchesTotal.WithLabelValues("country", "ok").Inc()
	return info, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("upstream returned %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func sortedValues(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := make([]string, 0, len(m))
	for _, k := range keys {
		values = append(values, m[k])
	}
	return values
}

func firstCurrency(data restCountry) string {
	keys := make([]string, 0, len(data.Currencies))
	for k := range data.Currencies {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		cur := data.Currencies[k]
		return fmt.Sprintf("%s (%s)", cur.Name, cur.Symbol)
	}
	return ""
}
