package environment

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeHTTPClient returns a canned response and records the last request.
type fakeHTTPClient struct {
	status  int
	body    string
	lastReq *http.Request
}

func (f *fakeHTTPClient) Do(req *http.Request) (*http.Response, error) {
	f.lastReq = req
	status := f.status
	if status == 0 {
		status = http.StatusOK
	}
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(f.body)),
		Header:     make(http.Header),
	}, nil
}

func TestOpenWeatherFetch(t *testing.T) {
	client := &fakeHTTPClient{
		body: `{"main":{"temp":26.4,"humidity":81},"wind":{"speed":3.2},"rain":{"1h":0.6}}`,
	}
	provider := NewOpenWeatherProvider("test-key")
	provider.HTTPClient = client

	obs, err := provider.FetchWeather(context.Background(), testCoord())
	require.NoError(t, err)
	assert.Equal(t, 26.4, obs.Temperature)
	assert.Equal(t, 81.0, obs.Humidity)
	assert.Equal(t, 3.2, obs.WindSpeed)
	assert.Equal(t, 0.6, obs.Rainfall)
	assert.Equal(t, SourceOpenWeather, obs.Source)

	assert.Contains(t, client.lastReq.URL.String(), "appid=test-key")
	assert.Contains(t, client.lastReq.URL.String(), "units=metric")
}

func TestOpenWeatherRejectsBadData(t *testing.T) {
	provider := NewOpenWeatherProvider("test-key")

	provider.HTTPClient = &fakeHTTPClient{body: `{"main":{"temp":26.4,"humidity":140}}`}
	_, err := provider.FetchWeather(context.Background(), testCoord())
	assert.ErrorIs(t, err, ErrProviderUnavailable)

	provider.HTTPClient = &fakeHTTPClient{status: http.StatusUnauthorized, body: `{}`}
	_, err = provider.FetchWeather(context.Background(), testCoord())
	assert.ErrorIs(t, err, ErrProviderUnavailable)

	provider.HTTPClient = &fakeHTTPClient{body: `not json`}
	_, err = provider.FetchWeather(context.Background(), testCoord())
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestOpenWeatherRequiresKey(t *testing.T) {
	provider := NewOpenWeatherProvider("")
	_, err := provider.FetchWeather(context.Background(), testCoord())
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestSentinelHubFetch(t *testing.T) {
	client := &fakeHTTPClient{
		body: `{"data":[{"outputs":{"ndvi":{"bands":{"B0":{"stats":{"mean":0.62}}}}}}],"cloudCoverage":12.5}`,
	}
	provider := NewSentinelHubProvider("token")
	provider.HTTPClient = client

	obs, err := provider.FetchSatellite(context.Background(), testCoord())
	require.NoError(t, err)
	assert.InDelta(t, 0.62, obs.NDVI, 1e-9)
	assert.InDelta(t, 0.62*0.7, obs.EVI, 1e-9)
	assert.InDelta(t, 0.62*4, obs.LAI, 1e-9)
	assert.InDelta(t, 0.62*20000, obs.Biomass, 1e-6)
	assert.Equal(t, 12.5, obs.CloudCover)
	assert.Equal(t, SourceSentinelHub, obs.Source)

	assert.Equal(t, "Bearer token", client.lastReq.Header.Get("Authorization"))
	assert.Equal(t, http.MethodPost, client.lastReq.Method)
}

func TestSentinelHubMissingAggregate(t *testing.T) {
	provider := NewSentinelHubProvider("token")

	provider.HTTPClient = &fakeHTTPClient{body: `{"data":[]}`}
	_, err := provider.FetchSatellite(context.Background(), testCoord())
	assert.ErrorIs(t, err, ErrProviderUnavailable)

	provider.HTTPClient = &fakeHTTPClient{
		body: `{"data":[{"outputs":{"ndvi":{"bands":{"B0":{"stats":{}}}}}}]}`,
	}
	_, err = provider.FetchSatellite(context.Background(), testCoord())
	assert.ErrorIs(t, err, ErrProviderUnavailable)

	provider.HTTPClient = &fakeHTTPClient{
		body: `{"data":[{"outputs":{"ndvi":{"bands":{"B0":{"stats":{"mean":1.4}}}}}}]}`,
	}
	_, err = provider.FetchSatellite(context.Background(), testCoord())
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestCopernicusSoilDefaults(t *testing.T) {
	provider := NewCopernicusSoilProvider("token")
	provider.HTTPClient = &fakeHTTPClient{body: `{"items":[{"UID":"abc"}]}`}

	obs, err := provider.FetchSoil(context.Background(), testCoord())
	require.NoError(t, err)
	assert.Equal(t, 0.35, obs.Moisture)
	assert.Equal(t, 6.2, obs.PH)
	assert.Equal(t, SourceCopernicus, obs.Source)
}

func TestFIRMSFetch(t *testing.T) {
	client := &fakeHTTPClient{
		body: "latitude,longitude,brightness\n-3.47,-62.21,330.1\n-3.46,-62.22,341.7\n",
	}
	provider := NewFIRMSProvider("firms-key")
	provider.HTTPClient = client

	obs, err := provider.FetchFire(context.Background(), testCoord())
	require.NoError(t, err)
	assert.Equal(t, 2, obs.ActiveFires)
	assert.Equal(t, 0.8, obs.FireRisk)
	assert.Equal(t, 1.0, obs.BurnedArea)
	assert.Equal(t, SourceNASAFIRMS, obs.Source)
}

func TestFIRMSNoDetections(t *testing.T) {
	provider := NewFIRMSProvider("firms-key")
	provider.HTTPClient = &fakeHTTPClient{body: "latitude,longitude,brightness\n"}

	obs, err := provider.FetchFire(context.Background(), testCoord())
	require.NoError(t, err)
	assert.Equal(t, 0, obs.ActiveFires)
	assert.Equal(t, 0.1, obs.FireRisk)
	assert.Equal(t, 0.0, obs.BurnedArea)
}

func TestCountCSVRows(t *testing.T) {
	assert.Equal(t, 0, countCSVRows(""))
	assert.Equal(t, 0, countCSVRows("header only"))
	assert.Equal(t, 1, countCSVRows("h\nrow"))
	assert.Equal(t, 2, countCSVRows("h\nrow\n\nrow2\n"))
}
