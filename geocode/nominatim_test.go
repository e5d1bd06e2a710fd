package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAdapter(t *testing.T, handler http.HandlerFunc) *Nominatim {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewNominatim(func(o *NominatimOptions) {
		o.BaseURL = srv.URL
		o.UserAgent = "geogenie-test"
		o.RequestsPerSecond = 1000
		o.BreakerFailureThreshold = 3
		o.BreakerTimeout = time.Minute
	})
}

func TestNominatim(t *testing.T) {
	t.Run("RequestShape", func(t *testing.T) {
		var gotQuery map[string]string
		var gotAgent string

		n := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
			gotAgent = r.Header.Get("User-Agent")
			gotQuery = map[string]string{
				"lat":            r.URL.Query().Get("lat"),
				"lon":            r.URL.Query().Get("lon"),
				"format":         r.URL.Query().Get("format"),
				"addressdetails": r.URL.Query().Get("addressdetails"),
			}
			_, _ = w.Write([]byte(`{"display_name":"Eiffel Tower, Paris, France"}`))
		})

		name, err := n.ReverseGeocode(context.Background(), 48.8584, 2.2945)
		require.NoError(t, err)
		assert.Equal(t, "Eiffel Tower", name)
		assert.Equal(t, "geogenie-test", gotAgent)
		assert.Equal(t, "48.8584", gotQuery["lat"])
		assert.Equal(t, "2.2945", gotQuery["lon"])
		assert.Equal(t, "json", gotQuery["format"])
		assert.Equal(t, "1", gotQuery["addressdetails"])
	})

	t.Run("FieldPriority", func(t *testing.T) {
		tests := []struct {
			name string
			body string
			want string
		}{
			{
				"tourism first",
				`{"display_name":"x, y","address":{"tourism":"Eiffel Tower","historic":"Old Fort","name":"Somewhere"}}`,
				"Eiffel Tower",
			},
			{
				"historic over attraction",
				`{"address":{"historic":"Colosseum","attraction":"Arena"}}`,
				"Colosseum",
			},
			{
				"attraction over name",
				`{"address":{"attraction":"London Eye","name":"South Bank"}}`,
				"London Eye",
			},
			{
				"name over building",
				`{"address":{"name":"Big Ben","building":"Clock Tower"}}`,
				"Big Ben",
			},
			{
				"building fallback",
				`{"address":{"building":"Sagrada Familia"}}`,
				"Sagrada Familia",
			},
			{
				"display name first segment",
				`{"display_name":"Brandenburg Gate, Berlin, Germany","address":{}}`,
				"Brandenburg Gate",
			},
			{
				"display name without comma",
				`{"display_name":"Stonehenge"}`,
				"Stonehenge",
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				body := tt.body
				n := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
					_, _ = w.Write([]byte(body))
				})

				name, err := n.ReverseGeocode(context.Background(), 1, 2)
				require.NoError(t, err)
				assert.Equal(t, tt.want, name)
			})
		}
	})

	t.Run("MissReturnsEmpty", func(t *testing.T) {
		// Nominatim reports unresolvable coordinates as an error payload with
		// no display name. That is a miss, not an adapter failure.
		n := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"error":"Unable to geocode"}`))
		})

		name, err := n.ReverseGeocode(context.Background(), 0, 0)
		require.NoError(t, err)
		assert.Empty(t, name)
	})

	t.Run("UpstreamError", func(t *testing.T) {
		n := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})

		_, err := n.ReverseGeocode(context.Background(), 1, 2)
		assert.ErrorIs(t, err, ErrAdapterUnavailable)
	})

	t.Run("BreakerOpensAfterConsecutiveFailures", func(t *testing.T) {
		var calls int
		n := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusInternalServerError)
		})

		for i := 0; i < 3; i++ {
			_, err := n.ReverseGeocode(context.Background(), 1, 2)
			require.ErrorIs(t, err, ErrAdapterUnavailable)
		}
		require.Equal(t, 3, calls)

		// Circuit is open now: the upstream is no longer contacted.
		_, err := n.ReverseGeocode(context.Background(), 1, 2)
		assert.ErrorIs(t, err, ErrAdapterUnavailable)
		assert.Equal(t, 3, calls)
	})

	t.Run("ContextCancelled", func(t *testing.T) {
		n := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := n.ReverseGeocode(ctx, 1, 2)
		assert.ErrorIs(t, err, ErrAdapterUnavailable)
	})
}
