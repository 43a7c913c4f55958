package monitor

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveCurrent(t *testing.T) {
	t.Run("Successful lookup caches the fix", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/json/", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":"success","lat":-23.5505,"lon":-46.6333,"city":"Sao Paulo","regionName":"Sao Paulo","country":"Brazil","timezone":"America/Sao_Paulo"}`))
		}))
		defer srv.Close()

		p := NewLocationProbe(srv.URL, slog.Default())
		fix := p.ResolveCurrent(context.Background())

		assert.NotNil(t, fix)
		assert.InDelta(t, -23.5505, fix.Lat, 1e-9)
		assert.InDelta(t, -46.6333, fix.Lon, 1e-9)

		cached, at := p.CachedLocation()
		assert.Equal(t, fix, cached)
		assert.False(t, at.IsZero())
	})

	t.Run("Upstream failure status is nil", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"status":"fail","message":"private range"}`))
		}))
		defer srv.Close()

		p := NewLocationProbe(srv.URL, slog.Default())
		assert.Nil(t, p.ResolveCurrent(context.Background()))
	})

	t.Run("Non-200 is nil", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		p := NewLocationProbe(srv.URL, slog.Default())
		assert.Nil(t, p.ResolveCurrent(context.Background()))
	})

	t.Run("Malformed body is nil", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html>gateway error</html>`))
		}))
		defer srv.Close()

		p := NewLocationProbe(srv.URL, slog.Default())
		assert.Nil(t, p.ResolveCurrent(context.Background()))
	})

	t.Run("Unreachable endpoint is nil", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close()

		p := NewLocationProbe(srv.URL, slog.Default())
		assert.Nil(t, p.ResolveCurrent(context.Background()))
		cached, _ := p.CachedLocation()
		assert.Nil(t, cached)
	})

	t.Run("Failed lookup keeps the previous cache", func(t *testing.T) {
		ok := true
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ok {
				w.Write([]byte(`{"status":"success","lat":10,"lon":20}`))
				return
			}
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		p := NewLocationProbe(srv.URL, slog.Default())
		assert.NotNil(t, p.ResolveCurrent(context.Background()))

		ok = false
		assert.Nil(t, p.ResolveCurrent(context.Background()))
		cached, _ := p.CachedLocation()
		assert.NotNil(t, cached)
		assert.InDelta(t, 10.0, cached.Lat, 1e-9)
	})
}

func TestResolveDetails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"success","lat":-23.5505,"lon":-46.6333,"city":"Sao Paulo","regionName":"Sao Paulo","country":"Brazil","timezone":"America/Sao_Paulo"}`))
	}))
	defer srv.Close()

	p := NewLocationProbe(srv.URL, slog.Default())
	details := p.ResolveDetails(context.Background(), -23.5505, -46.6333)

	assert.NotNil(t, details)
	assert.Equal(t, "Sao Paulo", details.City)
	assert.Equal(t, "Brazil", details.Country)
	assert.Equal(t, "America/Sao_Paulo", details.Timezone)
}
