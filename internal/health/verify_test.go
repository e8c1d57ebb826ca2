package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/addonpulse/addonpulse/internal/health"
)

// addonServer serves a manifest plus programmable resource payloads and
// records the paths it was asked for.
type addonServer struct {
	t        *testing.T
	manifest map[string]interface{}
	payloads map[string]interface{}

	mu    sync.Mutex
	paths []string
}

func (a *addonServer) start() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.mu.Lock()
		a.paths = append(a.paths, r.URL.Path)
		a.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/manifest.json" {
			require.NoError(a.t, json.NewEncoder(w).Encode(a.manifest))
			return
		}
		payload, ok := a.payloads[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		require.NoError(a.t, json.NewEncoder(w).Encode(payload))
	}))
}

func (a *addonServer) requested() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.paths...)
}

func newTestVerifier(relay health.Relay) *health.Verifier {
	return health.NewVerifier(health.VerifierConfig{
		Relay:  relay,
		Logger: zerolog.Nop(),
	})
}

func TestVerifier_CatalogPreferredOverStream(t *testing.T) {
	srv := &addonServer{
		t: t,
		manifest: map[string]interface{}{
			"id":   "org.example.addon",
			"name": "Example",
			"catalogs": []map[string]string{
				{"type": "movie", "id": "top"},
			},
			"resources": []interface{}{"stream"},
		},
		payloads: map[string]interface{}{
			"/catalog/movie/top.json": map[string]interface{}{"metas": []interface{}{}},
		},
	}
	server := srv.start()
	defer server.Close()

	verifier := newTestVerifier(nil)
	result := verifier.Verify(context.Background(), server.URL+"/manifest.json")

	assert.True(t, result.Healthy)
	assert.Equal(t, "Functional (Returned Data)", result.Message)
	// Catalog wins even though stream capability is also declared.
	assert.Equal(t, []string{"/manifest.json", "/catalog/movie/top.json"}, srv.requested())
}

func TestVerifier_StreamCapabilityProbe(t *testing.T) {
	srv := &addonServer{
		t: t,
		manifest: map[string]interface{}{
			"id":        "org.example.streams",
			"name":      "Streams Only",
			"resources": []interface{}{"stream"},
		},
		payloads: map[string]interface{}{
			"/stream/movie/tt0054215.json": map[string]interface{}{
				"streams": []map[string]string{{"url": "https://cdn.example/video"}},
			},
		},
	}
	server := srv.start()
	defer server.Close()

	verifier := newTestVerifier(nil)
	result := verifier.Verify(context.Background(), server.URL+"/manifest.json")

	assert.True(t, result.Healthy)
	assert.Equal(t, "Functional (Returned Data)", result.Message)
	assert.Equal(t, []string{"/manifest.json", "/stream/movie/tt0054215.json"}, srv.requested())
}

func TestVerifier_ObjectFormStreamResource(t *testing.T) {
	srv := &addonServer{
		t: t,
		manifest: map[string]interface{}{
			"id":   "org.example.objres",
			"name": "Object Resources",
			"resources": []interface{}{
				map[string]interface{}{"name": "stream", "types": []string{"movie"}},
			},
		},
		payloads: map[string]interface{}{
			"/stream/movie/tt0054215.json": map[string]interface{}{"streams": []interface{}{}},
		},
	}
	server := srv.start()
	defer server.Close()

	verifier := newTestVerifier(nil)
	result := verifier.Verify(context.Background(), server.URL+"/manifest.json")

	assert.True(t, result.Healthy)
	assert.Equal(t, "Functional (Returned Data)", result.Message)
}

func TestVerifier_NoVerifiableResources(t *testing.T) {
	srv := &addonServer{
		t: t,
		manifest: map[string]interface{}{
			"id":        "org.example.bare",
			"name":      "Bare",
			"resources": []interface{}{"subtitles"},
		},
	}
	server := srv.start()
	defer server.Close()

	verifier := newTestVerifier(nil)
	result := verifier.Verify(context.Background(), server.URL+"/manifest.json")

	assert.True(t, result.Healthy)
	assert.Equal(t, "Manifest OK (No verifiable resources found)", result.Message)
	// Only the manifest itself may have been fetched.
	assert.Equal(t, []string{"/manifest.json"}, srv.requested())
}

func TestVerifier_ManifestUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	server.Close()

	verifier := newTestVerifier(&fakeRelay{err: errors.New("relay down")})
	result := verifier.Verify(context.Background(), server.URL+"/manifest.json")

	assert.False(t, result.Healthy)
	assert.Equal(t, "Manifest unreachable", result.Message)
}

func TestVerifier_ResourceFetchFails(t *testing.T) {
	srv := &addonServer{
		t: t,
		manifest: map[string]interface{}{
			"id":   "org.example.broken",
			"name": "Broken Catalog",
			"catalogs": []map[string]string{
				{"type": "movie", "id": "missing"},
			},
		},
		// No payload registered: the catalog fetch 404s.
	}
	server := srv.start()
	defer server.Close()

	verifier := newTestVerifier(&fakeRelay{err: errors.New("relay down")})
	result := verifier.Verify(context.Background(), server.URL+"/manifest.json")

	assert.False(t, result.Healthy)
	assert.Equal(t, "Manifest OK but Resource Fetch Failed", result.Message)
}

func TestVerifier_PayloadWithoutExpectedKeys(t *testing.T) {
	srv := &addonServer{
		t: t,
		manifest: map[string]interface{}{
			"id":   "org.example.empty",
			"name": "Empty Payload",
			"catalogs": []map[string]string{
				{"type": "movie", "id": "top"},
			},
		},
		payloads: map[string]interface{}{
			"/catalog/movie/top.json": map[string]interface{}{"unexpected": true},
		},
	}
	server := srv.start()
	defer server.Close()

	verifier := newTestVerifier(nil)
	result := verifier.Verify(context.Background(), server.URL+"/manifest.json")

	assert.False(t, result.Healthy)
	assert.Equal(t, "Manifest OK but Resource Fetch Failed", result.Message)
}

func TestVerifier_RelayFallbackServesManifest(t *testing.T) {
	// Direct fetches fail outright; the relay answers with the manifest and
	// the catalog payload in turn.
	directDown := &fakeDoer{respond: func(*http.Request) (*http.Response, error) {
		return nil, errors.New("blocked by CORS")
	}}

	manifest := `{"id":"org.example.relayed","name":"Relayed","catalogs":[{"type":"movie","id":"top"}]}`
	catalog := `{"metas":[{"id":"tt0054215"}]}`
	responses := []string{manifest, catalog}
	var relayCalls int
	relay := &scriptedRelay{responses: responses, calls: &relayCalls}

	verifier := health.NewVerifier(health.VerifierConfig{
		HTTPClient: directDown,
		Relay:      relay,
		Logger:     zerolog.Nop(),
	})
	result := verifier.Verify(context.Background(), "https://blocked.example/manifest.json")

	assert.True(t, result.Healthy)
	assert.Equal(t, "Functional (Returned Data)", result.Message)
	assert.Equal(t, 2, relayCalls)
}

// scriptedRelay replays canned bodies in sequence.
type scriptedRelay struct {
	mu        sync.Mutex
	responses []string
	calls     *int
}

func (s *scriptedRelay) Get(_ context.Context, _ string) (*http.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if *s.calls >= len(s.responses) {
		return nil, errors.New("no scripted response left")
	}
	body := s.responses[*s.calls]
	*s.calls++
	return httpResponse(http.StatusOK, body), nil
}
