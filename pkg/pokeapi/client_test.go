package pokeapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Sternrassler/pokeapi-client/pkg/cache"
)

const testUserAgent = "TestApp/1.0.0 (test@example.com)"

// newTestClient creates a client against an httptest server rooted at /api/v2.
func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *int32) {
	t.Helper()

	var count int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&count, 1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	cfg := DefaultConfig(testUserAgent)
	cfg.BaseURL = server.URL + "/api/v2"

	client, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return client, &count
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		expectError bool
		errorMsg    string
	}{
		{
			name:   "valid config",
			config: DefaultConfig(testUserAgent),
		},
		{
			name: "valid with redis-less custom store",
			config: Config{
				BaseURL:   "http://localhost:8080/api/v2/",
				UserAgent: testUserAgent,
				Store:     cache.NewMemoryStore(),
			},
		},
		{
			name:        "empty user agent",
			config:      DefaultConfig(""),
			expectError: true,
			errorMsg:    "user-agent is required",
		},
		{
			name: "empty base url",
			config: Config{
				UserAgent: testUserAgent,
			},
			expectError: true,
			errorMsg:    "base url is required",
		},
		{
			name: "relative base url",
			config: Config{
				BaseURL:   "pokeapi.co/api/v2",
				UserAgent: testUserAgent,
			},
			expectError: true,
			errorMsg:    `base url must be absolute (got "pokeapi.co/api/v2")`,
		},
		{
			name: "negative stale retention",
			config: Config{
				BaseURL:        DefaultBaseURL,
				UserAgent:      testUserAgent,
				StaleRetention: -time.Second,
			},
			expectError: true,
			errorMsg:    "stale_retention must be >= 0 (got -1s)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := New(tt.config)

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got nil")
					return
				}
				if tt.errorMsg != "" && err.Error() != tt.errorMsg {
					t.Errorf("Error message = %q, want %q", err.Error(), tt.errorMsg)
				}
			} else {
				if err != nil {
					t.Errorf("Unexpected error: %v", err)
					return
				}
				if client == nil {
					t.Error("Client is nil")
				}
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig(testUserAgent)

	if cfg.UserAgent != testUserAgent {
		t.Errorf("UserAgent = %q, want %q", cfg.UserAgent, testUserAgent)
	}
	if cfg.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %q, want %q", cfg.BaseURL, DefaultBaseURL)
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Errorf("RequestTimeout = %v, want 30s", cfg.RequestTimeout)
	}
	if cfg.FallbackTTL != cache.DefaultTTL {
		t.Errorf("FallbackTTL = %v, want %v", cfg.FallbackTTL, cache.DefaultTTL)
	}
	if cfg.Store != nil {
		t.Error("Store should default to nil (memory)")
	}
}

func TestClient_ListPokemon(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/pokemon" {
			t.Errorf("path = %q, want /api/v2/pokemon", r.URL.Path)
		}
		if got := r.URL.Query().Get("limit"); got != "20" {
			t.Errorf("limit = %q, want 20", got)
		}
		if got := r.URL.Query().Get("offset"); got != "40" {
			t.Errorf("offset = %q, want 40", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"count":1302,"next":"http://x/pokemon?offset=60&limit=20","previous":null,
			"results":[{"name":"nidoran-f","url":"http://x/pokemon/29/"},{"name":"nidorina","url":"http://x/pokemon/30/"}]}`)
	})

	list, err := client.ListPokemon(context.Background(), 40, 20)
	if err != nil {
		t.Fatalf("ListPokemon failed: %v", err)
	}

	if list.Count != 1302 {
		t.Errorf("Count = %d, want 1302", list.Count)
	}
	if list.Previous != nil {
		t.Errorf("Previous = %v, want nil", *list.Previous)
	}
	if len(list.Results) != 2 || list.Results[0].Name != "nidoran-f" {
		t.Errorf("Results = %+v", list.Results)
	}
}

func TestClient_ListPokemon_InvalidArgs(t *testing.T) {
	client, count := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})

	if _, err := client.ListPokemon(context.Background(), 0, 0); err == nil {
		t.Error("expected error for zero limit")
	}
	if _, err := client.ListPokemon(context.Background(), -20, 20); err == nil {
		t.Error("expected error for negative offset")
	}
	if atomic.LoadInt32(count) != 0 {
		t.Error("invalid arguments must not reach the server")
	}
}

func TestClient_GetPokemonByName(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/pokemon/pikachu/" {
			t.Errorf("path = %q, want /api/v2/pokemon/pikachu/", r.URL.Path)
		}
		fmt.Fprint(w, `{"id":25,"name":"pikachu","types":[{"slot":1,"type":{"name":"electric"}}]}`)
	})

	p, err := client.GetPokemonByName(context.Background(), "  Pikachu ")
	if err != nil {
		t.Fatalf("GetPokemonByName failed: %v", err)
	}
	if p.ID != 25 || p.Name != "pikachu" {
		t.Errorf("got %d/%q, want 25/pikachu", p.ID, p.Name)
	}

	if _, err := client.GetPokemonByName(context.Background(), " "); err == nil {
		t.Error("expected error for empty name")
	}
}

func TestClient_SendsUserAgent(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != testUserAgent {
			t.Errorf("User-Agent = %q, want %q", got, testUserAgent)
		}
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("Accept = %q, want application/json", got)
		}
		fmt.Fprint(w, `{"id":1,"name":"bulbasaur"}`)
	})

	if _, err := client.GetPokemonByName(context.Background(), "bulbasaur"); err != nil {
		t.Fatalf("GetPokemonByName failed: %v", err)
	}
}

func TestClient_FreshCacheHit(t *testing.T) {
	client, count := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=86400")
		fmt.Fprint(w, `{"id":4,"name":"charmander"}`)
	})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		p, err := client.GetPokemonByName(ctx, "charmander")
		if err != nil {
			t.Fatalf("call %d failed: %v", i, err)
		}
		if p.Name != "charmander" {
			t.Errorf("call %d: Name = %q", i, p.Name)
		}
	}

	if got := atomic.LoadInt32(count); got != 1 {
		t.Errorf("server requests = %d, want 1", got)
	}
}

func TestClient_Revalidation304(t *testing.T) {
	var conditional int32
	client, count := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", `"v1"`)
		w.Header().Set("Cache-Control", "no-cache")
		if r.Header.Get("If-None-Match") == `"v1"` {
			atomic.AddInt32(&conditional, 1)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		fmt.Fprint(w, `{"id":7,"name":"squirtle"}`)
	})

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		p, err := client.GetPokemonByName(ctx, "squirtle")
		if err != nil {
			t.Fatalf("call %d failed: %v", i, err)
		}
		if p.ID != 7 {
			t.Errorf("call %d: ID = %d, want 7", i, p.ID)
		}
	}

	if got := atomic.LoadInt32(count); got != 2 {
		t.Errorf("server requests = %d, want 2", got)
	}
	if got := atomic.LoadInt32(&conditional); got != 1 {
		t.Errorf("conditional requests = %d, want 1", got)
	}
}

func TestClient_Revalidation304RefreshesFreshness(t *testing.T) {
	client, count := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", `"v1"`)
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.Header().Set("Cache-Control", "public, max-age=3600")
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("Cache-Control", "no-cache")
		fmt.Fprint(w, `{"id":9,"name":"blastoise"}`)
	})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		p, err := client.GetPokemonByName(ctx, "blastoise")
		if err != nil {
			t.Fatalf("call %d failed: %v", i, err)
		}
		if p.ID != 9 {
			t.Errorf("call %d: ID = %d, want 9", i, p.ID)
		}
	}

	// The 304 extends the stored entry, so the third call stays local
	if got := atomic.LoadInt32(count); got != 2 {
		t.Errorf("server requests = %d, want 2", got)
	}
}

func TestClient_NotFound(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Not Found", http.StatusNotFound)
	})

	_, err := client.GetPokemonByName(context.Background(), "missingno")
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsNotFound(err) {
		t.Errorf("IsNotFound(%v) = false, want true", err)
	}
	if ClassOf(err) != ErrorClassClient {
		t.Errorf("ClassOf = %q, want client", ClassOf(err))
	}
}

func TestClient_ServerError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.ListPokemon(context.Background(), 0, 20)
	if ClassOf(err) != ErrorClassServer {
		t.Errorf("ClassOf(%v) = %q, want server", err, ClassOf(err))
	}
}

func TestClient_MalformedJSON(t *testing.T) {
	client, count := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "max-age=86400")
		fmt.Fprint(w, `{"id": "not-a-number"`)
	})

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := client.GetPokemonByName(ctx, "glitch")
		if ClassOf(err) != ErrorClassDecode {
			t.Errorf("call %d: ClassOf(%v) = %q, want decode", i, err, ClassOf(err))
		}
	}

	// Undecodable bodies are evicted, so the second call reaches the server
	if got := atomic.LoadInt32(count); got != 2 {
		t.Errorf("server requests = %d, want 2", got)
	}
}

func TestClient_RateLimited(t *testing.T) {
	client, count := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "120")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	ctx := context.Background()

	_, err := client.ListPokemon(ctx, 0, 20)
	if ClassOf(err) != ErrorClassRateLimit {
		t.Errorf("first call ClassOf(%v) = %q, want rate_limit", err, ClassOf(err))
	}

	_, err = client.ListPokemon(ctx, 0, 20)
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("second call error = %v, want ErrRateLimited", err)
	}

	if got := atomic.LoadInt32(count); got != 1 {
		t.Errorf("server requests = %d, want 1", got)
	}

	if client.RateLimiter().GetState().BlockedUntil.Before(time.Now().Add(time.Minute)) {
		t.Error("BlockedUntil should honour Retry-After")
	}
}

func TestClient_FreshCacheHitWhileRateLimited(t *testing.T) {
	client, count := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/pokemon/2/") {
			w.Header().Set("Retry-After", "120")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=3600")
		fmt.Fprint(w, `{"id":1,"name":"bulbasaur"}`)
	})

	ctx := context.Background()

	if _, err := client.GetPokemonByName(ctx, "1"); err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	if _, err := client.GetPokemonByName(ctx, "2"); ClassOf(err) != ErrorClassRateLimit {
		t.Fatalf("ClassOf(%v) = %q, want rate_limit", err, ClassOf(err))
	}

	p, err := client.GetPokemonByName(ctx, "1")
	if err != nil {
		t.Fatalf("cached call failed during block window: %v", err)
	}
	if p.Name != "bulbasaur" {
		t.Errorf("Name = %q, want bulbasaur", p.Name)
	}

	// Uncached resources are still blocked
	if _, err := client.GetPokemonByName(ctx, "3"); !errors.Is(err, ErrRateLimited) {
		t.Errorf("uncached call error = %v, want ErrRateLimited", err)
	}

	if got := atomic.LoadInt32(count); got != 2 {
		t.Errorf("server requests = %d, want 2", got)
	}
}

// roundTripFunc adapts a function to http.RoundTripper.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func TestClient_SetHTTPClient(t *testing.T) {
	client, count := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":25,"name":"pikachu"}`)
	})

	var seen []string
	client.SetHTTPClient(&http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			seen = append(seen, req.URL.Path)
			return http.DefaultTransport.RoundTrip(req)
		}),
	})

	p, err := client.GetPokemonByName(context.Background(), "Pikachu")
	if err != nil {
		t.Fatalf("GetPokemonByName failed: %v", err)
	}
	if p.ID != 25 {
		t.Errorf("ID = %d, want 25", p.ID)
	}
	if len(seen) != 1 || seen[0] != "/api/v2/pokemon/pikachu/" {
		t.Errorf("transport saw %v, want [/api/v2/pokemon/pikachu/]", seen)
	}
	if got := atomic.LoadInt32(count); got != 1 {
		t.Errorf("server requests = %d, want 1", got)
	}
}

func TestClient_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := server.URL
	server.Close()

	cfg := DefaultConfig(testUserAgent)
	cfg.BaseURL = baseURL
	client, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	_, err = client.ListPokemon(context.Background(), 0, 20)
	if ClassOf(err) != ErrorClassNetwork {
		t.Errorf("ClassOf(%v) = %q, want network", err, ClassOf(err))
	}
}

func TestEndpointLabel(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/v2/pokemon", "/api/v2/pokemon"},
		{"/api/v2/pokemon/", "/api/v2/pokemon"},
		{"/api/v2/pokemon/25/", "/api/v2/pokemon/{id}"},
		{"/api/v2/pokemon/pikachu", "/api/v2/pokemon/{id}"},
		{"/", "/"},
	}

	for _, tt := range tests {
		if got := endpointLabel(tt.path); got != tt.want {
			t.Errorf("endpointLabel(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
