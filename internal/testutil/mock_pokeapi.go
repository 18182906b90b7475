// Package testutil provides testing utilities for the PokeAPI client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"
)

// APIPrefix is the path under which the mock serves the v2 API.
const APIPrefix = "/api/v2"

// DefaultTotal is the number of Pokémon the mock knows about.
const DefaultTotal = 151

var kantoNames = []string{
	"bulbasaur", "ivysaur", "venusaur", "charmander", "charmeleon", "charizard",
	"squirtle", "wartortle", "blastoise", "caterpie", "metapod", "butterfree",
	"weedle", "kakuna", "beedrill", "pidgey", "pidgeotto", "pidgeot",
	"rattata", "raticate", "spearow", "fearow", "ekans", "arbok",
	"pikachu", "raichu", "sandshrew", "sandslash", "nidoran-f", "nidorina",
	"nidoqueen", "nidoran-m", "nidorino", "nidoking", "clefairy", "clefable",
	"vulpix", "ninetales", "jigglypuff", "wigglytuff",
}

var typeCycle = []string{"grass", "fire", "water", "bug", "normal", "poison", "electric", "ground", "fairy"}

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockPokeAPI is a configurable mock PokeAPI server for testing.
// Without custom handlers it serves a deterministic listing and detail
// records for ids 1..total.
type MockPokeAPI struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	total       int
	detailDelay func(id int) time.Duration
	failDetail  map[int]int

	// Tracking
	RequestCount       int
	ListRequestCount   int
	DetailRequestCount int
	ConditionalCount   int
	LastRequestHeader  http.Header
	inFlight           int
	peakInFlight       int
}

// NewMockPokeAPI creates a new mock PokeAPI server.
func NewMockPokeAPI() *MockPokeAPI {
	mock := &MockPokeAPI{
		handlers:   make(map[string]func(w http.ResponseWriter, r *http.Request)),
		total:      DefaultTotal,
		failDetail: make(map[int]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestHeader = r.Header.Clone()

		// Track conditional requests
		if r.Header.Get("If-None-Match") != "" || r.Header.Get("If-Modified-Since") != "" {
			mock.ConditionalCount++
		}
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockPokeAPI) URL() string {
	return m.server.URL
}

// BaseURL returns the API root to configure clients with.
func (m *MockPokeAPI) BaseURL() string {
	return m.server.URL + APIPrefix
}

// DetailURL returns the detail URL the listing reports for id.
func (m *MockPokeAPI) DetailURL(id int) string {
	return fmt.Sprintf("%s/pokemon/%d/", m.BaseURL(), id)
}

// Close shuts down the mock server.
func (m *MockPokeAPI) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockPokeAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.ListRequestCount = 0
	m.DetailRequestCount = 0
	m.ConditionalCount = 0
	m.LastRequestHeader = nil
	m.peakInFlight = 0
}

// SetTotal sets how many Pokémon the listing reports.
func (m *MockPokeAPI) SetTotal(total int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.total = total
}

// SetDetailDelay delays every detail response by fn(id).
func (m *MockPokeAPI) SetDetailDelay(fn func(id int) time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.detailDelay = fn
}

// FailDetail makes the detail endpoint of id respond with status.
// A zero status clears the failure.
func (m *MockPokeAPI) FailDetail(id, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if status == 0 {
		delete(m.failDetail, id)
		return
	}
	m.failDetail[id] = status
}

// SetHandler sets a custom handler for a specific path.
func (m *MockPokeAPI) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockPokeAPI) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}

		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockPokeAPI) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetListRequestCount returns the number of listing requests.
func (m *MockPokeAPI) GetListRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ListRequestCount
}

// GetDetailRequestCount returns the number of detail requests.
func (m *MockPokeAPI) GetDetailRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.DetailRequestCount
}

// GetConditionalCount returns the number of conditional requests.
func (m *MockPokeAPI) GetConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ConditionalCount
}

// PeakDetailConcurrency returns the highest number of detail requests
// observed in flight at once.
func (m *MockPokeAPI) PeakDetailConcurrency() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.peakInFlight
}

// PokemonName returns the deterministic name of id: the Kanto names for
// 1..40, "pokemon-<id>" beyond.
func PokemonName(id int) string {
	if id >= 1 && id <= len(kantoNames) {
		return kantoNames[id-1]
	}
	return fmt.Sprintf("pokemon-%d", id)
}

// PokemonStats returns the deterministic base stats of id in PokeAPI order:
// hp, attack, defense, special-attack, special-defense, speed.
func PokemonStats(id int) [6]int {
	return [6]int{
		30 + (id*37)%90,
		30 + (id*53)%100,
		30 + (id*29)%100,
		30 + (id*41)%100,
		30 + (id*17)%100,
		30 + (id*23)%100,
	}
}

// defaultHandler routes PokeAPI-like paths.
func (m *MockPokeAPI) defaultHandler(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, APIPrefix), "/")

	switch {
	case path == "/pokemon":
		m.handleList(w, r)
	case strings.HasPrefix(path, "/pokemon/"):
		m.handleDetail(w, r, strings.TrimPrefix(path, "/pokemon/"))
	default:
		http.Error(w, "Not Found", http.StatusNotFound)
	}
}

type namedResource struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

func (m *MockPokeAPI) handleList(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.ListRequestCount++
	total := m.total
	m.mu.Unlock()

	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)

	etag := fmt.Sprintf(`"list-%d-%d-%d"`, offset, limit, total)
	if writeNotModified(w, r, etag) {
		return
	}

	results := []namedResource{}
	for id := offset + 1; id <= offset+limit && id <= total; id++ {
		results = append(results, namedResource{Name: PokemonName(id), URL: m.DetailURL(id)})
	}

	var next, previous *string
	if offset+limit < total {
		s := fmt.Sprintf("%s/pokemon?offset=%d&limit=%d", m.BaseURL(), offset+limit, limit)
		next = &s
	}
	if offset > 0 {
		s := fmt.Sprintf("%s/pokemon?offset=%d&limit=%d", m.BaseURL(), max(0, offset-limit), limit)
		previous = &s
	}

	writeJSON(w, etag, map[string]any{
		"count":    total,
		"next":     next,
		"previous": previous,
		"results":  results,
	})
}

func (m *MockPokeAPI) handleDetail(w http.ResponseWriter, r *http.Request, ref string) {
	m.mu.Lock()
	m.DetailRequestCount++
	m.inFlight++
	if m.inFlight > m.peakInFlight {
		m.peakInFlight = m.inFlight
	}
	total := m.total
	delayFn := m.detailDelay
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	id := lookupID(ref, total)
	if id == 0 {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	if delayFn != nil {
		if d := delayFn(id); d > 0 {
			select {
			case <-time.After(d):
			case <-r.Context().Done():
				return
			}
		}
	}

	m.mu.RLock()
	status, fail := m.failDetail[id]
	m.mu.RUnlock()
	if fail {
		http.Error(w, http.StatusText(status), status)
		return
	}

	etag := fmt.Sprintf(`"pokemon-%d"`, id)
	if writeNotModified(w, r, etag) {
		return
	}

	writeJSON(w, etag, pokemonDocument(id))
}

// lookupID resolves a numeric id or a name; 0 means unknown.
func lookupID(ref string, total int) int {
	if id, err := strconv.Atoi(ref); err == nil {
		if id >= 1 && id <= total {
			return id
		}
		return 0
	}
	for id := 1; id <= total; id++ {
		if PokemonName(id) == strings.ToLower(ref) {
			return id
		}
	}
	return 0
}

func pokemonDocument(id int) map[string]any {
	statNames := []string{"hp", "attack", "defense", "special-attack", "special-defense", "speed"}
	values := PokemonStats(id)

	stats := make([]map[string]any, len(statNames))
	for i, name := range statNames {
		stats[i] = map[string]any{
			"base_stat": values[i],
			"effort":    0,
			"stat":      map[string]string{"name": name, "url": fmt.Sprintf("https://pokeapi.co/api/v2/stat/%d/", i+1)},
		}
	}

	typeName := typeCycle[id%len(typeCycle)]

	return map[string]any{
		"id":              id,
		"name":            PokemonName(id),
		"height":          id%20 + 3,
		"weight":          id*10 + 5,
		"base_experience": 50 + id%200,
		"sprites": map[string]any{
			"front_default": fmt.Sprintf("https://raw.githubusercontent.com/PokeAPI/sprites/master/sprites/pokemon/%d.png", id),
			"front_shiny":   nil,
		},
		"stats": stats,
		"types": []map[string]any{
			{"slot": 1, "type": map[string]string{"name": typeName, "url": ""}},
		},
	}
}

func writeNotModified(w http.ResponseWriter, r *http.Request, etag string) bool {
	if r.Header.Get("If-None-Match") != etag {
		return false
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, max-age=86400, s-maxage=86400")
	w.WriteHeader(http.StatusNotModified)
	return true
}

func writeJSON(w http.ResponseWriter, etag string, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=86400, s-maxage=86400")
	w.Header().Set("ETag", etag)
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(body)
}

func queryInt(r *http.Request, key string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

// NewHealthyResponse creates a standard 200 OK JSON response.
func NewHealthyResponse(data string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       data,
		Headers: map[string]string{
			"ETag":          `"test-etag-123"`,
			"Cache-Control": "public, max-age=300",
			"Content-Type":  "application/json; charset=utf-8",
		},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse(retryAfter int) MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "Rate limit exceeded"}`,
		Headers: map[string]string{
			"Retry-After":  strconv.Itoa(retryAfter),
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}
