// Package testutil provides testing utilities for the catalog client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Sternrassler/card-catalog-client/pkg/catalog"
)

// MockResponse defines a canned response for a path.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// RequestRecord captures one request seen by the mock.
type RequestRecord struct {
	Path  string
	Query map[string]string
}

// MockCatalog is an httptest catalog API serving expansions and search.
type MockCatalog struct {
	server *httptest.Server

	mu         sync.RWMutex
	partitions map[string][]catalog.Card
	overrides  map[string][]MockResponse
	requests   []RequestRecord
	headers    http.Header
}

// NewMockCatalog creates and starts a mock catalog server.
func NewMockCatalog() *MockCatalog {
	m := &MockCatalog{
		partitions: make(map[string][]catalog.Card),
		overrides:  make(map[string][]MockResponse),
		headers:    http.Header{},
	}
	m.server = httptest.NewServer(http.HandlerFunc(m.handle))
	return m
}

// URL returns the mock server URL.
func (m *MockCatalog) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockCatalog) Close() {
	m.server.Close()
}

// SetPartition registers the cards of one expansion.
func (m *MockCatalog) SetPartition(code string, cards []catalog.Card) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.partitions[code] = cards
}

// SetHeader adds a header to every successful response.
func (m *MockCatalog) SetHeader(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.headers.Set(key, value)
}

// QueueResponse makes the next request to path return resp instead of data.
// Queued responses are consumed in order.
func (m *MockCatalog) QueueResponse(path string, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overrides[path] = append(m.overrides[path], resp)
}

// Requests returns a copy of all recorded requests.
func (m *MockCatalog) Requests() []RequestRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]RequestRecord, len(m.requests))
	copy(out, m.requests)
	return out
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockCatalog) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.requests)
}

// Reset clears recorded requests.
func (m *MockCatalog) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
}

func (m *MockCatalog) handle(w http.ResponseWriter, r *http.Request) {
	rec := RequestRecord{Path: r.URL.Path, Query: map[string]string{}}
	for k := range r.URL.Query() {
		rec.Query[k] = r.URL.Query().Get(k)
	}

	m.mu.Lock()
	m.requests = append(m.requests, rec)
	var override *MockResponse
	if queue := m.overrides[r.URL.Path]; len(queue) > 0 {
		override = &queue[0]
		m.overrides[r.URL.Path] = queue[1:]
	}
	headers := m.headers.Clone()
	m.mu.Unlock()

	if override != nil {
		writeMock(w, *override)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if page < 1 || limit < 1 {
		http.Error(w, `{"error":"page and limit are required"}`, http.StatusBadRequest)
		return
	}

	var cards []catalog.Card
	switch {
	case strings.HasSuffix(r.URL.Path, "/cards/search"):
		cards = m.search(r)
	case strings.HasSuffix(r.URL.Path, "/cards"):
		m.mu.RLock()
		cards = m.partitions[r.URL.Query().Get("code")]
		m.mu.RUnlock()
	default:
		http.NotFound(w, r)
		return
	}

	for k, vs := range headers {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	writePage(w, Paginate(cards, page, limit))
}

// search matches cards across all expansions, case-insensitively.
func (m *MockCatalog) search(r *http.Request) []catalog.Card {
	q := r.URL.Query()
	m.mu.RLock()
	defer m.mu.RUnlock()

	codes := make([]string, 0, len(m.partitions))
	for code := range m.partitions {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	var out []catalog.Card
	for _, code := range codes {
		for _, c := range m.partitions[code] {
			if matches(c, q.Get("name"), q.Get("color"), q.Get("type")) {
				out = append(out, c)
			}
		}
	}
	return out
}

func matches(c catalog.Card, name, color, typ string) bool {
	if name != "" && !strings.Contains(strings.ToLower(c.Name), strings.ToLower(name)) {
		return false
	}
	if color != "" && !strings.EqualFold(c.Color, color) {
		return false
	}
	if typ != "" && !strings.EqualFold(c.Type, typ) {
		return false
	}
	return true
}

// Paginate slices cards the way the catalog API does.
// totalPages is 0 for an empty collection.
func Paginate(cards []catalog.Card, page, limit int) catalog.PageResult {
	total := (len(cards) + limit - 1) / limit
	start := (page - 1) * limit
	if start >= len(cards) {
		return catalog.PageResult{Items: []catalog.Card{}, TotalPages: total}
	}
	end := start + limit
	if end > len(cards) {
		end = len(cards)
	}
	return catalog.PageResult{Items: cards[start:end], TotalPages: total}
}

// MakeCards builds n cards for an expansion code: CODE-001, CODE-002, ...
func MakeCards(code string, n int) []catalog.Card {
	cards := make([]catalog.Card, n)
	for i := range cards {
		id := fmt.Sprintf("%s-%03d", code, i+1)
		cards[i] = catalog.Card{ID: id, Code: id, Name: "Card " + id, SetName: code}
	}
	return cards
}

func writePage(w http.ResponseWriter, res catalog.PageResult) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(res)
}

func writeMock(w http.ResponseWriter, resp MockResponse) {
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
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "Rate limit exceeded"}`,
		Headers: map[string]string{
			"X-RateLimit-Remaining": "0",
			"X-RateLimit-Reset":     "1",
			"Content-Type":          "application/json; charset=utf-8",
		},
	}
}

// NewBadRequestResponse creates a 400 Bad Request response.
func NewBadRequestResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusBadRequest,
		Body:       `{"error": "Bad request"}`,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}
