package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
)

// MockRiotServer creates a test server that mocks the Riot Account-V1 API
type MockRiotServer struct {
	*httptest.Server
	APIKey   string
	Accounts map[string]string // "gameName#tagLine" -> puuid
	Requests atomic.Int64
}

const riotAccountPrefix = "/riot/account/v1/accounts/by-riot-id/"

// NewMockRiotServer creates a new mock Riot API server. Requests without the
// expected X-Riot-Token get 403, unknown accounts get 404.
func NewMockRiotServer(t *testing.T, apiKey string) *MockRiotServer {
	t.Helper()
	m := &MockRiotServer{
		APIKey:   apiKey,
		Accounts: make(map[string]string),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.Requests.Add(1)
		if r.Header.Get("X-Riot-Token") != m.APIKey {
			writeStatus(w, http.StatusForbidden, "Forbidden")
			return
		}
		// Escaped path keeps %2F inside a game name from splitting segments.
		path := r.URL.EscapedPath()
		if !strings.HasPrefix(path, riotAccountPrefix) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		parts := strings.Split(strings.TrimPrefix(path, riotAccountPrefix), "/")
		if len(parts) != 2 {
			writeStatus(w, http.StatusBadRequest, "Bad Request")
			return
		}
		gameName, err1 := url.PathUnescape(parts[0])
		tagLine, err2 := url.PathUnescape(parts[1])
		if err1 != nil || err2 != nil {
			writeStatus(w, http.StatusBadRequest, "Bad Request")
			return
		}
		puuid, ok := m.Accounts[gameName+"#"+tagLine]
		if !ok {
			writeStatus(w, http.StatusNotFound, "Data not found - No results found for player with riot id "+gameName+"#"+tagLine)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{ //nolint:errcheck // test mock response
			"puuid":    puuid,
			"gameName": gameName,
			"tagLine":  tagLine,
		})
	}))
	t.Cleanup(m.Close)
	return m
}

// AddAccount registers an account the mock will resolve.
func (m *MockRiotServer) AddAccount(gameName, tagLine, puuid string) {
	m.Accounts[gameName+"#"+tagLine] = puuid
}

func writeStatus(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck // test mock response
		"status": map[string]any{"status_code": code, "message": message},
	})
}
