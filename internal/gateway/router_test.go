package gateway

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOriginAllowed(t *testing.T) {
	patterns := []string{"chess.example.com", "*.relay.dev"}
	cases := map[string]bool{
		"https://chess.example.com": true,
		"https://CHESS.example.com": true,
		"http://app.relay.dev":      true,
		"https://evil.example.com":  false,
		"not a url":                 false,
	}
	for origin, want := range cases {
		if got := originAllowed(patterns, origin); got != want {
			t.Fatalf("originAllowed(%q) = %v, want %v", origin, got, want)
		}
	}
	if !originAllowed(nil, "https://anything.test") {
		t.Fatalf("empty pattern list should allow any origin")
	}
}

func TestCORSPreflight(t *testing.T) {
	h := cors([]string{"chess.example.com"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("preflight reached the handler")
	}))

	req := httptest.NewRequest(http.MethodOptions, "/room", nil)
	req.Header.Set("Origin", "https://chess.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://chess.example.com" {
		t.Fatalf("allow-origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/room", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("disallowed origin was echoed")
	}
}
