package ratings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGetStoreRating_OK(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Fatalf("method = %s, want GET", r.Method)
		}
		if r.URL.Path != "/api/stores/s-1/rating" {
			t.Fatalf("path = %s, want /api/stores/s-1/rating", r.URL.Path)
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(StoreRating{StoreID: "s-1", Rating: 4.6, ReviewCount: 31}); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	res, code, retry, err := client.GetStoreRating(ctx, "s-1")
	if err != nil {
		t.Fatalf("GetStoreRating error: %v", err)
	}
	if code != http.StatusOK {
		t.Fatalf("status code = %d, want %d", code, http.StatusOK)
	}
	if retry != 0 {
		t.Fatalf("retryAfter = %v, want 0", retry)
	}
	if res == nil || res.Rating != 4.6 || res.ReviewCount != 31 {
		t.Fatalf("unexpected response: %+v", res)
	}
}

func TestGetStoreRating_TooManyRequests(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "5")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	res, code, retry, err := client.GetStoreRating(context.Background(), "s-1")
	if err != nil {
		t.Fatalf("GetStoreRating error: %v", err)
	}
	if res != nil {
		t.Fatalf("expected nil response for 429, got %+v", res)
	}
	if code != http.StatusTooManyRequests {
		t.Fatalf("status code = %d, want %d", code, http.StatusTooManyRequests)
	}
	if retry < 5*time.Second {
		t.Fatalf("retryAfter = %v, want at least 5s", retry)
	}
}

func TestGetStoreRating_NoContent(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	res, code, _, err := NewClient(ts.URL).GetStoreRating(context.Background(), "s-1")
	if err != nil {
		t.Fatalf("GetStoreRating error: %v", err)
	}
	if res != nil || code != http.StatusNoContent {
		t.Fatalf("unexpected result: %+v, %d", res, code)
	}
}

func TestGetStoreRating_OutOfRange(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(StoreRating{StoreID: "s-1", Rating: 7})
	}))
	defer ts.Close()

	_, _, _, err := NewClient(ts.URL).GetStoreRating(context.Background(), "s-1")
	if err == nil {
		t.Fatalf("expected error for rating above 5")
	}
}

func TestGetStoreRating_NotConfigured(t *testing.T) {
	var c *Client
	if _, _, _, err := c.GetStoreRating(context.Background(), "s-1"); err == nil {
		t.Fatalf("expected error for nil client")
	}
}
