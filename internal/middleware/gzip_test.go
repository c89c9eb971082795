package middleware

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// orderEchoHandler разбирает тело заказа и отвечает его товаром и количеством.
func orderEchoHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"product_id": req.ProductID,
		"quantity":   req.Quantity,
		"status":     "pending",
	})
}

func searchHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`[{"id":"p1","title":"Veg Thali","distance_km":0.38}]`))
}

func gzipBytes(t *testing.T, s string) []byte {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write([]byte(s)); err != nil {
		t.Fatalf("write gzip: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("close gzip: %v", err)
	}
	return buf.Bytes()
}

func TestGzipMiddleware(t *testing.T) {
	const orderBody = `{"product_id":"p1","quantity":3,"delivery_method":"pickup"}`

	type want struct {
		statusCode      int
		contentEncoding string
		bodyContains    string
	}

	tests := []struct {
		name           string
		method         string
		target         string
		handler        http.HandlerFunc
		body           string
		compressBody   bool
		acceptEncoding string
		want           want
	}{
		{
			name:           "compressed order body, compressed response",
			method:         http.MethodPost,
			target:         "/api/orders",
			handler:        orderEchoHandler,
			body:           orderBody,
			compressBody:   true,
			acceptEncoding: "gzip",
			want: want{
				statusCode:      http.StatusCreated,
				contentEncoding: "gzip",
				bodyContains:    `"quantity":3`,
			},
		},
		{
			name:         "compressed order body, plain response",
			method:       http.MethodPost,
			target:       "/api/orders",
			handler:      orderEchoHandler,
			body:         orderBody,
			compressBody: true,
			want: want{
				statusCode:   http.StatusCreated,
				bodyContains: `"product_id":"p1"`,
			},
		},
		{
			name:           "search response compressed",
			method:         http.MethodGet,
			target:         "/api/products?lat=12.97&lon=77.59",
			handler:        searchHandler,
			acceptEncoding: "gzip, deflate",
			want: want{
				statusCode:      http.StatusOK,
				contentEncoding: "gzip",
				bodyContains:    `"distance_km":0.38`,
			},
		},
		{
			name:    "search response without gzip support",
			method:  http.MethodGet,
			target:  "/api/products",
			handler: searchHandler,
			want: want{
				statusCode:   http.StatusOK,
				bodyContains: `"title":"Veg Thali"`,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body io.Reader = strings.NewReader(tt.body)
			if tt.compressBody {
				body = bytes.NewReader(gzipBytes(t, tt.body))
			}

			req := httptest.NewRequest(tt.method, tt.target, body)
			req.Header.Set("Content-Type", "application/json")
			if tt.compressBody {
				req.Header.Set("Content-Encoding", "gzip")
			}
			if tt.acceptEncoding != "" {
				req.Header.Set("Accept-Encoding", tt.acceptEncoding)
			}

			w := httptest.NewRecorder()
			GzipMiddleware(tt.handler).ServeHTTP(w, req)

			res := w.Result()
			defer res.Body.Close()

			if res.StatusCode != tt.want.statusCode {
				t.Fatalf("status: got %d want %d", res.StatusCode, tt.want.statusCode)
			}
			if ce := res.Header.Get("Content-Encoding"); ce != tt.want.contentEncoding {
				t.Fatalf("content-encoding: got %q want %q", ce, tt.want.contentEncoding)
			}

			reader := io.Reader(res.Body)
			if tt.want.contentEncoding == "gzip" {
				gr, err := gzip.NewReader(res.Body)
				if err != nil {
					t.Fatalf("new gzip reader: %v", err)
				}
				defer gr.Close()
				reader = gr
			}

			got, err := io.ReadAll(reader)
			if err != nil {
				t.Fatalf("read body: %v", err)
			}
			if !strings.Contains(string(got), tt.want.bodyContains) {
				t.Fatalf("body %q does not contain %q", string(got), tt.want.bodyContains)
			}
		})
	}
}

func TestGzipMiddleware_MalformedOrderBody(t *testing.T) {
	called := false
	h := GzipMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(`{"product_id":"p1"}`))
	req.Header.Set("Content-Encoding", "gzip")

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d want %d", w.Code, http.StatusBadRequest)
	}
	if called {
		t.Fatal("handler must not be called for a body that is not gzip")
	}
}
