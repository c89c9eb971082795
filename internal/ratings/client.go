// Package ratings предоставляет клиент внешнего сервиса агрегирования отзывов.
package ratings

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client инкапсулирует HTTP-взаимодействие с сервисом рейтингов.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// StoreRating описывает ответ сервиса рейтингов по одному магазину.
type StoreRating struct {
	StoreID     string  `json:"store_id"`
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"review_count"`
}

// NewClient создаёт HTTP-клиент для обращения к сервису рейтингов по указанному адресу.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// GetStoreRating запрашивает агрегированный рейтинг магазина.
// Возвращает код ответа и, для 429, время ожидания из Retry-After.
func (c *Client) GetStoreRating(ctx context.Context, storeID string) (*StoreRating, int, time.Duration, error) {
	if c == nil || c.baseURL == "" {
		return nil, 0, 0, fmt.Errorf("ratings client not configured")
	}

	base := c.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	endpoint := fmt.Sprintf("%s/api/stores/%s/rating", base, url.PathEscape(storeID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := time.Duration(0)
		if v := resp.Header.Get("Retry-After"); v != "" {
			if seconds, parseErr := strconv.Atoi(v); parseErr == nil {
				retryAfter = time.Duration(seconds) * time.Second
			}
		}
		return nil, resp.StatusCode, retryAfter, nil
	}

	if resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusNotFound {
		return nil, resp.StatusCode, 0, nil
	}

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, 0, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var result StoreRating
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, resp.StatusCode, 0, fmt.Errorf("decode response: %w", err)
	}

	if result.Rating < 0 || result.Rating > 5 || result.ReviewCount < 0 {
		return nil, resp.StatusCode, 0, fmt.Errorf("rating out of range: %+v", result)
	}

	return &result, resp.StatusCode, 0, nil
}
