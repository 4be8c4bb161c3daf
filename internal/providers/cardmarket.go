package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
)

const cardmarketDefaultTimeout = 10 * time.Second

// CardmarketService fetches reference prices from the primary provider.
// Endpoint shape: GET {base}/{lang}/cards/{cardID}.
type CardmarketService struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

func NewCardmarketService(baseURL, apiKey string, timeout time.Duration) *CardmarketService {
	if timeout <= 0 {
		timeout = cardmarketDefaultTimeout
	}
	return &CardmarketService{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

type cardmarketResponse struct {
	Product *struct {
		ID      string        `json:"id"`
		Pricing *pricingBlock `json:"pricing"`
	} `json:"product"`
}

// FetchPrice fetches the pricing block for a card under the given language
// code. Missing products, missing pricing blocks, timeouts and network
// failures all come back as (nil, nil).
func (s *CardmarketService) FetchPrice(ctx context.Context, languageCode, cardID string) (*PriceData, error) {
	reqURL := fmt.Sprintf("%s/%s/cards/%s", s.baseURL, languageCode, url.PathEscape(cardID))

	ctx, cancel := context.WithTimeout(ctx, s.client.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		if isNetworkMiss(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch cardmarket price: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cardmarket API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read cardmarket response: %w", err)
	}

	var cmResp cardmarketResponse
	if err := json.Unmarshal(body, &cmResp); err != nil {
		return nil, fmt.Errorf("failed to decode cardmarket response: %w", err)
	}

	if cmResp.Product == nil || cmResp.Product.Pricing == nil {
		return nil, nil
	}

	data := cmResp.Product.Pricing.toPriceData(body)
	data.ExternalID = cmResp.Product.ID
	return data, nil
}

// isNetworkMiss classifies transport-level failures (timeouts, refused
// connections, cancelled contexts) as upstream misses rather than errors
func isNetworkMiss(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
