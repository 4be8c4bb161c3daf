package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

const cardtraderDefaultTimeout = 10 * time.Second

// CardTraderService fetches prices from the secondary provider. Only
// consulted when the primary chain yields nothing; same no-data contract
// as the primary client.
type CardTraderService struct {
	client  *resty.Client
	baseURL string
}

func NewCardTraderService(baseURL, apiKey string, timeout time.Duration) *CardTraderService {
	if timeout <= 0 {
		timeout = cardtraderDefaultTimeout
	}
	client := resty.New()
	client.SetTimeout(timeout)
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}
	client.SetHeader("Accept", "application/json")

	return &CardTraderService{
		client:  client,
		baseURL: baseURL,
	}
}

type cardtraderResponse struct {
	Card *struct {
		BlueprintID int64         `json:"blueprint_id"`
		Pricing     *pricingBlock `json:"pricing"`
	} `json:"card"`
}

func (s *CardTraderService) FetchPrice(ctx context.Context, languageCode, cardID string) (*PriceData, error) {
	reqURL := fmt.Sprintf("%s/marketplace/%s/cards/%s", s.baseURL, languageCode, url.PathEscape(cardID))

	resp, err := s.client.R().SetContext(ctx).Get(reqURL)
	if err != nil {
		if isNetworkMiss(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch cardtrader price: %w", err)
	}

	if resp.StatusCode() == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("cardtrader API returned status %d", resp.StatusCode())
	}

	body := resp.Body()
	var ctResp cardtraderResponse
	if err := json.Unmarshal(body, &ctResp); err != nil {
		return nil, fmt.Errorf("failed to decode cardtrader response: %w", err)
	}

	if ctResp.Card == nil || ctResp.Card.Pricing == nil {
		return nil, nil
	}

	data := ctResp.Card.Pricing.toPriceData(body)
	data.ExternalID = strconv.FormatInt(ctResp.Card.BlueprintID, 10)
	return data, nil
}
