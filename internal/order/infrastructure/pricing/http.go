package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/outboxlab/orderflow/internal/order/application"
	"github.com/outboxlab/orderflow/internal/order/domain"
)

// Client fetches prices from a catalog service over HTTP. A 404 maps to the
// catalog-miss sentinel; every other failure surfaces as a lookup error.
type Client struct {
	log  *slog.Logger
	base string
	hc   *http.Client
}

func NewClient(log *slog.Logger, baseURL string) *Client {
	return &Client{
		log:  log,
		base: strings.TrimRight(baseURL, "/"),
		hc:   &http.Client{Timeout: 5 * time.Second},
	}
}

type priceResponse struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

func (c *Client) PriceFor(ctx context.Context, id domain.ProductID) (domain.Money, error) {
	endpoint := fmt.Sprintf("%s/prices/%s", c.base, url.PathEscape(id.String()))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.Money{}, fmt.Errorf("build price request for %s: %w", id, err)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return domain.Money{}, fmt.Errorf("fetch price for %s: %w", id, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.Money{}, application.ErrPriceNotFound
	case resp.StatusCode != http.StatusOK:
		return domain.Money{}, fmt.Errorf("price lookup for %s: status %d", id, resp.StatusCode)
	}

	var body priceResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.Money{}, fmt.Errorf("decode price for %s: %w", id, err)
	}

	cur, err := domain.ParseCurrency(body.Currency)
	if err != nil {
		return domain.Money{}, fmt.Errorf("price for %s: %w", id, err)
	}
	money, err := domain.NewMoney(body.Amount, cur)
	if err != nil {
		return domain.Money{}, fmt.Errorf("price for %s: %w", id, err)
	}

	c.log.Debug("price resolved", "product_id", id.String(), "price", money.String())
	return money, nil
}
