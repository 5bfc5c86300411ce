// Package banksync pulls account transactions from the open banking
// aggregator into the bank_transactions table.
package banksync

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is a thin REST client for the aggregator API. Consent and account
// linking happen on the provider side, this only reads with a bearer token.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type ProviderTransaction struct {
	ID           string `json:"id"`
	Amount       string `json:"amount"`
	Currency     string `json:"currency"`
	BookingDate  string `json:"bookingDate"`
	MerchantName string `json:"merchantName"`
	Description  string `json:"description"`
}

type transactionsResponse struct {
	Transactions []ProviderTransaction `json:"transactions"`
}

// Transactions lists booked transactions for an account. since narrows the
// window when non-zero.
func (c *Client) Transactions(accountID string, since time.Time) ([]ProviderTransaction, error) {
	url := fmt.Sprintf("%s/accounts/%s/transactions", c.baseURL, accountID)
	if !since.IsZero() {
		url += "?from=" + since.Format("2006-01-02")
	}

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Error getting transactions: %s", err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("aggregator returned %d for account %s: %s", resp.StatusCode, accountID, body)
	}

	var parsed transactionsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("unable to parse transactions response: %w", err)
	}

	return parsed.Transactions, nil
}
