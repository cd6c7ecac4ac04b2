package api

import (
	"context"
	"net/http"
)

// CheckoutSession points the user at a hosted checkout page. The checkout
// UI itself is out of scope; returning from it should trigger a balance
// refresh.
type CheckoutSession struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// CreateTokenCheckout starts a token purchase checkout.
func (c *Client) CreateTokenCheckout(ctx context.Context, packageID string) (*CheckoutSession, error) {
	var resp CheckoutSession
	body := map[string]string{"package_id": packageID}
	if err := c.do(ctx, http.MethodPost, "/tokens/purchase/checkout", nil, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateSubscription starts a subscription checkout.
func (c *Client) CreateSubscription(ctx context.Context, plan string) (*CheckoutSession, error) {
	var resp CheckoutSession
	body := map[string]string{"plan": plan}
	if err := c.do(ctx, http.MethodPost, "/subscriptions/subscribe", nil, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
