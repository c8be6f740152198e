package marketapi

import (
	"context"
	"fmt"
)

// GetPortfolio retrieves the holdings of a user's portfolio.
// The backend creates an empty portfolio on first access.
func (c *Client) GetPortfolio(ctx context.Context, userID int) (*Portfolio, error) {
	resp, err := c.Get(ctx, fmt.Sprintf("/portfolios/%d", userID))
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := CheckResponse(resp); err != nil {
		return nil, err
	}

	var portfolio Portfolio
	if err := DecodeJSON(resp, &portfolio); err != nil {
		return nil, err
	}
	if portfolio.Holdings == nil {
		portfolio.Holdings = []Holding{}
	}

	return &portfolio, nil
}

// GetPortfolioMetrics retrieves aggregate metrics for a user's portfolio.
func (c *Client) GetPortfolioMetrics(ctx context.Context, userID int) (*PortfolioMetrics, error) {
	resp, err := c.Get(ctx, fmt.Sprintf("/portfolios/%d/metrics", userID))
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := CheckResponse(resp); err != nil {
		return nil, err
	}

	var metrics PortfolioMetrics
	if err := DecodeJSON(resp, &metrics); err != nil {
		return nil, err
	}

	return &metrics, nil
}

// AddContract adds a contract to a user's portfolio and returns the created holding.
// Adding a contract that is already held returns the existing holding.
func (c *Client) AddContract(ctx context.Context, userID, contractID int) (*Holding, error) {
	resp, err := c.Post(ctx, fmt.Sprintf("/portfolios/%d/contracts/%d", userID, contractID))
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := CheckResponse(resp); err != nil {
		return nil, err
	}

	var holding Holding
	if err := DecodeJSON(resp, &holding); err != nil {
		return nil, err
	}

	return &holding, nil
}

// RemoveContract removes a contract from a user's portfolio.
func (c *Client) RemoveContract(ctx context.Context, userID, contractID int) error {
	resp, err := c.Delete(ctx, fmt.Sprintf("/portfolios/%d/contracts/%d", userID, contractID))
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	return CheckResponse(resp)
}
