package backend

import (
	"context"
	"net/http"
	"net/url"

	"slabdesk/internal/domain"
	"slabdesk/internal/listing"
)

// Client is the typed facade over the inventory API.
type Client struct {
	svc *ServiceClient
}

func NewClient(svc *ServiceClient) *Client {
	return &Client{svc: svc}
}

// ServiceClient exposes the underlying client for health reporting.
func (c *Client) ServiceClient() *ServiceClient {
	return c.svc
}

func (c *Client) ListBatches(ctx context.Context, params listing.Params) (*BatchList, error) {
	var out BatchList
	if err := c.svc.get(ctx, "ListBatches", "/batches", params.Values(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetBatch(ctx context.Context, id string) (*domain.Batch, error) {
	var out Batch
	if err := c.svc.get(ctx, "GetBatch", "/batches/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	batch := out.ToDomain()
	return &batch, nil
}

func (c *Client) ListProducts(ctx context.Context, params listing.Params) (*ProductList, error) {
	var out ProductList
	if err := c.svc.get(ctx, "ListProducts", "/products", params.Values(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListSharedInventory(ctx context.Context, params listing.Params) ([]SharedBatch, error) {
	var out []SharedBatch
	if err := c.svc.get(ctx, "ListSharedInventory", "/broker/shared-inventory", params.Values(), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateAvailability moves quantity slabs between buckets on the server and
// returns the confirmed batch.
func (c *Client) UpdateAvailability(ctx context.Context, id string, from, to domain.Status, quantity int) (*domain.Batch, error) {
	body := AvailabilityRequest{Status: to.String(), FromStatus: from.String(), Quantity: quantity}
	var out Batch
	if err := c.svc.doRequest(ctx, "UpdateAvailability", http.MethodPatch, "/batches/"+url.PathEscape(id)+"/availability", body, &out); err != nil {
		return nil, err
	}
	batch := out.ToDomain()
	return &batch, nil
}

func (c *Client) SellBatch(ctx context.Context, id string, req SellRequest) (*SaleResult, error) {
	var out SaleResult
	if err := c.svc.doRequest(ctx, "SellBatch", http.MethodPost, "/batches/"+url.PathEscape(id)+"/sell", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
