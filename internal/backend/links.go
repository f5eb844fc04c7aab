package backend

import (
	"context"
	"net/http"
	"net/url"
)

func (c *Client) CreateSalesLink(ctx context.Context, req CreateSalesLinkRequest) (*SalesLink, error) {
	var out SalesLink
	if err := c.svc.doRequest(ctx, "CreateSalesLink", http.MethodPost, "/sales-links", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ValidateSlug reports whether slug is still free.
func (c *Client) ValidateSlug(ctx context.Context, slug string) (bool, error) {
	var out struct {
		Available bool `json:"available"`
	}
	if err := c.svc.get(ctx, "ValidateSlug", "/sales-links/validate-slug", url.Values{"slug": {slug}}, &out); err != nil {
		return false, err
	}
	return out.Available, nil
}

// ShareSalesLink delivers a link to one client.
func (c *Client) ShareSalesLink(ctx context.Context, linkID string, req ShareRequest) error {
	return c.svc.doRequest(ctx, "ShareSalesLink", http.MethodPost, "/sales-links/"+url.PathEscape(linkID)+"/share", req, nil)
}
