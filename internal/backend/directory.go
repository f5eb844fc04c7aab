package backend

import (
	"context"
	"net/http"
	"net/url"

	"slabdesk/internal/listing"
)

func (c *Client) ListClientes(ctx context.Context, params listing.Params) (*ClienteList, error) {
	var out ClienteList
	if err := c.svc.get(ctx, "ListClientes", "/clientes", params.Values(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateCliente(ctx context.Context, req CreateClienteRequest) (*Cliente, error) {
	var out Cliente
	if err := c.svc.doRequest(ctx, "CreateCliente", http.MethodPost, "/clientes", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) InviteBroker(ctx context.Context, req InviteBrokerRequest) (*User, error) {
	var out User
	if err := c.svc.doRequest(ctx, "InviteBroker", http.MethodPost, "/brokers/invite", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateUserStatus(ctx context.Context, userID string, active bool) (*User, error) {
	body := struct {
		IsActive bool `json:"isActive"`
	}{IsActive: active}
	var out User
	if err := c.svc.doRequest(ctx, "UpdateUserStatus", http.MethodPatch, "/users/"+url.PathEscape(userID)+"/status", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ResendInvite(ctx context.Context, userID string) error {
	return c.svc.doRequest(ctx, "ResendInvite", http.MethodPost, "/users/"+url.PathEscape(userID)+"/resend-invite", nil, nil)
}
