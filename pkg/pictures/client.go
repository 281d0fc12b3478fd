package pictures

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/samvad-hq/picture-gallery/internal/domain"
	"github.com/samvad-hq/picture-gallery/pkg/httpclient"
)

// Package pictures is the resource client for the remote image API.

const collectionPath = "/api/images"

// ErrMissingID is returned by GetByID when no id is supplied; no request is made.
var ErrMissingID = errors.New("missing picture id")

// Client reads pictures through the envelope-normalizing HTTP client.
type Client struct {
	api *httpclient.Client
}

// New wires a resource client on top of api.
func New(api *httpclient.Client) *Client {
	return &Client{api: api}
}

// List fetches the picture collection.
//
// The API wraps its payload in its own envelope, so the body decodes into an
// APIResponse nested inside the client's APIResponse. List returns the inner
// envelope. When the outer envelope carries no data the result is nil and
// the error is the outer envelope's *httpclient.Error.
func (c *Client) List(ctx context.Context) (*httpclient.APIResponse[[]domain.Picture], error) {
	res := httpclient.Get[httpclient.APIResponse[[]domain.Picture]](ctx, c.api, collectionPath)
	return unwrapOuter(res)
}

// GetByID fetches a single picture, returning the inner envelope as List does.
func (c *Client) GetByID(ctx context.Context, id string) (*httpclient.APIResponse[domain.Picture], error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrMissingID
	}
	res := httpclient.Get[httpclient.APIResponse[domain.Picture]](ctx, c.api, collectionPath+"/"+url.PathEscape(id))
	return unwrapOuter(res)
}

func unwrapOuter[T any](res httpclient.APIResponse[httpclient.APIResponse[T]]) (*httpclient.APIResponse[T], error) {
	if res.Data == nil {
		return nil, res.Err()
	}
	return res.Data, nil
}
