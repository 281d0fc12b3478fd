package hooks

import (
	"context"
	"errors"
	"strings"

	"github.com/samvad-hq/picture-gallery/internal/domain"
	"github.com/samvad-hq/picture-gallery/internal/logger"
	"github.com/samvad-hq/picture-gallery/internal/query"
	"github.com/samvad-hq/picture-gallery/pkg/httpclient"
	"github.com/samvad-hq/picture-gallery/pkg/pictures"
)

// Package hooks exposes cache-keyed picture queries to rendering code.

const keyPictures = "pictures"

// PictureSource is the resource client the hooks read through.
type PictureSource interface {
	List(ctx context.Context) (*httpclient.APIResponse[[]domain.Picture], error)
	GetByID(ctx context.Context, id string) (*httpclient.APIResponse[domain.Picture], error)
}

// Pictures binds a picture source to a query client.
type Pictures struct {
	source  PictureSource
	queries *query.Client
	log     logger.Logger
}

// New returns the picture hooks. source and queries are required.
func New(source PictureSource, queries *query.Client, log logger.Logger) *Pictures {
	return &Pictures{source: source, queries: queries, log: logger.Ensure(log)}
}

// ListKey is the cache key of the picture collection.
func ListKey() query.Key { return query.Key{keyPictures} }

// DetailKey is the cache key of one picture.
func DetailKey(id string) query.Key { return query.Key{keyPictures, id} }

// All returns the picture collection state.
func (p *Pictures) All(ctx context.Context, opts ...query.Option) query.State[[]domain.Picture] {
	return query.Run(ctx, p.queries, ListKey(), func(ctx context.Context) ([]domain.Picture, error) {
		res, err := p.source.List(ctx)
		data, err := unwrap(res, err)
		if err != nil {
			p.logFailure("list", "", err)
			return nil, err
		}
		return *data, nil
	}, opts...)
}

// Detail returns the state of one picture. The query stays idle while id is
// empty, whatever opts say.
func (p *Pictures) Detail(ctx context.Context, id string, opts ...query.Option) query.State[domain.Picture] {
	id = strings.TrimSpace(id)
	opts = append(opts[:len(opts):len(opts)], query.EnabledIf(id != ""))

	return query.Run(ctx, p.queries, DetailKey(id), func(ctx context.Context) (domain.Picture, error) {
		if id == "" {
			return domain.Picture{}, pictures.ErrMissingID
		}
		res, err := p.source.GetByID(ctx, id)
		data, err := unwrap(res, err)
		if err != nil {
			p.logFailure("detail", id, err)
			return domain.Picture{}, err
		}
		return *data, nil
	}, opts...)
}

// Refresh marks every picture query stale and returns how many were cached.
func (p *Pictures) Refresh(ctx context.Context) int {
	return p.queries.Invalidate(ctx, ListKey())
}

// unwrap turns the inner envelope into its payload. A missing envelope keeps
// the source error; a failed or empty envelope fails with its own message.
func unwrap[T any](res *httpclient.APIResponse[T], err error) (*T, error) {
	if res == nil {
		if err == nil {
			err = &httpclient.Error{}
		}
		return nil, err
	}
	if err := res.Err(); err != nil {
		return nil, err
	}
	return res.Data, nil
}

func (p *Pictures) logFailure(op, id string, err error) {
	fields := map[string]any{
		"op":    op,
		"error": err.Error(),
	}
	if id != "" {
		fields["id"] = id
	}
	var apiErr *httpclient.Error
	if errors.As(err, &apiErr) {
		fields["status"] = apiErr.Status
	}
	p.log.WarnObj("picture query failed", "picture_error", fields)
}
