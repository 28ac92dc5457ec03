package sample

import (
	"context"

	"github.com/kestrelquant/kestrel"
)

type QuoteParams struct {
	Symbol string `param:"symbol" validate:"required"`
}

func Quote(ctx context.Context, c *kestrel.Client, p *QuoteParams) (*kestrel.Response, error) {
	return c.Get(ctx, "/quote/"+p.Symbol, nil)
}

func Ping(ctx context.Context, c *kestrel.Client) (*kestrel.Response, error) {
	return c.Get(ctx, "/ping", nil)
}

func hidden(ctx context.Context, c *kestrel.Client) (*kestrel.Response, error) {
	return c.Get(ctx, "/hidden", nil)
}

type Session struct{}

func (s *Session) Tickle(ctx context.Context, c *kestrel.Client) (*kestrel.Response, error) {
	return c.Post(ctx, "/tickle", nil)
}

func ValueParams(ctx context.Context, c *kestrel.Client, p QuoteParams) (*kestrel.Response, error) {
	return nil, nil
}

func NoContext(c *kestrel.Client) (*kestrel.Response, error) {
	return nil, nil
}

func NoError(ctx context.Context, c *kestrel.Client) *kestrel.Response {
	return nil
}

func ExtraArg(ctx context.Context, c *kestrel.Client, p *QuoteParams, n int) (*kestrel.Response, error) {
	return nil, nil
}

var _ = hidden
