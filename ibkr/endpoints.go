package ibkr

import (
	"context"
	"net/url"
	"strconv"

	"github.com/kestrelquant/kestrel"
)

// Each endpoint translates its validated parameters into exactly one HTTP
// call. Whether query strings and bodies use declared or wire names is
// fixed per endpoint.

func AccountSummary(ctx context.Context, c *kestrel.Client, p *AccountSummaryParams) (*kestrel.Response, error) {
	return c.Get(ctx, "/iserver/account/"+url.PathEscape(p.AccountID)+"/summary", nil)
}

func ContractDetails(ctx context.Context, c *kestrel.Client, p *ContractDetailsParams) (*kestrel.Response, error) {
	return c.Get(ctx, "/iserver/contract/"+url.PathEscape(p.Conid)+"/info", nil)
}

// CurrencyExchangeRates quotes p.Currency against USD.
func CurrencyExchangeRates(ctx context.Context, c *kestrel.Client, p *ExchangeRateParams) (*kestrel.Response, error) {
	return c.Get(ctx, "/iserver/currency/exchange_rates", url.Values{
		"source": {"USD"},
		"target": {p.Currency},
	})
}

func SecurityInfo(ctx context.Context, c *kestrel.Client, p *SecurityInfoParams) (*kestrel.Response, error) {
	return get(ctx, c, "/iserver/secdef/info", p, kestrel.ByName)
}

func SecuritySearch(ctx context.Context, c *kestrel.Client, p *SecuritySearchParams) (*kestrel.Response, error) {
	return get(ctx, c, "/iserver/secdef/search", p, kestrel.ByName)
}

func SecurityStrikes(ctx context.Context, c *kestrel.Client, p *SecurityStrikesParams) (*kestrel.Response, error) {
	return get(ctx, c, "/iserver/secdef/strikes", p, kestrel.ByName)
}

func AllContracts(ctx context.Context, c *kestrel.Client, p *AllContractsParams) (*kestrel.Response, error) {
	return get(ctx, c, "/trsrv/all-conids", p, kestrel.ByAlias)
}

func AllFutures(ctx context.Context, c *kestrel.Client, p *AllFuturesParams) (*kestrel.Response, error) {
	return get(ctx, c, "/trsrv/futures", p, kestrel.ByName)
}

func SecuritySchedule(ctx context.Context, c *kestrel.Client, p *SecurityScheduleParams) (*kestrel.Response, error) {
	return get(ctx, c, "/trsrv/secdef/schedule", p, kestrel.ByAlias)
}

func SecurityDefinition(ctx context.Context, c *kestrel.Client, p *SecurityDefinitionParams) (*kestrel.Response, error) {
	return get(ctx, c, "/trsrv/secdef", p, kestrel.ByAlias)
}

func SecurityStocks(ctx context.Context, c *kestrel.Client, p *SecurityStocksParams) (*kestrel.Response, error) {
	return get(ctx, c, "/trsrv/stocks", p, kestrel.ByName)
}

func HMDSHistory(ctx context.Context, c *kestrel.Client, p *HMDSHistoryParams) (*kestrel.Response, error) {
	return get(ctx, c, "/hmds/history", p, kestrel.ByAlias)
}

func IServerHistory(ctx context.Context, c *kestrel.Client, p *IServerHistoryParams) (*kestrel.Response, error) {
	return get(ctx, c, "/iserver/marketdata/history", p, kestrel.ByAlias)
}

// Snapshots returns market data for p.Fields. The first request for a
// contract only opens the subscription; repeat it to receive values.
func Snapshots(ctx context.Context, c *kestrel.Client, p *SnapshotParams) (*kestrel.Response, error) {
	return get(ctx, c, "/iserver/marketdata/snapshot", p, kestrel.ByName)
}

func UnsubscribeSnapshot(ctx context.Context, c *kestrel.Client, p *UnsubscribeParams) (*kestrel.Response, error) {
	return post(ctx, c, "/iserver/marketdata/unsubscribe", p, kestrel.ByName)
}

func UnsubscribeAllSnapshots(ctx context.Context, c *kestrel.Client) (*kestrel.Response, error) {
	return c.Get(ctx, "/iserver/marketdata/unsubscribe/all", nil)
}

func OrderStatus(ctx context.Context, c *kestrel.Client, p *OrderStatusParams) (*kestrel.Response, error) {
	return get(ctx, c, "/iserver/account/order/status/"+strconv.FormatInt(p.OrderID, 10), p, kestrel.ByAlias)
}

func AllOrders(ctx context.Context, c *kestrel.Client) (*kestrel.Response, error) {
	return c.Get(ctx, "/iserver/account/orders", nil)
}

func ModifyOrder(ctx context.Context, c *kestrel.Client, p *ModifyOrderParams) (*kestrel.Response, error) {
	path := "/iserver/account/" + url.PathEscape(p.AccountID) + "/order/" + strconv.FormatInt(p.OrderID, 10)
	return post(ctx, c, path, &p.Order, kestrel.ByAlias)
}

func CancelOrder(ctx context.Context, c *kestrel.Client, p *CancelOrderParams) (*kestrel.Response, error) {
	return c.Delete(ctx, "/iserver/account/"+url.PathEscape(p.AccountID)+"/order/"+strconv.FormatInt(p.OrderID, 10))
}

func PlaceOrder(ctx context.Context, c *kestrel.Client, p *PlaceOrderParams) (*kestrel.Response, error) {
	return post(ctx, c, "/iserver/account/"+url.PathEscape(p.AccountID)+"/orders", &p.Order, kestrel.ByAlias)
}

// SimulateOrder previews margin and commission for an order without
// placing it.
func SimulateOrder(ctx context.Context, c *kestrel.Client, p *PlaceOrderParams) (*kestrel.Response, error) {
	return post(ctx, c, "/iserver/account/"+url.PathEscape(p.AccountID)+"/orders/whatif", &p.Order, kestrel.ByAlias)
}

func RespondToOrderPrompt(ctx context.Context, c *kestrel.Client, p *PromptResponseParams) (*kestrel.Response, error) {
	return post(ctx, c, "/iserver/notification", p, kestrel.ByAlias)
}

func SuppressOrderPrompt(ctx context.Context, c *kestrel.Client, p *SuppressPromptParams) (*kestrel.Response, error) {
	return post(ctx, c, "/iserver/questions/suppress", p, kestrel.ByAlias)
}

func ResetSuppressedOrderPrompts(ctx context.Context, c *kestrel.Client) (*kestrel.Response, error) {
	return c.Post(ctx, "/iserver/questions/suppress/reset", nil)
}

func ConfirmOrderPrompt(ctx context.Context, c *kestrel.Client, p *ConfirmPromptParams) (*kestrel.Response, error) {
	return post(ctx, c, "/iserver/reply/"+url.PathEscape(p.ReplyID), p, kestrel.ByAlias)
}

func get(ctx context.Context, c *kestrel.Client, path string, p any, mode kestrel.DumpMode) (*kestrel.Response, error) {
	q, err := kestrel.Query(p, mode)
	if err != nil {
		return nil, err
	}
	return c.Get(ctx, path, q)
}

func post(ctx context.Context, c *kestrel.Client, path string, p any, mode kestrel.DumpMode) (*kestrel.Response, error) {
	body, err := kestrel.Dump(p, mode)
	if err != nil {
		return nil, err
	}
	return c.Post(ctx, path, body)
}
