package ibkr

import (
	"time"

	"github.com/kestrelquant/kestrel"
	"github.com/shopspring/decimal"
)

// AssetClass is a security type accepted by the trsrv endpoints.
type AssetClass string

const (
	AssetStock   AssetClass = "STK"
	AssetOption  AssetClass = "OPT"
	AssetFuture  AssetClass = "FUT"
	AssetCFD     AssetClass = "CFD"
	AssetWarrant AssetClass = "WAR"
	AssetSwap    AssetClass = "SWP"
	AssetFund    AssetClass = "FUND"
	AssetBond    AssetClass = "BOND"
)

// BarType selects the price series returned by the HMDS history endpoint.
type BarType string

const (
	BarLast      BarType = "Last"
	BarBid       BarType = "Bid"
	BarAsk       BarType = "Ask"
	BarMidpoint  BarType = "Midpoint"
	BarFeeRate   BarType = "FeeRate"
	BarInventory BarType = "Inventory"
)

type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

type TimeInForce string

const (
	Day                TimeInForce = "DAY"
	ImmediateOrCancel  TimeInForce = "IOC"
	GoodTillCancel     TimeInForce = "GTC"
	OnOpen             TimeInForce = "OPG"
	PreAndAfterSession TimeInForce = "PAX"
)

// Order is the order ticket sent by place, simulate and modify. It is
// serialized by wire name.
type Order struct {
	AccountID string          `param:"account_id,wire=acctId" validate:"required"`
	Conid     string          `param:"conid" validate:"required"`
	OrderType string          `param:"order_type,wire=orderType" validate:"required"`
	Side      Side            `param:"side" validate:"required,oneof=BUY SELL"`
	TIF       TimeInForce     `param:"tif" validate:"required,oneof=DAY IOC GTC OPG PAX"`
	Quantity  decimal.Decimal `param:"quantity" validate:"required"`

	// OrderID is only checked against the enclosing modify request.
	OrderID *int64 `param:"order_id,wire=orderId"`

	Conidex            *string          `param:"conidex"`
	SecType            *string          `param:"sec_type,wire=secType"`
	COID               *string          `param:"c_oid,wire=cOID"`
	ParentID           *string          `param:"parent_id,wire=parentId"`
	IsSingleGroup      *bool            `param:"is_single_group,wire=isSingleGroup"`
	OutsideRTH         *bool            `param:"outside_rth,wire=outsideRTH"`
	AuxPrice           *decimal.Decimal `param:"aux_price,wire=auxPrice"`
	Ticker             *string          `param:"ticker"`
	TrailingAmt        *decimal.Decimal `param:"trailing_amt,wire=trailingAmt"`
	TrailingType       *string          `param:"trailing_type,wire=trailingType"`
	Referrer           *string          `param:"referrer"`
	CashQty            *decimal.Decimal `param:"cash_qty,wire=cashQty"`
	UseAdaptive        *bool            `param:"use_adaptive,wire=useAdaptive"`
	IsCcyConv          *bool            `param:"is_ccy_conv,wire=isCcyConv"`
	Price              *decimal.Decimal `param:"price"`
	Strategy           *string          `param:"strategy"`
	StrategyParameters map[string]any   `param:"strategy_parameters,wire=strategyParameters"`
}

type AccountSummaryParams struct {
	AccountID string `param:"account_id" validate:"required"`
}

type ContractDetailsParams struct {
	Conid string `param:"conid" validate:"required"`
}

type ExchangeRateParams struct {
	Currency string `param:"currency" validate:"required"`
}

type SecurityInfoParams struct {
	Conid    *string  `param:"conid"`
	SecType  *string  `param:"sectype"`
	Month    *string  `param:"month"`
	Exchange *string  `param:"exchange"`
	Strike   *float64 `param:"strike"`
	Right    *string  `param:"right" validate:"omitempty,oneof=C P"`
}

type SecuritySearchParams struct {
	Symbol            string  `param:"symbol" validate:"required"`
	SecType           *string `param:"sectype"`
	Name              *bool   `param:"name"`
	More              *bool   `param:"more"`
	Fund              *bool   `param:"fund"`
	FundFamilyConIDEx *string `param:"fund_family_con_id_ex"`
	Pattern           *bool   `param:"pattern"`
	Referrer          *string `param:"referrer"`
}

type SecurityStrikesParams struct {
	Conid    string `param:"conid" validate:"required"`
	SecType  string `param:"sectype" validate:"required"`
	Month    string `param:"month" validate:"required"`
	Exchange string `param:"exchange,default=SMART"`
}

type AllContractsParams struct {
	AssetClass AssetClass `param:"asset_class,wire=assetClass,default=STK" validate:"oneof=STK OPT FUT CFD WAR SWP FUND BOND"`
	Exchange   string     `param:"exchange,default=SMART"`
}

type AllFuturesParams struct {
	Symbols  []string `param:"symbols" validate:"required"`
	Exchange string   `param:"exchange,default=SMART"`
}

type SecurityScheduleParams struct {
	AssetClass     AssetClass `param:"asset_class,wire=assetClass,default=STK" validate:"oneof=STK OPT FUT CFD WAR SWP FUND BOND"`
	Symbol         string     `param:"symbol" validate:"required"`
	ExchangeFilter []string   `param:"exchange_filter,wire=exchangeFilter"`
	Exchange       string     `param:"exchange,default=SMART"`
}

type SecurityDefinitionParams struct {
	Conids   []string `param:"conids" validate:"required"`
	Criteria *string  `param:"criteria"`
	Bondp    *string  `param:"bondp"`
}

type SecurityStocksParams struct {
	Symbols  []string `param:"symbols" validate:"required"`
	Exchange string   `param:"exchange,default=SMART"`
}

// HMDSHistoryParams requests bars from the historical market data service.
// AnchorDate is the start of the window when AnchorDateIsStart is true and
// its end otherwise.
type HMDSHistoryParams struct {
	Conid             int64         `param:"conid" validate:"required"`
	BarType           BarType       `param:"bar_type,wire=barType" validate:"required,oneof=Last Bid Ask Midpoint FeeRate Inventory"`
	AnchorDate        time.Time     `param:"anchor_date,wire=startTime" validate:"required"`
	Period            time.Duration `param:"period,transform=days" validate:"required"`
	Bar               time.Duration `param:"bar,transform=seconds" validate:"required"`
	AnchorDateIsStart *bool         `param:"anchor_date_is_start,wire=direction,default=true,transform=sign"`
	OutsideRTH        *bool         `param:"outside_rth,wire=outsideRTH,default=false"`
}

type IServerHistoryParams struct {
	Conid      int64         `param:"conid" validate:"required"`
	Period     time.Duration `param:"period,transform=days" validate:"required"`
	Bar        time.Duration `param:"bar,transform=seconds" validate:"required"`
	StartTime  time.Time     `param:"start_time,wire=startTime" validate:"required"`
	Exchange   string        `param:"exchange,default=SMART"`
	OutsideRTH *bool         `param:"outside_rth,wire=outsideRTH,default=false"`
}

type SnapshotParams struct {
	Conids []string `param:"conids" validate:"required"`
	Fields []string `param:"fields" validate:"required"`
}

type UnsubscribeParams struct {
	Conid int64 `param:"conid" validate:"required"`
}

type OrderStatusParams struct {
	OrderID int64 `param:"order_id,wire=orderId" validate:"required"`
}

type CancelOrderParams struct {
	OrderID   int64  `param:"order_id,wire=orderId" validate:"required"`
	AccountID string `param:"account_id,wire=acctId" validate:"required"`
}

// PlaceOrderParams is shared by place_order and simulate_order.
type PlaceOrderParams struct {
	AccountID string `param:"account_id,wire=acctId" validate:"required"`
	Order     Order  `param:"order" validate:"required"`
}

func (p *PlaceOrderParams) Validate() error {
	return checkAccount(p.AccountID, &p.Order)
}

type ModifyOrderParams struct {
	OrderID   int64  `param:"order_id,wire=orderId" validate:"required"`
	AccountID string `param:"account_id,wire=acctId" validate:"required"`
	Order     Order  `param:"order" validate:"required"`
}

func (p *ModifyOrderParams) Validate() error {
	if err := checkAccount(p.AccountID, &p.Order); err != nil {
		return err
	}
	if p.Order.OrderID != nil && *p.Order.OrderID != p.OrderID {
		return kestrel.Invalid("order.order_id", "%d does not match order_id %d", *p.Order.OrderID, p.OrderID)
	}
	return nil
}

func checkAccount(accountID string, o *Order) error {
	if o.AccountID != accountID {
		return kestrel.Invalid("order.account_id", "%q does not match account_id %q", o.AccountID, accountID)
	}
	return nil
}

type PromptResponseParams struct {
	OrderID int64  `param:"order_id,wire=orderId" validate:"required"`
	ReqID   string `param:"req_id,wire=reqId" validate:"required"`
	Text    string `param:"text" validate:"required"`
}

type SuppressPromptParams struct {
	MessageIDs []string `param:"message_ids,wire=messageIds" validate:"required"`
}

type ConfirmPromptParams struct {
	ReplyID   string `param:"reply_id,wire=replyId" validate:"required"`
	Confirmed *bool  `param:"confirmed,default=true"`
}
