// Package ibkr implements the Interactive Brokers Client Portal Web API
// endpoints on top of kestrel.
package ibkr

import "github.com/kestrelquant/kestrel"

// Provider is the registry namespace of this package's endpoints.
const Provider = "ibkr"

// Register adds every endpoint in this package to r.
func Register(r *kestrel.Registry) {
	p := r.Provider(Provider)

	kestrel.Register(p, "account_summary", "accounts", AccountSummary)
	kestrel.Register(p, "contract_details", "contracts", ContractDetails)
	kestrel.Register(p, "currency_exchange_rates", "currencies", CurrencyExchangeRates)

	kestrel.Register(p, "security_info", "securities", SecurityInfo)
	kestrel.Register(p, "security_search", "securities", SecuritySearch)
	kestrel.Register(p, "security_strikes", "securities", SecurityStrikes)
	kestrel.Register(p, "all_contracts", "securities", AllContracts)
	kestrel.Register(p, "all_futures", "securities", AllFutures)
	kestrel.Register(p, "security_schedule", "securities", SecuritySchedule)
	kestrel.Register(p, "security_definition", "securities", SecurityDefinition)
	kestrel.Register(p, "security_stocks", "securities", SecurityStocks)
	kestrel.Register(p, "data_ohlc_hmds", "securities", HMDSHistory)
	kestrel.Register(p, "data_ohlc_iserver", "securities", IServerHistory)
	kestrel.Register(p, "data_snapshots", "securities", Snapshots)
	kestrel.Register(p, "data_snapshots_unsubscribe", "securities", UnsubscribeSnapshot)
	p.RegisterBare("data_snapshots_unsubscribe_all", "securities", UnsubscribeAllSnapshots)

	kestrel.Register(p, "order_status", "orders", OrderStatus)
	p.RegisterBare("all_orders", "orders", AllOrders)
	kestrel.Register(p, "modify_order", "orders", ModifyOrder)
	kestrel.Register(p, "cancel_order", "orders", CancelOrder)
	kestrel.Register(p, "place_order", "orders", PlaceOrder)
	kestrel.Register(p, "simulate_order", "orders", SimulateOrder)
	kestrel.Register(p, "respond_to_order_prompt", "orders", RespondToOrderPrompt)
	kestrel.Register(p, "suppress_order_prompt", "orders", SuppressOrderPrompt)
	p.RegisterBare("reset_suppressed_order_prompts", "orders", ResetSuppressedOrderPrompts)
	kestrel.Register(p, "confirm_order_prompt", "orders", ConfirmOrderPrompt)
}
