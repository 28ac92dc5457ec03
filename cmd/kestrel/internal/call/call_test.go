package call

import (
	"bytes"
	"context"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/kestrelquant/kestrel"
	"github.com/kestrelquant/kestrel/cmd/kestrel/internal/app"
	"github.com/kestrelquant/kestrel/testutil"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []any
	}{
		{"empty", nil, nil},
		{"positional", []string{"AAPL", "STK"}, []any{"AAPL", "STK"}},
		{"named", []string{"symbol=AAPL"}, []any{kestrel.Named{"symbol": "AAPL"}}},
		{
			"mixed",
			[]string{"265598", "period=3D", "bar=60S"},
			[]any{"265598", kestrel.Named{"period": "3D", "bar": "60S"}},
		},
		{"value with equals", []string{"criteria=a=b"}, []any{kestrel.Named{"criteria": "a=b"}}},
		{"not a key", []string{"=x", "a b=c"}, []any{"=x", "a b=c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseArgs(tt.args); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseArgs(%q) = %#v, want %#v", tt.args, got, tt.want)
			}
		})
	}
}

func TestPrint(t *testing.T) {
	var buf bytes.Buffer
	err := Print(&buf, "ibkr.all_orders", &kestrel.Response{StatusCode: 200, Body: []byte(`{"orders":[]}`)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "ibkr.all_orders: 200\n{\n  \"orders\": []\n}\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}

	buf.Reset()
	_ = Print(&buf, "ibkr.all_orders", &kestrel.Response{StatusCode: 502, Body: []byte("Bad Gateway")})
	if buf.String() != "ibkr.all_orders: 502\nBad Gateway\n" {
		t.Errorf("unexpected raw output %q", buf.String())
	}
}

func TestParseBatch(t *testing.T) {
	reqs, err := ParseBatch(strings.NewReader(`
- endpoint: security_search
  args:
    symbol: AAPL
    name: true
- endpoint: ibkr.all_orders
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reqs) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(reqs))
	}
	if reqs[0].Endpoint != "security_search" || reqs[0].Args["symbol"] != "AAPL" || reqs[0].Args["name"] != true {
		t.Errorf("unexpected first request %+v", reqs[0])
	}
	if reqs[1].Args != nil {
		t.Errorf("expected no args, got %v", reqs[1].Args)
	}

	if _, err := ParseBatch(strings.NewReader("- args: {symbol: AAPL}\n")); err == nil {
		t.Error("expected error for a call without endpoint")
	}
	if _, err := ParseBatch(strings.NewReader("")); err == nil {
		t.Error("expected error for an empty batch")
	}
}

func TestRunBatch(t *testing.T) {
	broker := testutil.NewBroker(t)

	// The first call is answered only after every call has arrived, so the
	// batch must not serialize on it.
	var (
		mu      sync.Mutex
		arrived int
		all     = make(chan struct{})
	)
	arrive := func() {
		mu.Lock()
		defer mu.Unlock()
		arrived++
		if arrived == 2 {
			close(all)
		}
	}
	broker.Handle(http.MethodGet, "/iserver/secdef/search", func(w http.ResponseWriter, r *http.Request) {
		arrive()
		<-all
		testutil.WriteJSON(w, http.StatusOK, []map[string]any{{"conid": 265598}})
	})
	broker.Handle(http.MethodGet, "/iserver/account/orders", func(w http.ResponseWriter, r *http.Request) {
		arrive()
		testutil.WriteJSON(w, http.StatusOK, map[string]any{"orders": []any{}})
	})

	d := kestrel.NewDispatcher(kestrel.NewClient(broker.URL, broker.Client())).WithRegistry(app.NewRegistry(nil))

	outcomes := RunBatch(context.Background(), d, "ibkr", []Request{
		{Endpoint: "security_search", Args: map[string]any{"symbol": "AAPL", "name": true}},
		{Endpoint: "place_order", Args: map[string]any{"account_id": "U1"}},
		{Endpoint: "ibkr.all_orders"},
		{Endpoint: "ibkr.missing"},
	})

	if len(outcomes) != 4 {
		t.Fatalf("expected 4 outcomes, got %d", len(outcomes))
	}
	if o := outcomes[0]; o.Err != nil || o.Response.StatusCode != http.StatusOK || o.Endpoint != "ibkr.security_search" {
		t.Errorf("unexpected search outcome %+v", o)
	}
	if o := outcomes[1]; kestrel.CodeOf(o.Err) != kestrel.CodeInvalidArgument {
		t.Errorf("expected invalid argument for place_order, got %v", o.Err)
	}
	if o := outcomes[2]; o.Err != nil || o.Response.StatusCode != http.StatusOK {
		t.Errorf("unexpected all_orders outcome %+v", o)
	}
	if o := outcomes[3]; kestrel.CodeOf(o.Err) != kestrel.CodeNotFound {
		t.Errorf("expected not found, got %v", o.Err)
	}

	search := broker.Requests()
	var found bool
	for _, r := range search {
		if r.Path == "/iserver/secdef/search" {
			found = true
			testutil.AssertQuery(t, r, map[string]string{"symbol": "AAPL", "name": "true"})
		}
	}
	if !found {
		t.Error("search request not received")
	}
}

func TestNormalize(t *testing.T) {
	got := normalize(map[string]any{
		"symbols": []any{"ES", "NQ"},
		"conids":  []any{265598, 8314},
		"order":   map[string]any{"side": "BUY", "legs": []any{map[string]any{"x": 1}}},
	}).(map[string]any)

	if !reflect.DeepEqual(got["symbols"], []string{"ES", "NQ"}) {
		t.Errorf("unexpected symbols %#v", got["symbols"])
	}
	if !reflect.DeepEqual(got["conids"], []string{"265598", "8314"}) {
		t.Errorf("unexpected conids %#v", got["conids"])
	}
	order := got["order"].(map[string]any)
	if _, ok := order["legs"].([]any); !ok {
		t.Errorf("expected nested sequences of mappings to be kept, got %#v", order["legs"])
	}
}
