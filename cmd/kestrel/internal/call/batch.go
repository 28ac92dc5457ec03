package call

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"gopkg.in/yaml.v3"

	"github.com/kestrelquant/kestrel"
	"github.com/kestrelquant/kestrel/cmd/kestrel/internal/app"
)

// BatchCmd runs every call in a YAML file concurrently:
//
//	- endpoint: security_search
//	  args: {symbol: AAPL}
//	- endpoint: ibkr.all_orders
type BatchCmd struct {
	File     string `arg:"" type:"existingfile" help:"YAML file listing the calls."`
	Provider string `help:"Provider of unqualified endpoint names." default:"ibkr"`
}

func (c *BatchCmd) Run(g *app.Globals) error {
	f, err := os.Open(c.File)
	if err != nil {
		return err
	}
	defer f.Close()

	reqs, err := ParseBatch(f)
	if err != nil {
		return fmt.Errorf("%s: %w", c.File, err)
	}

	a, err := g.Open()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var failed int
	for _, o := range RunBatch(ctx, a.Dispatcher, c.Provider, reqs) {
		if o.Err != nil {
			failed++
			fmt.Fprintf(os.Stdout, "%s: error: %v\n", o.Endpoint, o.Err)
			continue
		}
		if err := Print(os.Stdout, o.Endpoint, o.Response); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d calls failed", failed, len(reqs))
	}
	return nil
}

// Request is one call in a batch file. Args are keyed by declared
// parameter name.
type Request struct {
	Endpoint string         `yaml:"endpoint"`
	Args     map[string]any `yaml:"args"`
}

// Outcome is the result of one batch request.
type Outcome struct {
	Endpoint string
	Response *kestrel.Response
	Err      error
}

// ParseBatch decodes a YAML list of requests.
func ParseBatch(r io.Reader) ([]Request, error) {
	var reqs []Request
	if err := yaml.NewDecoder(r).Decode(&reqs); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty batch")
		}
		return nil, err
	}
	for i, req := range reqs {
		if req.Endpoint == "" {
			return nil, fmt.Errorf("call %d: missing endpoint", i+1)
		}
	}
	return reqs, nil
}

// RunBatch dispatches every request before awaiting any, then awaits them
// last to first. Outcomes are returned in request order; a failed request
// does not affect the others.
func RunBatch(ctx context.Context, d *kestrel.Dispatcher, defaultProvider string, reqs []Request) []Outcome {
	outcomes := make([]Outcome, len(reqs))
	handles := make([]*kestrel.Handle, len(reqs))

	for i, req := range reqs {
		provider, name := app.SplitEndpoint(req.Endpoint, defaultProvider)
		outcomes[i].Endpoint = provider + "." + name

		var args []any
		if len(req.Args) > 0 {
			args = append(args, kestrel.Named(normalize(req.Args).(map[string]any)))
		}
		handles[i], outcomes[i].Err = d.Call(ctx, provider, name, args...)
	}

	for i := len(handles) - 1; i >= 0; i-- {
		if handles[i] == nil {
			continue
		}
		outcomes[i].Response, outcomes[i].Err = handles[i].Wait(ctx)
	}
	return outcomes
}

// normalize converts YAML sequences of scalars to []string so they bind to
// list parameters. Mappings are normalized recursively.
func normalize(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = normalize(val)
		}
		return out
	case []any:
		strs := make([]string, 0, len(x))
		for _, item := range x {
			switch item.(type) {
			case map[string]any, []any:
				return x
			}
			strs = append(strs, fmt.Sprint(item))
		}
		return strs
	}
	return v
}
