package call

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"regexp"
	"strings"

	"github.com/kestrelquant/kestrel"
	"github.com/kestrelquant/kestrel/cmd/kestrel/internal/app"
)

type Cmd struct {
	Endpoint string   `arg:"" help:"Endpoint name, e.g. security_search or ibkr.security_search."`
	Args     []string `arg:"" optional:"" help:"Positional values followed by name=value pairs."`
	Provider string   `help:"Provider of unqualified endpoint names." default:"ibkr"`
}

func (c *Cmd) Run(g *app.Globals) error {
	a, err := g.Open()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	provider, name := app.SplitEndpoint(c.Endpoint, c.Provider)
	h, err := a.Dispatcher.Call(ctx, provider, name, ParseArgs(c.Args)...)
	if err != nil {
		return err
	}
	resp, err := h.Wait(ctx)
	if err != nil {
		return err
	}
	return Print(os.Stdout, h.Endpoint(), resp)
}

var keyRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ParseArgs turns command-line arguments into dispatch arguments. Words of
// the form name=value are collected into a trailing kestrel.Named; the rest
// are positional, in order.
func ParseArgs(args []string) []any {
	var (
		out   []any
		named = kestrel.Named{}
	)
	for _, arg := range args {
		if k, v, ok := strings.Cut(arg, "="); ok && keyRe.MatchString(k) {
			named[k] = v
			continue
		}
		out = append(out, arg)
	}
	if len(named) > 0 {
		out = append(out, named)
	}
	return out
}

// Print writes the status line and body of resp. JSON bodies are indented.
func Print(w io.Writer, endpoint string, resp *kestrel.Response) error {
	if _, err := fmt.Fprintf(w, "%s: %d\n", endpoint, resp.StatusCode); err != nil {
		return err
	}
	if len(resp.Body) == 0 {
		return nil
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, resp.Body, "", "  "); err != nil {
		buf.Reset()
		buf.Write(resp.Body)
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(w)
	return err
}
