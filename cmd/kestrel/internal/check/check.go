package check

import (
	"fmt"
	"io"
	"os"

	"github.com/kestrelquant/kestrel"
	"github.com/kestrelquant/kestrel/cmd/kestrel/internal/app"
	"github.com/kestrelquant/kestrel/internal/discover"
)

type Cmd struct {
	Package string `help:"Package to scan for endpoint implementations." short:"p" default:"github.com/kestrelquant/kestrel/ibkr"`
}

func (c *Cmd) Run() error {
	result, err := discover.Find(c.Package)
	if err != nil {
		return fmt.Errorf("discover: %w", err)
	}
	return Report(os.Stdout, result, app.NewRegistry(nil))
}

// Report prints the implementations found in result and fails if any of
// them is missing from reg.
func Report(w io.Writer, result *discover.Result, reg *kestrel.Registry) error {
	var registered []string
	for _, e := range reg.Entries() {
		registered = append(registered, e.FuncName())
	}

	fmt.Fprintf(w, "✓ Found %d endpoint implementations in %s\n", len(result.Endpoints), result.PackagePath)

	missing := discover.Unregistered(result.Endpoints, registered)
	for _, e := range missing {
		fmt.Fprintf(w, "✗ %s (%s) is not registered\n", e.Name, e.Pos)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%d endpoint implementations are not registered", len(missing))
	}

	fmt.Fprintf(w, "✓ All %d registered\n", len(result.Endpoints))
	return nil
}
