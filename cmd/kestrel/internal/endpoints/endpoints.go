package endpoints

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/kestrelquant/kestrel"
	"github.com/kestrelquant/kestrel/cmd/kestrel/internal/app"
)

type Cmd struct {
	Provider string `help:"Only list endpoints of this provider." short:"p"`
}

func (c *Cmd) Run() error {
	entries := app.NewRegistry(nil).Entries()
	if c.Provider != "" {
		filtered := entries[:0]
		for _, e := range entries {
			if e.Provider() == c.Provider {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}
	return Write(os.Stdout, entries)
}

// Write lists entries as a table. Parameters are shown by wire name;
// required ones are marked with * and defaults follow =.
func Write(w io.Writer, entries []*kestrel.Entry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ENDPOINT\tRESOURCE\tPARAMETERS")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Key(), e.Resource(), params(e.Model()))
	}
	return tw.Flush()
}

func params(m *kestrel.Model) string {
	if m == nil {
		return "-"
	}
	parts := make([]string, 0, len(m.Fields()))
	for _, f := range m.Fields() {
		s := f.Wire
		if f.Required {
			s += "*"
		}
		if f.HasDefault {
			s += "=" + f.Default
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, " ")
}
