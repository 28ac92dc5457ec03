// Package discover finds endpoint implementations by signature.
//
// It scans a Go package for package-level functions with these signatures:
//   - func(context.Context, *kestrel.Client, *P) (*kestrel.Response, error)
//   - func(context.Context, *kestrel.Client) (*kestrel.Response, error)
//
// No directives or annotations needed; the signature is the marker.
package discover

import (
	"fmt"
	"go/token"
	"go/types"
	"path/filepath"
	"slices"

	"golang.org/x/tools/go/packages"
)

const kestrelPath = "github.com/kestrelquant/kestrel"

// Kind distinguishes endpoints with and without a parameter struct.
type Kind int

const (
	KindParams Kind = iota // func(ctx, *kestrel.Client, *P)
	KindBare               // func(ctx, *kestrel.Client)
)

func (k Kind) String() string {
	switch k {
	case KindParams:
		return "params"
	case KindBare:
		return "bare"
	default:
		return "unknown"
	}
}

// Endpoint represents a discovered endpoint implementation.
type Endpoint struct {
	Name      string         // function name
	Qualified string         // import path + "." + name, as reported by the runtime
	Kind      Kind           // with or without parameters
	Params    string         // parameter struct type name, empty for KindBare
	Pos       token.Position // source location
}

// Result contains discovered endpoints and package info.
type Result struct {
	Endpoints   []Endpoint
	PackagePath string
	ModulePath  string
	ModuleDir   string // directory containing go.mod
	Dir         string // directory containing the package
}

// Find scans a Go package for endpoint implementations.
//
// The pattern follows go command semantics:
//   - "." for current directory
//   - Import path like "github.com/foo/bar"
//   - Absolute or relative directory path
func Find(pattern string) (*Result, error) {
	return FindDir(pattern, "")
}

// FindDir is like Find but allows specifying a working directory.
func FindDir(pattern, dir string) (*Result, error) {
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedFiles |
			packages.NeedTypes | packages.NeedModule,
		Dir: dir,
	}

	pkgs, err := packages.Load(cfg, pattern)
	if err != nil {
		return nil, fmt.Errorf("load package: %w", err)
	}

	if len(pkgs) == 0 {
		return nil, fmt.Errorf("no packages found matching %q", pattern)
	}

	if len(pkgs) > 1 {
		return nil, fmt.Errorf("multiple packages found matching %q; specify a single package", pattern)
	}

	pkg := pkgs[0]
	if len(pkg.Errors) > 0 {
		return nil, fmt.Errorf("package errors: %v", pkg.Errors[0])
	}

	result := &Result{
		PackagePath: pkg.PkgPath,
	}

	if pkg.Module != nil {
		result.ModulePath = pkg.Module.Path
		result.ModuleDir = pkg.Module.Dir
	}

	if len(pkg.GoFiles) > 0 {
		result.Dir = filepath.Dir(pkg.GoFiles[0])
	}

	// Scope names are sorted, so endpoints come out in name order.
	scope := pkg.Types.Scope()
	for _, name := range scope.Names() {
		fn, ok := scope.Lookup(name).(*types.Func)
		if !ok {
			continue
		}

		sig, ok := fn.Type().(*types.Signature)
		if !ok || sig.Recv() != nil {
			continue
		}

		kind, params, ok := classify(sig)
		if !ok {
			continue
		}

		result.Endpoints = append(result.Endpoints, Endpoint{
			Name:      fn.Name(),
			Qualified: pkg.PkgPath + "." + fn.Name(),
			Kind:      kind,
			Params:    params,
			Pos:       pkg.Fset.Position(fn.Pos()),
		})
	}

	return result, nil
}

// classify checks a signature against the two endpoint shapes.
func classify(sig *types.Signature) (Kind, string, bool) {
	if sig.Variadic() {
		return 0, "", false
	}

	res := sig.Results()
	if res.Len() != 2 || !isKestrelPtr(res.At(0).Type(), "Response") || !isError(res.At(1).Type()) {
		return 0, "", false
	}

	params := sig.Params()
	if params.Len() < 2 || params.Len() > 3 {
		return 0, "", false
	}
	if !isContext(params.At(0).Type()) || !isKestrelPtr(params.At(1).Type(), "Client") {
		return 0, "", false
	}
	if params.Len() == 2 {
		return KindBare, "", true
	}

	ptr, ok := params.At(2).Type().(*types.Pointer)
	if !ok {
		return 0, "", false
	}
	named, ok := ptr.Elem().(*types.Named)
	if !ok {
		return 0, "", false
	}
	if _, ok := named.Underlying().(*types.Struct); !ok {
		return 0, "", false
	}
	return KindParams, named.Obj().Name(), true
}

func isContext(t types.Type) bool {
	named, ok := t.(*types.Named)
	if !ok {
		return false
	}
	pkg := named.Obj().Pkg()
	return pkg != nil && pkg.Path() == "context" && named.Obj().Name() == "Context"
}

func isError(t types.Type) bool {
	return types.Identical(t, types.Universe.Lookup("error").Type())
}

// isKestrelPtr checks if a type is *kestrel.<name>.
func isKestrelPtr(t types.Type, name string) bool {
	ptr, ok := t.(*types.Pointer)
	if !ok {
		return false
	}

	named, ok := ptr.Elem().(*types.Named)
	if !ok {
		return false
	}

	pkg := named.Obj().Pkg()
	if pkg == nil {
		return false
	}

	return pkg.Path() == kestrelPath && named.Obj().Name() == name
}

// Unregistered returns the endpoints whose qualified names are missing from
// registered.
func Unregistered(endpoints []Endpoint, registered []string) []Endpoint {
	var missing []Endpoint
	for _, e := range endpoints {
		if !slices.Contains(registered, e.Qualified) {
			missing = append(missing, e)
		}
	}
	return missing
}
