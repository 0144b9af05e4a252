// Package native binds named entry points of a platform library to callable procs.
//
// Each platform declares a static table of Signatures. A Binder resolves a symbol at most
// once and keeps the result, including a failed resolution, for the lifetime of the Binder.
package native

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

var (
	// ErrSymbolNotFound is returned when the library does not export the requested symbol.
	// It indicates a platform/library mismatch and is not recoverable.
	ErrSymbolNotFound = errors.New("symbol not found")

	// ErrUndeclared is returned when a symbol is requested that is not part of the signature table.
	ErrUndeclared = errors.New("symbol not declared")

	// ErrArity is returned when a proc is called with the wrong number of arguments.
	ErrArity = errors.New("wrong number of arguments")
)

// BindError describes a failed resolution.
type BindError struct {
	Library string
	Symbol  string
	Err     error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("bind %s!%s: %v", e.Library, e.Symbol, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}

// Entry is a resolved entry point. Call follows the syscall convention: two result words and
// an error that is nil when the platform reported no error code.
type Entry interface {
	Call(args ...uintptr) (r1, r2 uintptr, err error)
}

// Library resolves symbols to entry points.
type Library interface {
	Name() string
	Resolve(symbol string) (Entry, error)
}

// Proc is a bound entry point with its declared signature.
type Proc struct {
	sig   Signature
	entry Entry
}

// Signature returns the declared signature of the proc.
func (p *Proc) Signature() Signature {
	return p.sig
}

// Call invokes the entry point. The number of arguments must match the signature.
func (p *Proc) Call(args ...uintptr) (uintptr, uintptr, error) {
	if len(args) != len(p.sig.Params) {
		return 0, 0, fmt.Errorf("%s: %w: got %d, want %d", p.sig.Symbol, ErrArity, len(args), len(p.sig.Params))
	}
	return p.entry.Call(args...)
}

type binding struct {
	proc *Proc
	err  error
}

// Binder caches resolved procs of one library.
type Binder struct {
	lib   Library
	table map[string]Signature
	log   *logger.Logger

	mu    sync.Mutex
	bound map[string]binding
}

// NewBinder creates a Binder for lib restricted to the given signatures.
func NewBinder(lib Library, table ...Signature) *Binder {
	b := &Binder{
		lib:   lib,
		table: make(map[string]Signature, len(table)),
		log:   logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "binder-"+lib.Name())),
		bound: make(map[string]binding, len(table)),
	}
	for _, sig := range table {
		b.table[sig.Symbol] = sig
	}
	return b
}

// Library returns the name of the bound library.
func (b *Binder) Library() string {
	return b.lib.Name()
}

// Proc returns the proc for symbol, resolving it on first use.
func (b *Binder) Proc(symbol string) (*Proc, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if cached, ok := b.bound[symbol]; ok {
		return cached.proc, cached.err
	}

	sig, ok := b.table[symbol]
	if !ok {
		return nil, &BindError{Library: b.lib.Name(), Symbol: symbol, Err: ErrUndeclared}
	}

	var result binding
	entry, err := b.lib.Resolve(symbol)
	if err != nil {
		if !errors.Is(err, ErrSymbolNotFound) {
			err = fmt.Errorf("%w: %v", ErrSymbolNotFound, err)
		}
		result.err = &BindError{Library: b.lib.Name(), Symbol: symbol, Err: err}
		b.log.Warn("Failed to resolve ", sig, ": ", err)
	} else {
		result.proc = &Proc{sig: sig, entry: entry}
		b.log.Debugln("Resolved", sig)
	}

	b.bound[symbol] = result
	return result.proc, result.err
}

// Call resolves symbol and invokes it.
func (b *Binder) Call(symbol string, args ...uintptr) (uintptr, uintptr, error) {
	proc, err := b.Proc(symbol)
	if err != nil {
		return 0, 0, err
	}
	return proc.Call(args...)
}

// ResolveAll resolves every declared symbol and returns the joined failures.
func (b *Binder) ResolveAll() error {
	b.mu.Lock()
	symbols := make([]string, 0, len(b.table))
	for symbol := range b.table {
		symbols = append(symbols, symbol)
	}
	b.mu.Unlock()

	var errs []error
	for _, symbol := range symbols {
		if _, err := b.Proc(symbol); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
