package plan

import (
	"fmt"
	"maps"
	"sync"

	"github.com/grafana/sqlengine/pkg/engine/internal/types"
)

// HashSymbolHint is the name hint used for symbols holding a precomputed
// hash of a key list.
const HashSymbolHint = "$hashvalue"

// Symbol references a typed column value within a plan subtree. Symbols are
// compared by name.
type Symbol struct {
	Name string
}

// NewSymbol returns a Symbol with the given name. Plans that are built by
// hand use NewSymbol; rewrites allocate symbols with a [SymbolAllocator].
func NewSymbol(name string) Symbol { return Symbol{Name: name} }

// String returns the name of s.
func (s Symbol) String() string { return s.Name }

// Ref returns an expression referencing s.
func (s Symbol) Ref() *SymbolRef { return &SymbolRef{Symbol: s} }

// SymbolAllocator hands out symbols with names that are unique within a plan
// and records their types. It is safe for concurrent use.
type SymbolAllocator struct {
	mut   sync.Mutex
	types map[Symbol]types.Type
	next  int
}

// NewSymbolAllocator creates a SymbolAllocator that knows about the symbols
// in known. known is copied.
func NewSymbolAllocator(known map[Symbol]types.Type) *SymbolAllocator {
	a := &SymbolAllocator{types: make(map[Symbol]types.Type, len(known))}
	maps.Copy(a.types, known)
	return a
}

// NewSymbol allocates a new symbol of type t. The symbol is named hint if
// that name is free, and hint suffixed with a counter otherwise.
func (a *SymbolAllocator) NewSymbol(hint string, t types.Type) Symbol {
	a.mut.Lock()
	defer a.mut.Unlock()

	sym := Symbol{Name: hint}
	for {
		if _, taken := a.types[sym]; !taken {
			break
		}
		a.next++
		sym = Symbol{Name: fmt.Sprintf("%s_%d", hint, a.next)}
	}
	a.types[sym] = t
	return sym
}

// NewHashSymbol allocates a new bigint symbol for a hash value.
func (a *SymbolAllocator) NewHashSymbol() Symbol {
	return a.NewSymbol(HashSymbolHint, types.Bigint)
}

// TypeOf returns the type of sym and whether sym is known to a.
func (a *SymbolAllocator) TypeOf(sym Symbol) (types.Type, bool) {
	a.mut.Lock()
	defer a.mut.Unlock()
	t, ok := a.types[sym]
	return t, ok
}

// Types returns a copy of all symbols known to a and their types.
func (a *SymbolAllocator) Types() map[Symbol]types.Type {
	a.mut.Lock()
	defer a.mut.Unlock()
	return maps.Clone(a.types)
}
