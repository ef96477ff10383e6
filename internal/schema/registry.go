package schema

import (
	"github.com/yanun0323/errors"
)

// SymbolID is the numeric identifier for a symbol. IDs start at 1.
type SymbolID uint32

// Band is a price band used by the threshold strategy.
type Band struct {
	Low  Price
	High Price
}

// Valid reports whether the band is set and ordered.
func (b Band) Valid() bool {
	return b.Low > 0 && b.High > b.Low
}

// SymbolSpec describes an enabled symbol and its per-symbol parameters.
type SymbolSpec struct {
	ID         SymbolID
	Name       string
	PriceScale Scale
	QtyScale   Scale
	// BasePrice seeds the synthetic generator.
	BasePrice Price
	Band      Band
}

// Registry interns symbol names into compact IDs.
type Registry struct {
	symbols      []SymbolSpec
	symbolByName map[string]SymbolID
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		symbolByName: make(map[string]SymbolID),
	}
}

// AddSymbol registers a new symbol and returns its ID. The ID field of spec is ignored.
func (r *Registry) AddSymbol(spec SymbolSpec) (SymbolID, error) {
	if spec.Name == "" {
		return 0, errors.New("symbol name is empty")
	}
	if len(spec.Name) > MaxSymbolNameLen {
		return 0, errors.Errorf("symbol name too long: %s", spec.Name)
	}
	if err := spec.PriceScale.Validate(); err != nil {
		return 0, errors.Wrap(err, "price scale")
	}
	if err := spec.QtyScale.Validate(); err != nil {
		return 0, errors.Wrap(err, "qty scale")
	}
	if id, ok := r.symbolByName[spec.Name]; ok {
		return id, errors.Errorf("symbol already exists: %s", spec.Name)
	}
	id := SymbolID(len(r.symbols) + 1)
	spec.ID = id
	r.symbols = append(r.symbols, spec)
	r.symbolByName[spec.Name] = id
	return id, nil
}

// MaxSymbolNameLen bounds symbol names.
const MaxSymbolNameLen = 16

// Symbol returns the symbol by ID.
func (r *Registry) Symbol(id SymbolID) (SymbolSpec, bool) {
	if id == 0 || int(id) > len(r.symbols) {
		return SymbolSpec{}, false
	}
	return r.symbols[id-1], true
}

// SymbolCount returns the number of symbols in the registry.
func (r *Registry) SymbolCount() int {
	return len(r.symbols)
}

// SymbolAt returns the symbol by zero-based index.
func (r *Registry) SymbolAt(index int) (SymbolSpec, bool) {
	if index < 0 || index >= len(r.symbols) {
		return SymbolSpec{}, false
	}
	return r.symbols[index], true
}

// Symbols returns a copy of all registered symbols in ID order.
func (r *Registry) Symbols() []SymbolSpec {
	out := make([]SymbolSpec, len(r.symbols))
	copy(out, r.symbols)
	return out
}

// SymbolIDByName returns the symbol ID for a name.
func (r *Registry) SymbolIDByName(name string) (SymbolID, bool) {
	id, ok := r.symbolByName[name]
	return id, ok
}

// Name returns the symbol name or "?" when unknown.
func (r *Registry) Name(id SymbolID) string {
	s, ok := r.Symbol(id)
	if !ok {
		return "?"
	}
	return s.Name
}
