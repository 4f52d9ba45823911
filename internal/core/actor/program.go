package actor

import (
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/xssnick/tonutils-go/tvm/cell"
)

// Program executes messages for accounts running a given code cell. Receive
// must be a pure function of its inputs; it returns the new data cell.
type Program interface {
	Name() string
	Receive(ctx *Context, data *cell.Cell, msg Message) (*cell.Cell, Result)
}

// Registry maps code hashes to programs.
type Registry struct {
	mu       sync.RWMutex
	programs map[string]Program
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{programs: make(map[string]Program)}
}

// Register binds code to program. Registering the same code twice is an error.
func (r *Registry) Register(code *cell.Cell, p Program) error {
	key := hex.EncodeToString(code.Hash())
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.programs[key]; ok {
		return fmt.Errorf("code %s already registered to %s", key[:16], existing.Name())
	}
	r.programs[key] = p
	return nil
}

// Lookup returns the program bound to code.
func (r *Registry) Lookup(code *cell.Cell) (Program, bool) {
	if code == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.programs[hex.EncodeToString(code.Hash())]
	return p, ok
}

// CodeCell returns a deterministic code cell standing in for a program's
// compiled code. Distinct tags and versions produce distinct hashes.
func CodeCell(tag string, version uint32) *cell.Cell {
	return cell.BeginCell().
		MustStoreUInt(uint64(version), 32).
		MustStoreStringSnake(tag).
		EndCell()
}
