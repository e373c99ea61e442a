package operation

import (
	"fmt"
	"sort"

	"github.com/avatarctic/commerce-gateway/internal/core/domain/auth"
	"github.com/avatarctic/commerce-gateway/internal/core/domain/resource"
)

// Kind is the declared semantics of an operation. It is never inferred from the transport verb.
type Kind int

const (
	Read Kind = iota + 1
	Write
)

func (k Kind) String() string {
	switch k {
	case Read:
		return "read"
	case Write:
		return "write"
	default:
		return "unknown"
	}
}

// Name identifies an operation, e.g. "catalog.search".
type Name string

// Rule lists the key templates a write may stale. NoCacheImpact must be set explicitly
// when a write affects no cached entry.
type Rule struct {
	Templates     []resource.Template
	NoCacheImpact bool
}

// Declared reports whether the rule states an effect, either templates or an explicit no-impact.
func (r *Rule) Declared() bool {
	return r != nil && (r.NoCacheImpact || len(r.Templates) > 0)
}

// Request is one invocation as seen by key, binding and backend builders.
type Request struct {
	Principal      auth.Principal
	ID             string
	Params         resource.Params
	Body           any
	IdempotencyKey string
}

// Operation declares one logical resource action exposed by the gateway.
type Operation struct {
	Name     Name
	Resource resource.Type
	Kind     Kind
	// Action is the backend action name for the resource.
	Action string
	// Scope required from the principal; empty means any authenticated principal.
	Scope string
	// ParamNames whitelists query parameters that take part in the key and the backend call.
	ParamNames []string
	// Key derives the cache key for reads.
	Key func(req Request) resource.Key
	// Validate checks parameters before any cache or backend work. Optional.
	Validate func(req Request) error
	// Rule is required for writes.
	Rule *Rule
	// NewResult returns a pointer to the typed result value.
	NewResult func() any
	// NewBody returns a pointer to the mutation body, nil when the write takes none.
	NewBody func() any
}

// Ack is the result of writes that return no resource.
type Ack struct {
	ID     string `json:"id,omitempty" msgpack:"id"`
	Status string `json:"status" msgpack:"status"`
}

// Bindings returns the values available to rule templates: the principal as userId,
// the addressed resource as id, and every request parameter.
func (r Request) Bindings() map[string]string {
	out := make(map[string]string, len(r.Params)+2)
	for k, v := range r.Params {
		out[k] = v
	}
	if r.Principal.ID != "" {
		out["userId"] = r.Principal.ID
	}
	if r.ID != "" {
		out["id"] = r.ID
	}
	return out
}

// Table indexes operations by name.
type Table struct {
	ops map[Name]*Operation
}

// NewTable validates ops and builds a table. Every write must declare a rule.
func NewTable(ops ...*Operation) (*Table, error) {
	t := &Table{ops: make(map[Name]*Operation, len(ops))}
	for _, op := range ops {
		if err := t.add(op); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Table) add(op *Operation) error {
	if op == nil || op.Name == "" {
		return fmt.Errorf("operation: missing name")
	}
	if _, dup := t.ops[op.Name]; dup {
		return fmt.Errorf("operation %s: duplicate", op.Name)
	}
	if op.NewResult == nil {
		return fmt.Errorf("operation %s: missing result type", op.Name)
	}
	switch op.Kind {
	case Read:
		if op.Key == nil {
			return fmt.Errorf("operation %s: read without key", op.Name)
		}
	case Write:
		if !op.Rule.Declared() {
			return fmt.Errorf("operation %s: write without invalidation rule", op.Name)
		}
		if op.Rule.NoCacheImpact && len(op.Rule.Templates) > 0 {
			return fmt.Errorf("operation %s: rule is both no-impact and has templates", op.Name)
		}
	default:
		return fmt.Errorf("operation %s: undeclared kind", op.Name)
	}
	t.ops[op.Name] = op
	return nil
}

// Lookup returns the operation registered under name.
func (t *Table) Lookup(name Name) (*Operation, bool) {
	op, ok := t.ops[name]
	return op, ok
}

// Names returns every registered name, sorted.
func (t *Table) Names() []Name {
	out := make([]Name, 0, len(t.ops))
	for n := range t.ops {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// SetRule replaces the rule of a write operation, used for policy file overrides.
func (t *Table) SetRule(name Name, rule *Rule) error {
	op, ok := t.ops[name]
	if !ok {
		return fmt.Errorf("operation %s: unknown", name)
	}
	if op.Kind != Write {
		return fmt.Errorf("operation %s: rules apply to writes only", name)
	}
	if !rule.Declared() {
		return fmt.Errorf("operation %s: empty rule", name)
	}
	if rule.NoCacheImpact && len(rule.Templates) > 0 {
		return fmt.Errorf("operation %s: rule is both no-impact and has templates", name)
	}
	op.Rule = rule
	return nil
}
