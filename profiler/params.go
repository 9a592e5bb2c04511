package profiler

import "slices"

// Params is an ordered set of named statement parameters. Names carry no
// leading sigil: the value bound to ":id" is stored under "id".
type Params struct {
	names  []string
	values map[string]any
}

// NewParams returns a parameter set holding the given key/value pairs in
// order. It panics if kv has an odd length or a key is not a string.
func NewParams(kv ...any) *Params {
	if len(kv)%2 != 0 {
		panic("profiler: NewParams expects key/value pairs")
	}
	p := &Params{values: make(map[string]any, len(kv)/2)}
	for i := 0; i < len(kv); i += 2 {
		name, ok := kv[i].(string)
		if !ok {
			panic("profiler: NewParams expects string keys")
		}
		p.Set(name, kv[i+1])
	}
	return p
}

// Set binds value to name. Rebinding an existing name keeps its position.
func (p *Params) Set(name string, value any) *Params {
	if p.values == nil {
		p.values = make(map[string]any)
	}
	if _, ok := p.values[name]; !ok {
		p.names = append(p.names, name)
	}
	p.values[name] = value
	return p
}

// Get returns the value bound to name.
func (p *Params) Get(name string) (any, bool) {
	if p == nil {
		return nil, false
	}
	v, ok := p.values[name]
	return v, ok
}

// Names returns the parameter names in insertion order.
func (p *Params) Names() []string {
	if p == nil {
		return nil
	}
	return slices.Clone(p.names)
}

// Len returns the number of bound parameters.
func (p *Params) Len() int {
	if p == nil {
		return 0
	}
	return len(p.names)
}

// Clone returns an independent copy of p. Values are copied shallowly;
// []byte values are duplicated so later writes by the caller do not leak
// into the snapshot.
func (p *Params) Clone() *Params {
	if p == nil {
		return nil
	}
	c := &Params{
		names:  slices.Clone(p.names),
		values: make(map[string]any, len(p.values)),
	}
	for k, v := range p.values {
		if b, ok := v.([]byte); ok {
			v = slices.Clone(b)
		}
		c.values[k] = v
	}
	return c
}

// Statement is a SQL template with named ":name" placeholders and the
// values bound to them.
type Statement struct {
	SQL    string
	Params *Params
}

// NewStatement returns a Statement for the given template and parameters.
func NewStatement(sql string, params *Params) *Statement {
	return &Statement{SQL: sql, Params: params}
}
