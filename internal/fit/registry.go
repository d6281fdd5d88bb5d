package fit

import (
	"math"

	"gopkg.in/yaml.v3"

	"github.com/copyleftdev/gominuit/internal/optimization"
	"github.com/copyleftdev/gominuit/internal/optimization/minuit"
)

// defaultError is the initial step used when a parameter has none.
const defaultError = 1.0

// Limit is a lower/upper bound pair. An infinite bound means that side is
// open, so (-Inf, hi) is an upper-only limit.
type Limit struct {
	Lower float64
	Upper float64
}

// Validate rejects NaN bounds and pairs with Lower >= Upper.
func (l Limit) Validate() error {
	if math.IsNaN(l.Lower) || math.IsNaN(l.Upper) || !(l.Lower < l.Upper) {
		return optimization.NewErrorf(optimization.KindInvalidLimit,
			"lower limit %g must be below upper limit %g", l.Lower, l.Upper)
	}
	return nil
}

// UnmarshalYAML decodes a two element sequence; null or ~ opens that side.
func (l *Limit) UnmarshalYAML(value *yaml.Node) error {
	var pair []*float64
	if err := value.Decode(&pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return optimization.NewErrorf(optimization.KindInvalidLimit,
			"limit must have two entries, got %d (line %d)", len(pair), value.Line)
	}
	l.Lower, l.Upper = math.Inf(-1), math.Inf(1)
	if pair[0] != nil {
		l.Lower = *pair[0]
	}
	if pair[1] != nil {
		l.Upper = *pair[1]
	}
	return nil
}

// ParamConfig is the per-parameter configuration record.
type ParamConfig struct {
	Value float64 `yaml:"value" json:"value"`
	// Error is the initial step size; zero selects a default.
	Error float64 `yaml:"error" json:"error"`
	Limit *Limit  `yaml:"limit" json:"limit"`
	Fixed bool    `yaml:"fixed" json:"fixed"`
}

// Parameter is a registered parameter.
type Parameter struct {
	Name     string
	Position int
	Value    float64
	Error    float64
	Limit    *Limit
	Fixed    bool
}

// HasLower reports whether the parameter has a finite lower bound.
func (p Parameter) HasLower() bool { return p.Limit != nil && !math.IsInf(p.Limit.Lower, -1) }

// HasUpper reports whether the parameter has a finite upper bound.
func (p Parameter) HasUpper() bool { return p.Limit != nil && !math.IsInf(p.Limit.Upper, 1) }

func (p Parameter) clone() Parameter {
	if p.Limit != nil {
		l := *p.Limit
		p.Limit = &l
	}
	return p
}

// Registry maps parameter names to positions and holds both the initial
// configuration and the current one, which tracks the latest results and
// any caller edits. Positions never change once assigned.
type Registry struct {
	initial []Parameter
	current []Parameter
	index   map[string]int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Register appends a parameter at the next position.
func (r *Registry) Register(name string, cfg ParamConfig) error {
	if name == "" {
		return optimization.NewError(optimization.KindInvalidArgument, "parameter name must not be empty").
			WithComponent("registry").WithOperation("register")
	}
	if _, ok := r.index[name]; ok {
		return optimization.NewError(optimization.KindDuplicateParameter, "parameter already registered").
			WithComponent("registry").WithOperation("register").WithParam(name)
	}
	if math.IsNaN(cfg.Value) || math.IsInf(cfg.Value, 0) {
		return optimization.NewErrorf(optimization.KindInvalidArgument, "initial value %g is not finite", cfg.Value).
			WithComponent("registry").WithOperation("register").WithParam(name)
	}
	if cfg.Limit != nil {
		if err := cfg.Limit.Validate(); err != nil {
			e, _ := optimization.IsOptimizationError(err)
			return e.WithComponent("registry").WithOperation("register").WithParam(name)
		}
	}
	p := Parameter{
		Name:     name,
		Position: len(r.initial),
		Value:    cfg.Value,
		Error:    math.Abs(cfg.Error),
		Fixed:    cfg.Fixed,
	}
	if p.Error == 0 || math.IsNaN(p.Error) {
		p.Error = defaultError
	}
	if cfg.Limit != nil {
		l := *cfg.Limit
		p.Limit = &l
	}
	r.index[name] = p.Position
	r.initial = append(r.initial, p)
	r.current = append(r.current, p.clone())
	return nil
}

// PositionOf returns the position of name.
func (r *Registry) PositionOf(name string) (int, error) {
	i, ok := r.index[name]
	if !ok {
		return 0, optimization.NewError(optimization.KindUnknownParameter, "parameter is not registered").
			WithComponent("registry").WithParam(name)
	}
	return i, nil
}

// Len returns the number of registered parameters.
func (r *Registry) Len() int { return len(r.initial) }

// Names returns the parameter names in position order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.initial))
	for i, p := range r.initial {
		out[i] = p.Name
	}
	return out
}

// Initial returns the parameter as it was registered.
func (r *Registry) Initial(i int) Parameter { return r.initial[i].clone() }

// Current returns the parameter as it stands now.
func (r *Registry) Current(i int) Parameter { return r.current[i].clone() }

// BuildInitialState produces the engine parameter state from the current
// configuration. Limits are installed before the value and error are
// re-applied, since installing a limit may move the value; fixed flags come last.
func (r *Registry) BuildInitialState() (*minuit.State, error) {
	st := minuit.NewState()
	for i, p := range r.current {
		if err := st.Add(p.Name, p.Value, p.Error); err != nil {
			return nil, err
		}
		if p.Limit != nil {
			switch lo, hi := p.HasLower(), p.HasUpper(); {
			case lo && hi:
				if err := st.SetLimits(i, p.Limit.Lower, p.Limit.Upper); err != nil {
					return nil, err
				}
			case lo:
				st.SetLowerLimit(i, p.Limit.Lower)
			case hi:
				st.SetUpperLimit(i, p.Limit.Upper)
			}
		}
		st.SetValue(i, p.Value)
		st.SetError(i, p.Error)
		if p.Fixed {
			st.Fix(i)
		}
	}
	return st, nil
}

// clone returns an independent copy whose initial configuration is the
// current one of r.
func (r *Registry) clone() *Registry {
	c := NewRegistry()
	for _, p := range r.current {
		q := p.clone()
		c.index[q.Name] = q.Position
		c.initial = append(c.initial, q)
		c.current = append(c.current, q.clone())
	}
	return c
}

// update copies values and errors of a state into the current configuration.
func (r *Registry) update(st *minuit.State) {
	for i := range r.current {
		p := st.Parameter(i)
		r.current[i].Value = p.Value
		if p.Error > 0 {
			r.current[i].Error = p.Error
		}
	}
}

func (r *Registry) setValue(i int, v float64) { r.current[i].Value = v }

func (r *Registry) setError(i int, e float64) { r.current[i].Error = math.Abs(e) }

func (r *Registry) setFixed(i int, fixed bool) { r.current[i].Fixed = fixed }

func (r *Registry) setLimit(i int, l *Limit) {
	if l == nil {
		r.current[i].Limit = nil
		return
	}
	c := *l
	r.current[i].Limit = &c
}
