package grading

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/go-grader/internal/domain"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

var (
	// ErrUnknownGradeFunc indicates a reference with no registered function.
	ErrUnknownGradeFunc = errors.New("unknown grade function")

	// ErrDuplicateGradeFunc indicates a reference registered twice.
	ErrDuplicateGradeFunc = errors.New("grade function already registered")

	// ErrDuplicateGrader indicates two graders sharing a name in one catalog.
	ErrDuplicateGrader = errors.New("grader already exists")

	// ErrUnknownGrader indicates a grader name missing from a catalog.
	ErrUnknownGrader = errors.New("unknown grader")
)

// Registry maps fully-qualified references (e.g.
// "competitions.spaceship_titanic.grade:grade") to scoring functions.
// Functions are registered once, typically from init, and resolved once
// when a grader is built.
type Registry struct {
	mu    sync.RWMutex
	grade map[string]GradeFunc
	code  map[string]CodeAnalysisFunc
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		grade: make(map[string]GradeFunc),
		code:  make(map[string]CodeAnalysisFunc),
	}
}

// DefaultRegistry is the process-wide registry used by Register and the
// worker.
var DefaultRegistry = NewRegistry()

// Register adds a scoring function to DefaultRegistry.
func Register(ref string, fn GradeFunc) error { return DefaultRegistry.Register(ref, fn) }

// RegisterCode adds a code analysis function to DefaultRegistry.
func RegisterCode(ref string, fn CodeAnalysisFunc) error { return DefaultRegistry.RegisterCode(ref, fn) }

// Register adds a scoring function under ref.
func (r *Registry) Register(ref string, fn GradeFunc) error {
	if ref == "" {
		return fmt.Errorf("%w: empty reference", ErrUnknownGradeFunc)
	}
	if fn == nil {
		return ErrNilGradeFunc
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.exists(ref) {
		return fmt.Errorf("%w: %s", ErrDuplicateGradeFunc, ref)
	}
	r.grade[ref] = fn
	return nil
}

// RegisterCode adds a code analysis function under ref.
func (r *Registry) RegisterCode(ref string, fn CodeAnalysisFunc) error {
	if ref == "" {
		return fmt.Errorf("%w: empty reference", ErrUnknownGradeFunc)
	}
	if fn == nil {
		return ErrNilGradeFunc
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.exists(ref) {
		return fmt.Errorf("%w: %s", ErrDuplicateGradeFunc, ref)
	}
	r.code[ref] = fn
	return nil
}

func (r *Registry) exists(ref string) bool {
	_, g := r.grade[ref]
	_, c := r.code[ref]
	return g || c
}

// Lookup resolves a scoring function.
func (r *Registry) Lookup(ref string) (GradeFunc, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fn, ok := r.grade[ref]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGradeFunc, ref)
	}
	return fn, nil
}

// LookupCode resolves a code analysis function.
func (r *Registry) LookupCode(ref string) (CodeAnalysisFunc, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fn, ok := r.code[ref]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGradeFunc, ref)
	}
	return fn, nil
}

// Refs returns every registered reference, sorted.
func (r *Registry) Refs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	refs := make([]string, 0, len(r.grade)+len(r.code))
	for ref := range r.grade {
		refs = append(refs, ref)
	}
	for ref := range r.code {
		refs = append(refs, ref)
	}
	slices.Sort(refs)
	return refs
}

// GraderConfig is the dictionary form of a grader, as found in competition
// configuration files.
type GraderConfig struct {
	Name    string            `mapstructure:"name"     json:"name"           yaml:"name"           validate:"required"`
	GradeFn string            `mapstructure:"grade_fn" json:"grade_fn"       yaml:"grade_fn"       validate:"required"`
	Kind    domain.ReportKind `mapstructure:"kind"     json:"kind,omitempty" yaml:"kind,omitempty" validate:"omitempty,oneof=competition code"`
}

// Validate checks the config fields.
func (c GraderConfig) Validate() error { return validate.Struct(c) }

// EffectiveKind returns the report kind, defaulting to competition.
func (c GraderConfig) EffectiveKind() domain.ReportKind {
	if c.Kind == "" {
		return domain.ReportKindCompetition
	}
	return c.Kind
}

// FromConfig builds a Grader, resolving its scoring function once.
func (r *Registry) FromConfig(cfg GraderConfig, opts ...Option) (*Grader, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid grader config: %w", err)
	}
	fn, err := r.Lookup(cfg.GradeFn)
	if err != nil {
		return nil, err
	}
	return New(cfg.Name, fn, opts...)
}

// CodeGraderFromConfig builds a CodeGrader, resolving its function once.
func (r *Registry) CodeGraderFromConfig(cfg GraderConfig, opts ...Option) (*CodeGrader, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid grader config: %w", err)
	}
	fn, err := r.LookupCode(cfg.GradeFn)
	if err != nil {
		return nil, err
	}
	return NewCodeGrader(cfg.Name, fn, opts...)
}

// Catalog holds constructed graders by name. It is built once at startup
// and read concurrently by activities afterwards.
type Catalog struct {
	graders map[string]*Grader
	code    map[string]*CodeGrader
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		graders: make(map[string]*Grader),
		code:    make(map[string]*CodeGrader),
	}
}

// BuildCatalog resolves every config through the registry.
func (r *Registry) BuildCatalog(cfgs []GraderConfig, opts ...Option) (*Catalog, error) {
	c := NewCatalog()
	for _, cfg := range cfgs {
		switch cfg.EffectiveKind() {
		case domain.ReportKindCode:
			g, err := r.CodeGraderFromConfig(cfg, opts...)
			if err != nil {
				return nil, fmt.Errorf("grader %q: %w", cfg.Name, err)
			}
			if err := c.AddCodeGrader(g); err != nil {
				return nil, err
			}
		default:
			g, err := r.FromConfig(cfg, opts...)
			if err != nil {
				return nil, fmt.Errorf("grader %q: %w", cfg.Name, err)
			}
			if err := c.AddGrader(g); err != nil {
				return nil, err
			}
		}
	}
	return c, nil
}

// AddGrader adds a competition grader.
func (c *Catalog) AddGrader(g *Grader) error {
	if c.has(g.Name()) {
		return fmt.Errorf("%w: %s", ErrDuplicateGrader, g.Name())
	}
	c.graders[g.Name()] = g
	return nil
}

// AddCodeGrader adds a code grader.
func (c *Catalog) AddCodeGrader(g *CodeGrader) error {
	if c.has(g.Name()) {
		return fmt.Errorf("%w: %s", ErrDuplicateGrader, g.Name())
	}
	c.code[g.Name()] = g
	return nil
}

func (c *Catalog) has(name string) bool {
	_, g := c.graders[name]
	_, cg := c.code[name]
	return g || cg
}

// Grader returns the competition grader with the given name.
func (c *Catalog) Grader(name string) (*Grader, error) {
	g, ok := c.graders[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGrader, name)
	}
	return g, nil
}

// CodeGrader returns the code grader with the given name.
func (c *Catalog) CodeGrader(name string) (*CodeGrader, error) {
	g, ok := c.code[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGrader, name)
	}
	return g, nil
}

// Len returns the number of graders.
func (c *Catalog) Len() int { return len(c.graders) + len(c.code) }
