package lazyconf

import (
	"fmt"
	"sync"
	"time"

	"github.com/goliatone/go-lazyconf/internal/fieldpath"
)

// ResolverOption configures a Resolver.
type ResolverOption func(*resolverConfig)

type resolverConfig struct {
	evaluator Evaluator
	cache     ProgramCache
	functions *FunctionRegistry
	logger    EvalLogger
}

// WithEvaluator sets the engine used for expression defaults. When unset the
// resolver lazily constructs the expr engine on first use.
func WithEvaluator(e Evaluator) ResolverOption {
	return func(cfg *resolverConfig) {
		cfg.evaluator = e
	}
}

// WithProgramCache caches compiled default expressions.
func WithProgramCache(cache ProgramCache) ResolverOption {
	return func(cfg *resolverConfig) {
		cfg.cache = cache
	}
}

// WithFunctionRegistry exposes custom functions to default expressions.
func WithFunctionRegistry(registry *FunctionRegistry) ResolverOption {
	return func(cfg *resolverConfig) {
		if registry == nil {
			return
		}
		cfg.functions = registry.Clone()
	}
}

// WithEvalLogger attaches a logger for expression-default evaluations.
func WithEvalLogger(logger EvalLogger) ResolverOption {
	return func(cfg *resolverConfig) {
		if logger == nil {
			cfg.logger = noopEvalLogger{}
			return
		}
		cfg.logger = logger
	}
}

// Resolver walks the two inheritance axes to produce effective values for
// lazy records. It is read-only over its inputs and safe for concurrent use
// as long as the stack and record are not mutated concurrently.
type Resolver struct {
	schema *Schema
	cfg    resolverConfig

	evalMu sync.Mutex
}

// NewResolver constructs a resolver over schema.
func NewResolver(schema *Schema, opts ...ResolverOption) *Resolver {
	cfg := resolverConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return &Resolver{schema: schema, cfg: cfg}
}

// Resolve returns the effective value for a dotted field path on rec.
//
// Resolution order, first concrete match wins:
//  1. rec's own explicit override.
//  2. The flattened stack entry for rec's exact type.
//  3. Per ancestor of rec's type, most specific first, every stack entry
//     innermost first whose type matches or derives from that ancestor.
//  4. The field's expression default, when declared.
//  5. The field's static default, which may itself be Absent.
//
// Context recency is consulted per ancestry level: a weaker type found in a
// more recent context wins over a stronger type found in an older context.
// That interleaving is observable and deliberate.
func (r *Resolver) Resolve(stack *ContextStack, rec *LazyRecord, path string) (Value, error) {
	return r.resolve(stack, rec, path, nil, "")
}

// ResolveScoped is Resolve with a scope identifier attached for expression
// environments and evaluation logs.
func (r *Resolver) ResolveScoped(scopeID string, stack *ContextStack, rec *LazyRecord, path string) (Value, error) {
	return r.resolve(stack, rec, path, nil, scopeID)
}

// ResolveTrace resolves while recording the provenance of every probe.
func (r *Resolver) ResolveTrace(stack *ContextStack, rec *LazyRecord, path string) (Value, Trace, error) {
	trace := Trace{Type: rec.Type().Name(), Path: path}
	value, err := r.resolve(stack, rec, path, &trace, "")
	return value, trace, err
}

func (r *Resolver) resolve(stack *ContextStack, rec *LazyRecord, path string, trace *Trace, scopeID string) (Value, error) {
	if rec == nil {
		return Absent, fmt.Errorf("lazyconf: lazy record must not be nil")
	}
	owner := rec.Type()
	spec, _, err := owner.SpecAt(path)
	if err != nil {
		return Absent, err
	}

	// Own override beats everything, context contents included.
	if value, ok := rec.lookup(path); ok && !value.IsAbsent() {
		trace.probe(Probe{Axis: AxisOwn, Type: owner.Name(), Path: path, Value: value.Any(), Found: true})
		return value, nil
	}
	trace.probe(Probe{Axis: AxisOwn, Type: owner.Name(), Path: path})

	if spec.Kind == KindRecord {
		nested, err := r.schema.Type(spec.Record)
		if err != nil {
			return Absent, err
		}
		return RecordValue(rec.section(path, nested)), nil
	}

	if value, ok := r.lookupStack(stack, owner, path, trace); ok {
		return value, nil
	}

	// A dotted path that no instance carries verbatim descends into the
	// nested type's lazy variant under the same stack.
	if head, rest := fieldpath.Head(path); rest != "" {
		fieldSpec, err := owner.Field(head)
		if err != nil {
			return Absent, err
		}
		nested, err := r.schema.Type(fieldSpec.Record)
		if err != nil {
			return Absent, err
		}
		return r.resolve(stack, rec.section(head, nested), rest, trace, scopeID)
	}

	if spec.DefaultExpr != "" {
		value, err := r.evalDefault(stack, rec, path, spec, trace, scopeID)
		if err != nil {
			return Absent, err
		}
		if !value.IsAbsent() {
			return value, nil
		}
	}

	trace.probe(Probe{Axis: AxisDefault, Type: owner.Name(), Path: path, Value: spec.Default.Any(), Found: !spec.Default.IsAbsent()})
	return spec.Default, nil
}

// lookupStack performs steps 2 and 3: the exact-type flattened entry first,
// then the interleaved ancestry-by-recency traversal.
func (r *Resolver) lookupStack(stack *ContextStack, owner *RecordType, path string, trace *Trace) (Value, bool) {
	if stack == nil || stack.Len() == 0 {
		return Absent, false
	}

	if entry, ok := stack.Flatten()[owner.Name()]; ok {
		value, found := entry.lookup(path)
		trace.probe(Probe{Axis: AxisContext, Type: owner.Name(), Entry: owner.Name(), Path: path, Value: value.Any(), Found: found && !value.IsAbsent()})
		if found && !value.IsAbsent() {
			return value, true
		}
	}

	entries := stack.Entries()
	for _, ancestor := range owner.Ancestry() {
		for position, entry := range entries {
			if !entry.Type().DerivesFrom(ancestor) {
				continue
			}
			value, found := entry.lookup(path)
			trace.probe(Probe{
				Axis:  AxisAncestry,
				Type:  ancestor.Name(),
				Entry: fmt.Sprintf("%s[%d]", entry.Type().Name(), position),
				Path:  path,
				Value: value.Any(),
				Found: found && !value.IsAbsent(),
			})
			if found && !value.IsAbsent() {
				return value, true
			}
		}
	}
	return Absent, false
}

func (r *Resolver) evalDefault(stack *ContextStack, rec *LazyRecord, path string, spec FieldSpec, trace *Trace, scopeID string) (Value, error) {
	evaluator, err := r.resolveEvaluator()
	if err != nil {
		return Absent, err
	}
	ctx := EvalContext{
		Fields:  r.concreteEnv(stack, rec, path),
		ScopeID: scopeID,
	}
	engine := evaluatorEngineName(evaluator)
	start := time.Now()
	raw, evalErr := evaluator.Evaluate(ctx, spec.DefaultExpr)
	duration := time.Since(start)
	evalErr = wrapEvaluationError(engine, spec.DefaultExpr, ctx.scopeLabel(), evalErr)
	r.evalLogger().LogEvaluation(EvalLogEvent{
		Engine:   engine,
		Expr:     spec.DefaultExpr,
		Field:    path,
		Scope:    ctx.scopeLabel(),
		Duration: duration,
		Err:      evalErr,
	})
	if evalErr != nil {
		return Absent, evalErr
	}
	value, err := Coerce(spec.Kind, raw)
	if err != nil {
		return Absent, wrapEvaluationError(engine, spec.DefaultExpr, ctx.scopeLabel(), err)
	}
	trace.probe(Probe{Axis: AxisExpr, Type: rec.Type().Name(), Path: path, Value: value.Any(), Found: !value.IsAbsent()})
	return value, nil
}

// concreteEnv gathers the concrete values visible to a default expression:
// every other leaf of the record's type, taken from overrides and the stack
// only. Expression defaults never feed each other, so there is no fixpoint
// iteration and no cycle to guard against.
func (r *Resolver) concreteEnv(stack *ContextStack, rec *LazyRecord, skip string) map[string]any {
	flat := map[string]any{}
	for _, leaf := range rec.Type().LeafPaths() {
		if leaf == skip {
			continue
		}
		if value, ok := rec.lookup(leaf); ok && !value.IsAbsent() {
			flat[leaf] = value.Any()
			continue
		}
		if value, ok := r.lookupStack(stack, rec.Type(), leaf, nil); ok {
			flat[leaf] = value.Any()
		}
	}
	return fieldpath.Expand(flat)
}

func (r *Resolver) resolveEvaluator() (Evaluator, error) {
	r.evalMu.Lock()
	defer r.evalMu.Unlock()
	if r.cfg.evaluator != nil {
		return r.cfg.evaluator, nil
	}
	var exprOpts []ExprEvaluatorOption
	if r.cfg.cache != nil {
		exprOpts = append(exprOpts, ExprWithProgramCache(r.cfg.cache))
	}
	if r.cfg.functions != nil {
		exprOpts = append(exprOpts, ExprWithFunctionRegistry(r.cfg.functions))
	}
	evaluator := NewExprEvaluator(exprOpts...)
	if evaluator == nil {
		return nil, ErrNoEvaluator
	}
	r.cfg.evaluator = evaluator
	return evaluator, nil
}

func (r *Resolver) evalLogger() EvalLogger {
	if r.cfg.logger != nil {
		return r.cfg.logger
	}
	return noopEvalLogger{}
}

func evaluatorEngineName(e Evaluator) string {
	if e == nil {
		return "unknown"
	}
	switch fmt.Sprintf("%T", e) {
	case "*lazyconf.exprEvaluator":
		return "expr"
	case "*lazyconf.celEvaluator":
		return "cel"
	case "*lazyconf.jsEvaluator":
		return "js"
	default:
		return "custom"
	}
}
