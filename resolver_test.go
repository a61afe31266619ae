package lazyconf

import (
	"testing"
)

func TestResolveOwnOverrideBeatsContext(t *testing.T) {
	schema := testSchema(t)
	resolver := NewResolver(schema)

	ctx := schema.MustType("Tool").New()
	if err := ctx.Set("size", 99); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stack := NewContextStack()
	if _, err := stack.Push(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	brush := schema.MustType("Brush").Lazy()
	if err := brush.Set("size", 12); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	value, err := resolver.Resolve(stack, brush, "size")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n, _ := value.Int(); n != 12 {
		t.Fatalf("expected own override 12, got %v", value.Any())
	}
}

func TestResolveOverrideContextDefaultLadder(t *testing.T) {
	schema := testSchema(t)
	resolver := NewResolver(schema)
	brush := schema.MustType("Brush").Lazy()

	// Nothing set anywhere: the static default answers.
	value, err := resolver.Resolve(NewContextStack(), brush, "opacity")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f, _ := value.Float(); f != 1.0 {
		t.Fatalf("expected static default 1.0, got %v", value.Any())
	}

	ctx := schema.MustType("Global").New()
	if err := ctx.Set("opacity", 0.25); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stack := NewContextStack()
	if _, err := stack.Push(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	value, err = resolver.Resolve(stack, brush, "opacity")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f, _ := value.Float(); f != 0.25 {
		t.Fatalf("expected context 0.25, got %v", value.Any())
	}

	if err := brush.Set("opacity", 0.75); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	value, err = resolver.Resolve(stack, brush, "opacity")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f, _ := value.Float(); f != 0.75 {
		t.Fatalf("expected own override 0.75, got %v", value.Any())
	}

	// Clearing the override re-exposes the context value.
	if err := brush.Set("opacity", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	value, err = resolver.Resolve(stack, brush, "opacity")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f, _ := value.Float(); f != 0.25 {
		t.Fatalf("expected context 0.25 after clearing, got %v", value.Any())
	}
}

func TestResolveExactTypeContextBeatsAncestor(t *testing.T) {
	schema := testSchema(t)
	resolver := NewResolver(schema)

	brushCtx := schema.MustType("Brush").New()
	if err := brushCtx.Set("size", 30); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	toolCtx := schema.MustType("Tool").New()
	if err := toolCtx.Set("size", 40); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The Tool entry is innermost, but the flattened exact-type probe for
	// Brush runs before any ancestry traversal.
	stack := NewContextStack()
	if _, err := stack.Push(brushCtx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := stack.Push(toolCtx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	value, err := resolver.Resolve(stack, schema.MustType("Brush").Lazy(), "size")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n, _ := value.Int(); n != 30 {
		t.Fatalf("expected exact-type 30, got %v", value.Any())
	}
}

func TestResolveAncestryBeatsRecency(t *testing.T) {
	schema := testSchema(t)
	resolver := NewResolver(schema)

	toolCtx := schema.MustType("Tool").New()
	if err := toolCtx.Set("color", "green"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	globalCtx := schema.MustType("Global").New()
	if err := globalCtx.Set("color", "red"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Global is pushed later (more recent) but sits lower on the ancestry
	// chain: the Tool level is probed across the whole stack first.
	stack := NewContextStack()
	if _, err := stack.Push(toolCtx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := stack.Push(globalCtx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	value, err := resolver.Resolve(stack, schema.MustType("Brush").Lazy(), "color")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s, _ := value.Str(); s != "green" {
		t.Fatalf("expected green from the Tool ancestry level, got %v", value.Any())
	}
}

func TestResolveRecencyWithinAncestryLevel(t *testing.T) {
	schema := testSchema(t)
	resolver := NewResolver(schema)

	older := schema.MustType("Tool").New()
	if err := older.Set("size", 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	newer := schema.MustType("Tool").New()
	if err := newer.Set("size", 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stack := NewContextStack()
	if _, err := stack.Push(older); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := stack.Push(newer); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	value, err := resolver.Resolve(stack, schema.MustType("Brush").Lazy(), "size")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n, _ := value.Int(); n != 2 {
		t.Fatalf("expected innermost 2, got %v", value.Any())
	}
}

func TestResolveUnsetContextFieldContributesNothing(t *testing.T) {
	schema := testSchema(t)
	resolver := NewResolver(schema)

	// The context instance exists but its author never touched color, so it
	// must not mask the static default.
	stack := NewContextStack()
	if _, err := stack.Push(schema.MustType("Global").New()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	value, err := resolver.Resolve(stack, schema.MustType("Brush").Lazy(), "color")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s, _ := value.Str(); s != "black" {
		t.Fatalf("expected default black, got %v", value.Any())
	}
}

func TestResolveEmptyStackFallsToDefaults(t *testing.T) {
	schema := testSchema(t)
	resolver := NewResolver(schema)

	value, err := resolver.Resolve(NewContextStack(), schema.MustType("Brush").Lazy(), "hardness")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f, _ := value.Float(); f != 0.5 {
		t.Fatalf("expected static default 0.5, got %v", value.Any())
	}
}

func TestResolveAbsentDefaultSurfacesAbsent(t *testing.T) {
	schema := NewSchema()
	if _, err := schema.Register(RecordTypeSpec{
		Name:   "Sparse",
		Fields: []FieldSpec{{Name: "label", Kind: KindString}},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resolver := NewResolver(schema)

	value, err := resolver.Resolve(nil, schema.MustType("Sparse").Lazy(), "label")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !value.IsAbsent() {
		t.Fatalf("expected Absent, got %v", value)
	}
}

func TestResolveUnknownPathIsSchemaError(t *testing.T) {
	schema := testSchema(t)
	resolver := NewResolver(schema)

	_, err := resolver.Resolve(nil, schema.MustType("Brush").Lazy(), "bogus")
	if !IsSchemaError(err) {
		t.Fatalf("expected schema error, got %v", err)
	}
}

func TestResolveNestedRecordPath(t *testing.T) {
	schema := testSchema(t)
	resolver := NewResolver(schema)

	ctx := schema.MustType("Tool").New()
	if err := ctx.Set("retry.limit", 7); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stack := NewContextStack()
	if _, err := stack.Push(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	brush := schema.MustType("Brush").Lazy()
	value, err := resolver.Resolve(stack, brush, "retry.limit")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n, _ := value.Int(); n != 7 {
		t.Fatalf("expected 7 from context, got %v", value.Any())
	}

	// No context for backoff: the nested type's own default applies.
	value, err = resolver.Resolve(stack, brush, "retry.backoff")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f, _ := value.Float(); f != 1.5 {
		t.Fatalf("expected nested default 1.5, got %v", value.Any())
	}
}

func TestResolveRecordFieldYieldsLazySection(t *testing.T) {
	schema := testSchema(t)
	resolver := NewResolver(schema)

	brush := schema.MustType("Brush").Lazy()
	if err := brush.Set("retry.limit", 9); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	value, err := resolver.Resolve(nil, brush, "retry")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	section, ok := value.Record()
	if !ok {
		t.Fatalf("expected record value, got %v", value)
	}
	if section.Type().Name() != "Retry" {
		t.Fatalf("expected Retry section, got %s", section.Type().Name())
	}
	limit, err := section.Get("limit")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n, _ := limit.Int(); n != 9 {
		t.Fatalf("expected carved override 9, got %v", limit.Any())
	}
}

func TestResolveExpressionDefault(t *testing.T) {
	schema := NewSchema()
	if _, err := schema.Register(RecordTypeSpec{
		Name: "Brush",
		Fields: []FieldSpec{
			{Name: "opacity", Kind: KindFloat, Default: Float(1.0)},
			{Name: "hardness", Kind: KindFloat, DefaultExpr: "opacity * 0.5", Default: Float(0.1)},
		},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resolver := NewResolver(schema, WithProgramCache(NewMapProgramCache()))

	brush := schema.MustType("Brush").Lazy()
	if err := brush.Set("opacity", 0.8); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	value, err := resolver.Resolve(nil, brush, "hardness")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f, _ := value.Float(); f != 0.4 {
		t.Fatalf("expected computed 0.4, got %v", value.Any())
	}
}

func TestResolveExpressionSeesContextValues(t *testing.T) {
	schema := NewSchema()
	if _, err := schema.Register(RecordTypeSpec{
		Name: "Tool",
		Fields: []FieldSpec{
			{Name: "size", Kind: KindInt, Default: Int(10)},
			{Name: "padding", Kind: KindInt, DefaultExpr: "size + 2"},
		},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resolver := NewResolver(schema)

	ctx := schema.MustType("Tool").New()
	if err := ctx.Set("size", 20); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stack := NewContextStack()
	if _, err := stack.Push(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	value, err := resolver.Resolve(stack, schema.MustType("Tool").Lazy(), "padding")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n, _ := value.Int(); n != 22 {
		t.Fatalf("expected 22 from context-fed expression, got %v", value.Any())
	}
}

func TestResolveTraceRecordsProbes(t *testing.T) {
	schema := testSchema(t)
	resolver := NewResolver(schema)

	value, trace, err := resolver.ResolveTrace(NewContextStack(), schema.MustType("Brush").Lazy(), "size")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n, _ := value.Int(); n != 10 {
		t.Fatalf("expected default 10, got %v", value.Any())
	}
	if trace.Type != "Brush" || trace.Path != "size" {
		t.Fatalf("unexpected trace header: %+v", trace)
	}
	if len(trace.Probes) == 0 {
		t.Fatalf("expected recorded probes")
	}
	last := trace.Probes[len(trace.Probes)-1]
	if last.Axis != AxisDefault || !last.Found {
		t.Fatalf("expected final default probe, got %+v", last)
	}

	payload, err := trace.ToJSON()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	decoded, err := TraceFromJSON(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(decoded.Probes) != len(trace.Probes) {
		t.Fatalf("expected %d probes after round trip, got %d", len(trace.Probes), len(decoded.Probes))
	}
}
