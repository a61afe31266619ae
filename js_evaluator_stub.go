//go:build !js_eval

package lazyconf

// NewJSEvaluator returns nil without the js_eval build tag; a resolver
// handed the nil evaluator reports ErrNoEvaluator instead of computing
// expression defaults.
func NewJSEvaluator(opts ...JSEvaluatorOption) Evaluator {
	_ = applyJSEvaluatorOptions(opts)
	return nil
}

func jsEvaluatorAvailable() bool {
	return false
}
