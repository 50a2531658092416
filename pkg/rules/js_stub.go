//go:build !js_eval

package rules

func newJSEvaluator(engineConfig) Evaluator {
	return nil
}

func jsEvaluatorAvailable() bool {
	return false
}

func isJSEvaluator(Evaluator) bool {
	return false
}
