package ldeval

import (
	"strings"

	"github.com/launchdarkly/go-eval-engine/ldmodel"
	"github.com/launchdarkly/go-eval-engine/ldvalue"
)

// opFn is a binary predicate over an actual (user) value and a reference (clause) value. Every
// operator in the fixed dispatch table below has this shape; an operator not in the table is
// treated as operatorNoneFn, which always returns false.
type opFn func(actual ldvalue.Value, reference ldvalue.Value) bool

var allOps = map[ldmodel.Operator]opFn{
	ldmodel.OperatorIn:                 operatorInFn,
	ldmodel.OperatorStartsWith:         operatorStartsWithFn,
	ldmodel.OperatorEndsWith:           operatorEndsWithFn,
	ldmodel.OperatorContains:           operatorContainsFn,
	ldmodel.OperatorLessThan:           operatorLessThanFn,
	ldmodel.OperatorLessThanOrEqual:    operatorLessThanOrEqualFn,
	ldmodel.OperatorGreaterThan:        operatorGreaterThanFn,
	ldmodel.OperatorGreaterThanOrEqual: operatorGreaterThanOrEqualFn,
}

func operatorFn(op ldmodel.Operator) opFn {
	if fn, ok := allOps[op]; ok {
		return fn
	}
	return operatorNoneFn
}

func operatorNoneFn(ldvalue.Value, ldvalue.Value) bool {
	return false
}

func operatorInFn(actual, reference ldvalue.Value) bool {
	return actual.Equal(reference)
}

func stringOperator(actual, reference ldvalue.Value, fn func(string, string) bool) bool {
	if actual.Type() == ldvalue.StringType && reference.Type() == ldvalue.StringType {
		return fn(actual.StringValue(), reference.StringValue())
	}
	return false
}

func operatorStartsWithFn(actual, reference ldvalue.Value) bool {
	return stringOperator(actual, reference, strings.HasPrefix)
}

func operatorEndsWithFn(actual, reference ldvalue.Value) bool {
	return stringOperator(actual, reference, strings.HasSuffix)
}

func operatorContainsFn(actual, reference ldvalue.Value) bool {
	return stringOperator(actual, reference, strings.Contains)
}

func numericOperator(actual, reference ldvalue.Value, fn func(float64, float64) bool) bool {
	if actual.IsNumber() && reference.IsNumber() {
		return fn(actual.Float64Value(), reference.Float64Value())
	}
	return false
}

func operatorLessThanFn(actual, reference ldvalue.Value) bool {
	return numericOperator(actual, reference, func(a, r float64) bool { return a < r })
}

func operatorLessThanOrEqualFn(actual, reference ldvalue.Value) bool {
	return numericOperator(actual, reference, func(a, r float64) bool { return a <= r })
}

func operatorGreaterThanFn(actual, reference ldvalue.Value) bool {
	return numericOperator(actual, reference, func(a, r float64) bool { return a > r })
}

func operatorGreaterThanOrEqualFn(actual, reference ldvalue.Value) bool {
	return numericOperator(actual, reference, func(a, r float64) bool { return a >= r })
}
