package ldreason

import (
	"github.com/launchdarkly/go-eval-engine/ldvalue"
)

// EvaluationDetail combines the result of a flag evaluation with an explanation of how the
// evaluator arrived at it.
type EvaluationDetail struct {
	// Value is the result of the flag evaluation: either one of the flag's variations, or the
	// default value that was passed in if the flag could not be evaluated.
	Value ldvalue.Value
	// VariationIndex is the index of Value within the flag's variations list, or a negative
	// number if the default value was returned because of an error.
	VariationIndex int
	// Reason explains the main factor that produced this result.
	Reason EvaluationReason
}

// IsDefaultValue returns true if the evaluation returned the caller-supplied default value
// rather than one of the flag's own variations.
func (d EvaluationDetail) IsDefaultValue() bool {
	return d.VariationIndex < 0
}

// NewEvaluationDetail constructs an EvaluationDetail, specifying all fields.
func NewEvaluationDetail(value ldvalue.Value, variationIndex int, reason EvaluationReason) EvaluationDetail {
	return EvaluationDetail{Value: value, VariationIndex: variationIndex, Reason: reason}
}

// NewEvaluationDetailForError constructs an EvaluationDetail for an error condition, with a
// negative VariationIndex and the given default value.
func NewEvaluationDetailForError(errorKind EvalErrorKind, defaultValue ldvalue.Value) EvaluationDetail {
	return EvaluationDetail{Value: defaultValue, VariationIndex: -1, Reason: NewEvalReasonError(errorKind)}
}
