package ldreason

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/launchdarkly/go-eval-engine/ldvalue"
)

func TestReasonConstructors(t *testing.T) {
	assert.Equal(t, EvalReasonOff, NewEvalReasonOff().GetKind())
	assert.Equal(t, EvalReasonFallthrough, NewEvalReasonFallthrough(false).GetKind())
	assert.Equal(t, EvalReasonTargetMatch, NewEvalReasonTargetMatch().GetKind())

	rm := NewEvalReasonRuleMatch(2, "rule-id", true)
	assert.Equal(t, EvalReasonRuleMatch, rm.GetKind())
	assert.Equal(t, 2, rm.GetRuleIndex())
	assert.Equal(t, "rule-id", rm.GetRuleID())
	assert.True(t, rm.IsInExperiment())

	pf := NewEvalReasonPrerequisiteFailed("other-flag")
	assert.Equal(t, EvalReasonPrerequisiteFailed, pf.GetKind())
	assert.Equal(t, "other-flag", pf.GetPrerequisiteKey())

	errReason := NewEvalReasonError(EvalErrorFlagNotFound)
	assert.Equal(t, EvalReasonError, errReason.GetKind())
	assert.Equal(t, EvalErrorFlagNotFound, errReason.GetErrorKind())
}

func TestReasonGetRuleIndexOnlyAppliesToRuleMatch(t *testing.T) {
	assert.Equal(t, -1, NewEvalReasonOff().GetRuleIndex())
	assert.Equal(t, -1, NewEvalReasonFallthrough(false).GetRuleIndex())
}

func TestReasonString(t *testing.T) {
	assert.Equal(t, "OFF", NewEvalReasonOff().String())
	assert.Equal(t, "RULE_MATCH(1,abc)", NewEvalReasonRuleMatch(1, "abc", false).String())
	assert.Equal(t, "PREREQUISITE_FAILED(dep)", NewEvalReasonPrerequisiteFailed("dep").String())
	assert.Equal(t, "ERROR(WRONG_TYPE)", NewEvalReasonError(EvalErrorWrongType).String())
}

func TestReasonMarshalUnmarshal(t *testing.T) {
	reasons := []EvaluationReason{
		NewEvalReasonOff(),
		NewEvalReasonFallthrough(true),
		NewEvalReasonTargetMatch(),
		NewEvalReasonRuleMatch(0, "rule0", false),
		NewEvalReasonPrerequisiteFailed("dep-flag"),
		NewEvalReasonError(EvalErrorMalformedFlag),
	}
	for _, original := range reasons {
		bytes, err := json.Marshal(original)
		assert.NoError(t, err)
		var parsed EvaluationReason
		assert.NoError(t, json.Unmarshal(bytes, &parsed))
		assert.Equal(t, original, parsed)
	}
}

func TestZeroValueReasonMarshalsToNull(t *testing.T) {
	var empty EvaluationReason
	bytes, err := json.Marshal(empty)
	assert.NoError(t, err)
	assert.Equal(t, "null", string(bytes))
}

func TestEvaluationDetail(t *testing.T) {
	detail := NewEvaluationDetail(ldvalue.Bool(true), 1, NewEvalReasonOff())
	assert.False(t, detail.IsDefaultValue())

	errDetail := NewEvaluationDetailForError(EvalErrorFlagNotFound, ldvalue.Bool(false))
	assert.True(t, errDetail.IsDefaultValue())
	assert.Equal(t, EvalErrorFlagNotFound, errDetail.Reason.GetErrorKind())
}
