// Package ldreason defines the EvaluationReason and EvaluationDetail types describing how a
// flag evaluation arrived at its result.
package ldreason

import (
	"encoding/json"
	"fmt"
)

// EvalReasonKind defines the possible values of the Kind property of EvaluationReason.
type EvalReasonKind string

const (
	// EvalReasonOff indicates that the flag was off and therefore returned its configured off variation.
	EvalReasonOff EvalReasonKind = "OFF"
	// EvalReasonTargetMatch indicates that the context key was specifically targeted for this flag.
	EvalReasonTargetMatch EvalReasonKind = "TARGET_MATCH"
	// EvalReasonRuleMatch indicates that the context matched one of the flag's rules.
	EvalReasonRuleMatch EvalReasonKind = "RULE_MATCH"
	// EvalReasonPrerequisiteFailed indicates that the flag was considered off because at least
	// one prerequisite flag either was off or did not return the required variation.
	EvalReasonPrerequisiteFailed EvalReasonKind = "PREREQUISITE_FAILED"
	// EvalReasonFallthrough indicates that the flag was on but the context did not match any
	// targets or rules, so the fallthrough variation was used.
	EvalReasonFallthrough EvalReasonKind = "FALLTHROUGH"
	// EvalReasonError indicates that the flag could not be evaluated, e.g. because it does not
	// exist or due to malformed flag data. In this case the result value is the default value
	// the caller passed in.
	EvalReasonError EvalReasonKind = "ERROR"
)

// EvalErrorKind defines the possible values of the ErrorKind property of EvaluationReason.
type EvalErrorKind string

const (
	// EvalErrorClientNotReady indicates that the caller tried to evaluate a flag before the
	// evaluator had any flag data loaded.
	EvalErrorClientNotReady EvalErrorKind = "CLIENT_NOT_READY"
	// EvalErrorFlagNotFound indicates that the caller provided a flag key that did not match
	// any known flag.
	EvalErrorFlagNotFound EvalErrorKind = "FLAG_NOT_FOUND"
	// EvalErrorMalformedFlag indicates an internal inconsistency in the flag data, e.g. a rule
	// referencing a nonexistent variation index.
	EvalErrorMalformedFlag EvalErrorKind = "MALFORMED_FLAG"
	// EvalErrorUserNotSpecified indicates that the caller passed a user without a key.
	EvalErrorUserNotSpecified EvalErrorKind = "USER_NOT_SPECIFIED"
	// EvalErrorWrongType indicates that the flag's value was not of the type the caller requested.
	EvalErrorWrongType EvalErrorKind = "WRONG_TYPE"
	// EvalErrorException indicates that an unexpected error stopped flag evaluation.
	EvalErrorException EvalErrorKind = "EXCEPTION"
)

// EvaluationReason describes why a flag evaluation produced a particular value.
//
// The zero value of EvaluationReason (as returned by an empty struct literal) has an empty Kind
// and marshals to JSON null; it is used by the event pipeline to mean "no reason was recorded."
type EvaluationReason struct {
	kind            EvalReasonKind
	ruleIndex       int
	ruleID          string
	prerequisiteKey string
	errorKind       EvalErrorKind
	inExperiment    bool
}

// String returns a concise representation of the reason, e.g. "OFF" or "ERROR(WRONG_TYPE)".
func (r EvaluationReason) String() string {
	switch r.kind {
	case EvalReasonRuleMatch:
		return fmt.Sprintf("%s(%d,%s)", r.kind, r.ruleIndex, r.ruleID)
	case EvalReasonPrerequisiteFailed:
		return fmt.Sprintf("%s(%s)", r.kind, r.prerequisiteKey)
	case EvalReasonError:
		return fmt.Sprintf("%s(%s)", r.kind, r.errorKind)
	default:
		return string(r.kind)
	}
}

// GetKind describes the general category of the reason.
func (r EvaluationReason) GetKind() EvalReasonKind {
	return r.kind
}

// GetRuleIndex returns the index of the matched rule (0 being the first) if the Kind is
// EvalReasonRuleMatch, or -1 otherwise.
func (r EvaluationReason) GetRuleIndex() int {
	if r.kind == EvalReasonRuleMatch {
		return r.ruleIndex
	}
	return -1
}

// GetRuleID returns the unique, stable identifier of the matched rule if the Kind is
// EvalReasonRuleMatch, or "" otherwise. Unlike the rule index, this does not change if rules
// are added or removed ahead of it.
func (r EvaluationReason) GetRuleID() string {
	return r.ruleID
}

// GetPrerequisiteKey returns the flag key of the prerequisite that failed, if the Kind is
// EvalReasonPrerequisiteFailed, or "" otherwise.
func (r EvaluationReason) GetPrerequisiteKey() string {
	return r.prerequisiteKey
}

// GetErrorKind describes the category of the error, if the Kind is EvalReasonError, or ""
// otherwise.
func (r EvaluationReason) GetErrorKind() EvalErrorKind {
	return r.errorKind
}

// IsInExperiment returns true if this evaluation was part of an experimentation rollout, meaning
// the event for it should always be tracked even if the flag's own TrackEvents is off.
func (r EvaluationReason) IsInExperiment() bool {
	return r.inExperiment
}

// NewEvalReasonOff returns an EvaluationReason whose Kind is EvalReasonOff.
func NewEvalReasonOff() EvaluationReason {
	return EvaluationReason{kind: EvalReasonOff}
}

// NewEvalReasonFallthrough returns an EvaluationReason whose Kind is EvalReasonFallthrough.
func NewEvalReasonFallthrough(inExperiment bool) EvaluationReason {
	return EvaluationReason{kind: EvalReasonFallthrough, inExperiment: inExperiment}
}

// NewEvalReasonTargetMatch returns an EvaluationReason whose Kind is EvalReasonTargetMatch.
func NewEvalReasonTargetMatch() EvaluationReason {
	return EvaluationReason{kind: EvalReasonTargetMatch}
}

// NewEvalReasonRuleMatch returns an EvaluationReason whose Kind is EvalReasonRuleMatch.
func NewEvalReasonRuleMatch(ruleIndex int, ruleID string, inExperiment bool) EvaluationReason {
	return EvaluationReason{kind: EvalReasonRuleMatch, ruleIndex: ruleIndex, ruleID: ruleID, inExperiment: inExperiment}
}

// NewEvalReasonPrerequisiteFailed returns an EvaluationReason whose Kind is EvalReasonPrerequisiteFailed.
func NewEvalReasonPrerequisiteFailed(prereqKey string) EvaluationReason {
	return EvaluationReason{kind: EvalReasonPrerequisiteFailed, prerequisiteKey: prereqKey}
}

// NewEvalReasonError returns an EvaluationReason whose Kind is EvalReasonError.
func NewEvalReasonError(errorKind EvalErrorKind) EvaluationReason {
	return EvaluationReason{kind: EvalReasonError, errorKind: errorKind}
}

type evaluationReasonForMarshaling struct {
	Kind            EvalReasonKind `json:"kind"`
	RuleIndex       *int           `json:"ruleIndex,omitempty"`
	RuleID          string         `json:"ruleId,omitempty"`
	PrerequisiteKey string         `json:"prerequisiteKey,omitempty"`
	ErrorKind       EvalErrorKind  `json:"errorKind,omitempty"`
	InExperiment    bool           `json:"inExperiment,omitempty"`
}

// MarshalJSON implements custom JSON serialization for EvaluationReason. A zero-value reason
// (empty Kind) marshals to null.
func (r EvaluationReason) MarshalJSON() ([]byte, error) {
	if r.kind == "" {
		return []byte("null"), nil
	}
	erm := evaluationReasonForMarshaling{
		Kind:            r.kind,
		RuleID:          r.ruleID,
		PrerequisiteKey: r.prerequisiteKey,
		ErrorKind:       r.errorKind,
		InExperiment:    r.inExperiment,
	}
	if r.kind == EvalReasonRuleMatch {
		erm.RuleIndex = &r.ruleIndex
	}
	return json.Marshal(erm)
}

// UnmarshalJSON implements custom JSON deserialization for EvaluationReason.
func (r *EvaluationReason) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = EvaluationReason{}
		return nil
	}
	var erm evaluationReasonForMarshaling
	if err := json.Unmarshal(data, &erm); err != nil {
		return err
	}
	*r = EvaluationReason{
		kind:            erm.Kind,
		ruleID:          erm.RuleID,
		prerequisiteKey: erm.PrerequisiteKey,
		errorKind:       erm.ErrorKind,
		inExperiment:    erm.InExperiment,
	}
	if erm.RuleIndex != nil {
		r.ruleIndex = *erm.RuleIndex
	}
	return nil
}
