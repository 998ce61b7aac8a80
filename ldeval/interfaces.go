// Package ldeval implements the flag-evaluation engine: given a feature flag, a user, and a
// DataProvider for resolving prerequisites and segments, it deterministically computes which
// variation of the flag applies and why.
package ldeval

import (
	"github.com/launchdarkly/go-eval-engine/ldmodel"
	"github.com/launchdarkly/go-eval-engine/ldreason"
	"github.com/launchdarkly/go-eval-engine/lduser"
)

// Evaluator is the engine for evaluating feature flags.
type Evaluator interface {
	// Evaluate evaluates a feature flag for the specified user.
	//
	// prerequisiteFlagEventRecorder may be nil if the caller does not need prerequisite evaluation
	// events.
	Evaluate(
		flag ldmodel.FeatureFlag,
		user lduser.User,
		prerequisiteFlagEventRecorder PrerequisiteFlagEventRecorder,
	) ldreason.EvaluationDetail
}

// PrerequisiteFlagEventRecorder is called once for every prerequisite flag evaluated while
// resolving a top-level flag, regardless of whether the prerequisite was satisfied.
type PrerequisiteFlagEventRecorder func(PrerequisiteFlagEvent)

// PrerequisiteFlagEvent is the parameter passed to a PrerequisiteFlagEventRecorder.
type PrerequisiteFlagEvent struct {
	// TargetFlagKey is the key of the flag that declared the prerequisite.
	TargetFlagKey string
	// User is the user the prerequisite was evaluated for.
	User lduser.User
	// PrerequisiteFlag is the full configuration of the prerequisite flag, needed because its
	// TrackEvents/DebugEventsUntilDate settings affect how the event pipeline records it.
	PrerequisiteFlag ldmodel.FeatureFlag
	// PrerequisiteResult is the result of evaluating the prerequisite flag.
	PrerequisiteResult ldreason.EvaluationDetail
}

// DataProvider is the abstraction the evaluator uses to look up prerequisite flags and segments
// referenced from within a flag being evaluated.
type DataProvider interface {
	// GetFeatureFlag retrieves a flag by key. The second return value is false if the flag does not
	// exist, or exists only as a deleted-record tombstone; in either case the first return value is
	// ignored.
	GetFeatureFlag(key string) (ldmodel.FeatureFlag, bool)
	// GetSegment retrieves a segment by key, with the same not-found/tombstone semantics as
	// GetFeatureFlag.
	GetSegment(key string) (ldmodel.Segment, bool)
}
