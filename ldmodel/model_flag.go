package ldmodel

import (
	"github.com/launchdarkly/go-eval-engine/ldreason"
	"github.com/launchdarkly/go-eval-engine/ldtime"
	"github.com/launchdarkly/go-eval-engine/lduser"
	"github.com/launchdarkly/go-eval-engine/ldvalue"
)

// FeatureFlag describes an individual feature flag, as it would be read from or written to the
// data source. Application code does not normally construct these directly; they come from the
// data store, and are evaluated by the ldeval package.
type FeatureFlag struct {
	// Key is the unique string key of the feature flag.
	Key string `json:"key"`
	// On is true if targeting is turned on for this flag.
	//
	// If On is false, the evaluator always uses OffVariation and ignores all other fields.
	On bool `json:"on"`
	// Prerequisites is a list of feature flag conditions that are prerequisites for this flag.
	//
	// If any prerequisite is not met, the flag behaves as if targeting is turned off.
	Prerequisites []Prerequisite `json:"prerequisites"`
	// Targets contains sets of individually targeted users.
	//
	// Targets take precedence over Rules: if a user is matched by any Target, the Rules are ignored.
	// Targets are ignored if targeting is turned off.
	Targets []Target `json:"targets"`
	// Rules is a list of rules that may match a user.
	//
	// If a user is matched by a Rule, all subsequent Rules in the list are skipped. Rules are ignored
	// if targeting is turned off.
	Rules []FlagRule `json:"rules"`
	// Fallthrough defines the flag's behavior if targeting is turned on but the user is not matched
	// by any Target or Rule.
	Fallthrough VariationOrRollout `json:"fallthrough"`
	// OffVariation specifies the variation index to use if targeting is turned off.
	//
	// If this is nil, evaluation returns -1 for the variation index and ldvalue.Null() for the value.
	OffVariation *int `json:"offVariation"`
	// Variations is the list of all allowable variations for this flag. The variation index in a
	// Target or Rule is a zero-based index to this list.
	Variations []ldvalue.Value `json:"variations"`
	// Salt is a randomized value assigned to this flag when it is created.
	//
	// The hash function used for calculating percentage rollouts uses this as a salt to ensure that
	// rollouts are consistent within each flag but not predictable from one flag to another.
	Salt string `json:"salt"`
	// TrackEvents is true if the current LaunchDarkly account has data export enabled and has turned
	// on "send detailed event information for this flag" for this flag. It tells the event pipeline
	// to send full event data for each flag evaluation rather than only aggregate summary data.
	TrackEvents bool `json:"trackEvents"`
	// TrackEventsFallthrough is true if this flag is associated with an experiment on its default
	// rule. It tells the event pipeline to send full event data for any evaluation that falls through
	// to the default rule, even if TrackEvents would not otherwise require it.
	TrackEventsFallthrough bool `json:"trackEventsFallthrough"`
	// DebugEventsUntilDate is non-nil if debugging for this flag has been turned on temporarily in the
	// LaunchDarkly dashboard. It specifies a Unix millisecond timestamp when debug mode should expire.
	DebugEventsUntilDate *ldtime.UnixMillisecondTime `json:"debugEventsUntilDate"`
	// Version is an integer incremented by LaunchDarkly every time the flag configuration changes.
	Version int `json:"version"`
	// Deleted is true if this is a placeholder (tombstone) for a deleted flag rather than a real flag.
	// The evaluator never evaluates a deleted flag; a DataProvider should treat it as not found.
	Deleted bool `json:"deleted"`
}

// GetKey returns the string key for the flag. It exists to satisfy ldevents.FlagEventProperties.
func (f *FeatureFlag) GetKey() string {
	return f.Key
}

// GetVersion returns the version of the flag. It exists to satisfy ldevents.FlagEventProperties.
func (f *FeatureFlag) GetVersion() int {
	return f.Version
}

// IsFullEventTrackingEnabled reports whether the flag is configured to always generate full event
// data. It exists to satisfy ldevents.FlagEventProperties.
func (f *FeatureFlag) IsFullEventTrackingEnabled() bool {
	return f.TrackEvents
}

// GetDebugEventsUntilDate returns zero normally, or the expiration time of a temporary debug-mode
// window if one is active. It exists to satisfy ldevents.FlagEventProperties.
func (f *FeatureFlag) GetDebugEventsUntilDate() ldtime.UnixMillisecondTime {
	if f.DebugEventsUntilDate == nil {
		return 0
	}
	return *f.DebugEventsUntilDate
}

// IsExperimentationEnabled reports whether, given the reason from a specific evaluation, that
// evaluation should be fully tracked regardless of the caller's own event-tracking settings. It
// exists to satisfy ldevents.FlagEventProperties.
func (f *FeatureFlag) IsExperimentationEnabled(reason ldreason.EvaluationReason) bool {
	switch reason.GetKind() {
	case ldreason.EvalReasonFallthrough:
		return f.TrackEventsFallthrough
	case ldreason.EvalReasonRuleMatch:
		i := reason.GetRuleIndex()
		if i >= 0 && i < len(f.Rules) {
			return f.Rules[i].TrackEvents
		}
	}
	return false
}

// FlagRule describes a single rule within a feature flag: a set of ANDed clauses, along with either
// a fixed variation or a set of rollout percentages to apply when the user matches all clauses.
type FlagRule struct {
	// VariationOrRollout defines what variation to return when a user matches this rule.
	VariationOrRollout
	// ID is a randomized identifier assigned to each rule when it is created. It is surfaced in the
	// RuleID property of a RULE_MATCH reason.
	ID string `json:"id,omitempty"`
	// Clauses is a list of test conditions that make up the rule. Every Clause must match for the
	// FlagRule to match.
	Clauses []Clause `json:"clauses"`
	// TrackEvents is true if this rule is associated with an experiment, requesting full event data
	// for any evaluation that matches it.
	TrackEvents bool `json:"trackEvents"`
}

// VariationOrRollout describes either a fixed variation or a percentage rollout. There is one of
// these for every FlagRule, and one in FeatureFlag.Fallthrough used when no rule matches.
//
// Invariant: exactly one of Variation or Rollout should be non-nil; a flag with neither is malformed.
type VariationOrRollout struct {
	// Variation, if non-nil, specifies the index of the variation to return.
	Variation *int `json:"variation,omitempty"`
	// Rollout, if non-nil, specifies a percentage rollout to use instead of a fixed variation.
	Rollout *Rollout `json:"rollout,omitempty"`
}

// Rollout describes how users are bucketed into variations during a percentage rollout.
type Rollout struct {
	// Variations is the list of variations in the rollout and what share of users falls into each.
	//
	// The Weight values should sum to 100000 (100%). If they do not, the last element absorbs any
	// leftover percentage; if they sum to more than 100000, a rounding discrepancy may still leave
	// the last element as the catch-all.
	Variations []WeightedVariation `json:"variations"`
	// BucketBy specifies which user attribute distinguishes users for rollout purposes.
	//
	// The default, when BucketBy is nil, is lduser.KeyAttribute. Rollouts always also fold in the
	// user's secondary key, if one is set.
	BucketBy *lduser.UserAttribute `json:"bucketBy,omitempty"`
}

// Clause describes a single test condition within a FlagRule or SegmentRule.
type Clause struct {
	// Attribute names the user attribute under test. Required for every Operator except
	// OperatorSegmentMatch.
	Attribute lduser.UserAttribute `json:"attribute"`
	// Op selects the comparison to perform.
	Op Operator `json:"op"`
	// Values is the list of reference values to compare the user's attribute value against. A clause
	// matches if the operator test succeeds for any one of them.
	//
	// When Op is OperatorSegmentMatch, Values holds segment keys instead of attribute values.
	//
	// If the user has no value for the named attribute, Values is never consulted and the clause is
	// treated as a non-match.
	Values []ldvalue.Value `json:"values"`
	// Negate inverts the result of the operator test, but only when the attribute was present; the
	// "attribute absent" non-match is never negated.
	Negate bool `json:"negate"`
	// preprocessed holds data computed by PreprocessFlag/PreprocessSegment to speed up repeated
	// evaluation of this clause (parsed regexes, semvers, timestamps, or a value-membership map).
	preprocessed clausePreprocessedData
}

// WeightedVariation describes the share of users who should receive a specific variation in a
// rollout.
type WeightedVariation struct {
	// Variation is the index of the variation to return for users in this bucket.
	Variation int `json:"variation"`
	// Weight is this bucket's share of users, as hundred-thousandths (0 to 100000).
	Weight int `json:"weight"`
}

// Target describes a set of users, identified by key, who should all receive a specific variation.
type Target struct {
	// Values is the set of user keys included in this Target.
	Values []string `json:"values"`
	// Variation is the index of the variation to return for a matching user.
	Variation int `json:"variation"`
	// preprocessed holds data computed by PreprocessFlag to speed up repeated membership tests
	// against Values.
	preprocessed targetPreprocessedData
}

// Prerequisite describes a requirement that another flag return a specific variation before this
// flag is considered "on".
type Prerequisite struct {
	// Key is the unique key of the prerequisite feature flag.
	Key string `json:"key"`
	// Variation is the variation index the prerequisite flag must return for the condition to hold.
	// If the prerequisite flag is off, the condition fails even if its off-variation matches.
	Variation int `json:"variation"`
}
