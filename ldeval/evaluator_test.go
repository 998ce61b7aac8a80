package ldeval

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/launchdarkly/go-eval-engine/ldmodel"
	"github.com/launchdarkly/go-eval-engine/ldreason"
	"github.com/launchdarkly/go-eval-engine/ldvalue"
	"github.com/launchdarkly/go-eval-engine/lduser"
)

type fakeDataProvider struct {
	flags    map[string]ldmodel.FeatureFlag
	segments map[string]ldmodel.Segment
}

func newFakeDataProvider() *fakeDataProvider {
	return &fakeDataProvider{
		flags:    make(map[string]ldmodel.FeatureFlag),
		segments: make(map[string]ldmodel.Segment),
	}
}

func (p *fakeDataProvider) GetFeatureFlag(key string) (ldmodel.FeatureFlag, bool) {
	f, ok := p.flags[key]
	return f, ok
}

func (p *fakeDataProvider) GetSegment(key string) (ldmodel.Segment, bool) {
	s, ok := p.segments[key]
	return s, ok
}

func (p *fakeDataProvider) addFlag(f ldmodel.FeatureFlag) {
	ldmodel.PreprocessFlag(&f)
	p.flags[f.Key] = f
}

func (p *fakeDataProvider) addSegment(s ldmodel.Segment) {
	ldmodel.PreprocessSegment(&s)
	p.segments[s.Key] = s
}

func booleanFlagWithRules(rules ...ldmodel.FlagRule) ldmodel.FeatureFlag {
	off := 0
	return ldmodel.FeatureFlag{
		Key:          "flagKey",
		On:           true,
		Variations:   []ldvalue.Value{ldvalue.Bool(false), ldvalue.Bool(true)},
		OffVariation: &off,
		Fallthrough:  ldmodel.VariationOrRollout{Variation: intPtr(0)},
		Rules:        rules,
	}
}

func intPtr(i int) *int {
	return &i
}

func TestFlagReturnsOffVariationIfFlagIsOff(t *testing.T) {
	one := 1
	flag := ldmodel.FeatureFlag{
		Key:          "flagKey",
		On:           false,
		OffVariation: &one,
		Variations:   []ldvalue.Value{ldvalue.String("fall"), ldvalue.String("off"), ldvalue.String("on")},
	}
	user := lduser.NewUser("x")

	result := NewEvaluator(newFakeDataProvider()).Evaluate(flag, user, nil)

	assert.Equal(t, ldvalue.String("off"), result.Value)
	assert.Equal(t, 1, result.VariationIndex)
	assert.Equal(t, ldreason.EvalReasonOff, result.Reason.GetKind())
}

func TestFlagReturnsNullIfFlagIsOffAndOffVariationUnspecified(t *testing.T) {
	flag := ldmodel.FeatureFlag{
		Key:        "flagKey",
		On:         false,
		Variations: []ldvalue.Value{ldvalue.String("fall"), ldvalue.String("off"), ldvalue.String("on")},
	}
	user := lduser.NewUser("x")

	result := NewEvaluator(newFakeDataProvider()).Evaluate(flag, user, nil)

	assert.True(t, result.Value.IsNull())
	assert.True(t, result.IsDefaultValue())
	assert.Equal(t, ldreason.EvalReasonOff, result.Reason.GetKind())
}

func TestFlagReturnsErrorIfFlagIsOffAndOffVariationIsTooHigh(t *testing.T) {
	bad := 999
	flag := ldmodel.FeatureFlag{
		Key:          "flagKey",
		On:           false,
		OffVariation: &bad,
		Variations:   []ldvalue.Value{ldvalue.String("fall")},
	}
	user := lduser.NewUser("x")

	result := NewEvaluator(newFakeDataProvider()).Evaluate(flag, user, nil)

	assert.True(t, result.IsDefaultValue())
	assert.Equal(t, ldreason.EvalErrorMalformedFlag, result.Reason.GetErrorKind())
}

func TestFlagMatchesUserFromTargets(t *testing.T) {
	flag := booleanFlagWithRules()
	flag.Targets = []ldmodel.Target{{Variation: 1, Values: []string{"userKey"}}}
	ldmodel.PreprocessFlag(&flag)
	user := lduser.NewUser("userKey")

	result := NewEvaluator(newFakeDataProvider()).Evaluate(flag, user, nil)

	assert.Equal(t, ldvalue.Bool(true), result.Value)
	assert.Equal(t, ldreason.EvalReasonTargetMatch, result.Reason.GetKind())
}

func TestFlagMatchesUserFromRules(t *testing.T) {
	rule := ldmodel.FlagRule{
		ID: "rule-id",
		Clauses: []ldmodel.Clause{
			{Attribute: lduser.KeyAttribute, Op: ldmodel.OperatorIn, Values: []ldvalue.Value{ldvalue.String("userKey")}},
		},
		VariationOrRollout: ldmodel.VariationOrRollout{Variation: intPtr(1)},
	}
	flag := booleanFlagWithRules(rule)
	ldmodel.PreprocessFlag(&flag)
	user := lduser.NewUser("userKey")

	result := NewEvaluator(newFakeDataProvider()).Evaluate(flag, user, nil)

	assert.Equal(t, ldvalue.Bool(true), result.Value)
	assert.Equal(t, ldreason.EvalReasonRuleMatch, result.Reason.GetKind())
	assert.Equal(t, 0, result.Reason.GetRuleIndex())
	assert.Equal(t, "rule-id", result.Reason.GetRuleID())
}

func TestFlagFallsThroughIfNoRuleOrTargetMatches(t *testing.T) {
	flag := booleanFlagWithRules()
	ldmodel.PreprocessFlag(&flag)
	user := lduser.NewUser("someoneElse")

	result := NewEvaluator(newFakeDataProvider()).Evaluate(flag, user, nil)

	assert.Equal(t, ldvalue.Bool(false), result.Value)
	assert.Equal(t, ldreason.EvalReasonFallthrough, result.Reason.GetKind())
}

func TestFlagReturnsErrorForMissingUserKey(t *testing.T) {
	flag := booleanFlagWithRules()
	result := NewEvaluator(newFakeDataProvider()).Evaluate(flag, lduser.User{}, nil)

	assert.True(t, result.IsDefaultValue())
	assert.Equal(t, ldreason.EvalErrorUserNotSpecified, result.Reason.GetErrorKind())
}

func TestPrerequisiteFailureTurnsFlagOff(t *testing.T) {
	provider := newFakeDataProvider()
	prereqOff := 0
	provider.addFlag(ldmodel.FeatureFlag{
		Key:         "prereqFlag",
		On:          true,
		Variations:  []ldvalue.Value{ldvalue.String("nope"), ldvalue.String("yep")},
		Fallthrough: ldmodel.VariationOrRollout{Variation: &prereqOff}, // resolves to variation 0
	})

	flag := booleanFlagWithRules()
	flag.Prerequisites = []ldmodel.Prerequisite{{Key: "prereqFlag", Variation: 1}}
	ldmodel.PreprocessFlag(&flag)

	var recorded []PrerequisiteFlagEvent
	user := lduser.NewUser("x")
	result := NewEvaluator(provider).Evaluate(flag, user, func(e PrerequisiteFlagEvent) {
		recorded = append(recorded, e)
	})

	assert.Equal(t, ldvalue.Bool(false), result.Value) // off-variation
	assert.Equal(t, ldreason.EvalReasonPrerequisiteFailed, result.Reason.GetKind())
	assert.Equal(t, "prereqFlag", result.Reason.GetPrerequisiteKey())
	assert.Len(t, recorded, 1)
	assert.Equal(t, "prereqFlag", recorded[0].PrerequisiteFlag.Key)
}

func TestPrerequisiteSuccessAllowsFlagToEvaluateNormally(t *testing.T) {
	provider := newFakeDataProvider()
	satisfied := 1
	provider.addFlag(ldmodel.FeatureFlag{
		Key:         "prereqFlag",
		On:          true,
		Variations:  []ldvalue.Value{ldvalue.String("nope"), ldvalue.String("yep")},
		Fallthrough: ldmodel.VariationOrRollout{Variation: &satisfied},
	})

	flag := booleanFlagWithRules()
	flag.Prerequisites = []ldmodel.Prerequisite{{Key: "prereqFlag", Variation: 1}}
	ldmodel.PreprocessFlag(&flag)

	user := lduser.NewUser("x")
	result := NewEvaluator(provider).Evaluate(flag, user, nil)

	assert.Equal(t, ldvalue.Bool(false), result.Value) // fell through, default fallthrough is variation 0
	assert.Equal(t, ldreason.EvalReasonFallthrough, result.Reason.GetKind())
}

func TestPrerequisiteCycleIsReportedAsMalformedFlag(t *testing.T) {
	provider := newFakeDataProvider()

	flagA := ldmodel.FeatureFlag{
		Key:           "flagA",
		On:            true,
		Variations:    []ldvalue.Value{ldvalue.Bool(false), ldvalue.Bool(true)},
		Fallthrough:   ldmodel.VariationOrRollout{Variation: intPtr(1)},
		Prerequisites: []ldmodel.Prerequisite{{Key: "flagB", Variation: 1}},
	}
	flagB := ldmodel.FeatureFlag{
		Key:           "flagB",
		On:            true,
		Variations:    []ldvalue.Value{ldvalue.Bool(false), ldvalue.Bool(true)},
		Fallthrough:   ldmodel.VariationOrRollout{Variation: intPtr(1)},
		Prerequisites: []ldmodel.Prerequisite{{Key: "flagA", Variation: 1}},
	}
	provider.addFlag(flagA)
	provider.addFlag(flagB)
	ldmodel.PreprocessFlag(&flagA)

	user := lduser.NewUser("x")
	result := NewEvaluator(provider).Evaluate(flagA, user, nil)

	assert.True(t, result.IsDefaultValue())
	assert.Equal(t, ldreason.EvalErrorMalformedFlag, result.Reason.GetErrorKind())
}

func TestFlagUsesRolloutWhenFallthroughHasNoFixedVariation(t *testing.T) {
	flag := ldmodel.FeatureFlag{
		Key:        "hashKey",
		Salt:       "saltyA",
		On:         true,
		Variations: []ldvalue.Value{ldvalue.String("v0"), ldvalue.String("v1")},
		Fallthrough: ldmodel.VariationOrRollout{
			Rollout: &ldmodel.Rollout{
				Variations: []ldmodel.WeightedVariation{
					{Variation: 0, Weight: 42157}, // just under userKeyA's ~0.42157587 bucket
					{Variation: 1, Weight: 57843},
				},
			},
		},
	}
	user := lduser.NewUser("userKeyA")

	result := NewEvaluator(newFakeDataProvider()).Evaluate(flag, user, nil)

	assert.Equal(t, ldvalue.String("v1"), result.Value)
	assert.Equal(t, ldreason.EvalReasonFallthrough, result.Reason.GetKind())
}

func TestClauseMatchesAnyValueInUserArrayAttribute(t *testing.T) {
	groups := ldvalue.ArrayOf(ldvalue.String("beta"), ldvalue.String("admin"))
	user := lduser.NewUserBuilder("userKey").Custom("groups", groups).Build()

	clause := ldmodel.Clause{
		Attribute: "groups",
		Op:        ldmodel.OperatorIn,
		Values:    []ldvalue.Value{ldvalue.String("admin")},
	}
	ldmodel.PreprocessFlag(&ldmodel.FeatureFlag{Rules: []ldmodel.FlagRule{{Clauses: []ldmodel.Clause{clause}}}})

	assert.True(t, clauseMatchesUserNoSegments(&clause, &user))
}

func TestClauseWithMissingAttributeNeverMatchesEvenNegated(t *testing.T) {
	user := lduser.NewUser("userKey")
	clause := ldmodel.Clause{
		Attribute: "nonexistent",
		Op:        ldmodel.OperatorIn,
		Values:    []ldvalue.Value{ldvalue.String("x")},
		Negate:    true,
	}

	assert.False(t, clauseMatchesUserNoSegments(&clause, &user))
}

func TestClauseSegmentMatchUsesDataProvider(t *testing.T) {
	provider := newFakeDataProvider()
	provider.addSegment(ldmodel.Segment{Key: "beta-users", Included: []string{"userKey"}})

	clause := ldmodel.Clause{
		Op:     ldmodel.OperatorSegmentMatch,
		Values: []ldvalue.Value{ldvalue.String("beta-users")},
	}
	user := lduser.NewUser("userKey")

	assert.True(t, clauseMatchesUser(provider, &clause, &user))
}

func TestClauseSegmentMatchTreatsMissingSegmentAsNonMatch(t *testing.T) {
	provider := newFakeDataProvider()
	clause := ldmodel.Clause{
		Op:     ldmodel.OperatorSegmentMatch,
		Values: []ldvalue.Value{ldvalue.String("no-such-segment")},
	}
	user := lduser.NewUser("userKey")

	assert.False(t, clauseMatchesUser(provider, &clause, &user))
}
