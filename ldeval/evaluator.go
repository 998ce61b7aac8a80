package ldeval

import (
	"github.com/launchdarkly/go-eval-engine/ldmodel"
	"github.com/launchdarkly/go-eval-engine/ldreason"
	"github.com/launchdarkly/go-eval-engine/lduser"
	"github.com/launchdarkly/go-eval-engine/ldvalue"
)

type evaluator struct {
	dataProvider DataProvider
}

// NewEvaluator creates an Evaluator backed by the given DataProvider, which it consults whenever a
// flag references a prerequisite flag or a segment.
func NewEvaluator(dataProvider DataProvider) Evaluator {
	return &evaluator{dataProvider: dataProvider}
}

func (e *evaluator) Evaluate(
	flag ldmodel.FeatureFlag,
	user lduser.User,
	prerequisiteFlagEventRecorder PrerequisiteFlagEventRecorder,
) ldreason.EvaluationDetail {
	if user.GetKey() == "" {
		return ldreason.NewEvaluationDetailForError(ldreason.EvalErrorUserNotSpecified, ldvalue.Null())
	}
	return e.evaluate(flag, user, prerequisiteFlagEventRecorder, map[string]struct{}{})
}

// evaluate is the internal entry point used for both the top-level call and prerequisite
// recursion. visited accumulates the keys of flags already entered on this call stack, so that a
// prerequisite cycle is detected and reported as a malformed flag rather than recursing forever.
func (e *evaluator) evaluate(
	flag ldmodel.FeatureFlag,
	user lduser.User,
	prerequisiteFlagEventRecorder PrerequisiteFlagEventRecorder,
	visited map[string]struct{},
) ldreason.EvaluationDetail {
	if !flag.On {
		return e.getOffValue(&flag, ldreason.NewEvalReasonOff())
	}

	if _, alreadyVisited := visited[flag.Key]; alreadyVisited {
		return ldreason.NewEvaluationDetailForError(ldreason.EvalErrorMalformedFlag, ldvalue.Null())
	}
	visited[flag.Key] = struct{}{}
	defer delete(visited, flag.Key)

	prereqFailReason, ok := e.checkPrerequisites(&flag, &user, prerequisiteFlagEventRecorder, visited)
	if !ok {
		return e.getOffValue(&flag, prereqFailReason)
	}

	key := user.GetKey()
	for _, target := range flag.Targets {
		if ldmodel.EvaluatorAccessors.TargetFindKey(&target, key) {
			return e.getVariation(&flag, target.Variation, ldreason.NewEvalReasonTargetMatch())
		}
	}

	for ruleIndex := range flag.Rules {
		rule := &flag.Rules[ruleIndex]
		if e.ruleMatchesUser(rule, &user) {
			reason := ldreason.NewEvalReasonRuleMatch(ruleIndex, rule.ID, rule.TrackEvents)
			return e.getValueForVariationOrRollout(&flag, rule.VariationOrRollout, &user, reason)
		}
	}

	return e.getValueForVariationOrRollout(
		&flag,
		flag.Fallthrough,
		&user,
		ldreason.NewEvalReasonFallthrough(flag.TrackEventsFallthrough),
	)
}

// checkPrerequisites returns (EvaluationReason{}, true) if every prerequisite is satisfied, or an
// error/failure reason and false otherwise. Every prerequisite is evaluated and reported to
// prerequisiteFlagEventRecorder regardless of outcome, so that analytics events are generated even
// for a prerequisite chain that ultimately fails partway through.
func (e *evaluator) checkPrerequisites(
	f *ldmodel.FeatureFlag,
	user *lduser.User,
	prerequisiteFlagEventRecorder PrerequisiteFlagEventRecorder,
	visited map[string]struct{},
) (ldreason.EvaluationReason, bool) {
	for _, prereq := range f.Prerequisites {
		prereqFlag, ok := e.dataProvider.GetFeatureFlag(prereq.Key)
		if !ok {
			return ldreason.NewEvalReasonPrerequisiteFailed(prereq.Key), false
		}

		prereqResult := e.evaluate(prereqFlag, *user, prerequisiteFlagEventRecorder, visited)

		if prerequisiteFlagEventRecorder != nil {
			prerequisiteFlagEventRecorder(PrerequisiteFlagEvent{
				TargetFlagKey:      f.Key,
				User:               *user,
				PrerequisiteFlag:   prereqFlag,
				PrerequisiteResult: prereqResult,
			})
		}

		prereqSatisfied := prereqFlag.On &&
			!prereqResult.IsDefaultValue() &&
			prereqResult.VariationIndex == prereq.Variation

		if !prereqSatisfied {
			return ldreason.NewEvalReasonPrerequisiteFailed(prereq.Key), false
		}
	}
	return ldreason.EvaluationReason{}, true
}

func (e *evaluator) getVariation(f *ldmodel.FeatureFlag, index int, reason ldreason.EvaluationReason) ldreason.EvaluationDetail {
	if index < 0 || index >= len(f.Variations) {
		return ldreason.NewEvaluationDetailForError(ldreason.EvalErrorMalformedFlag, ldvalue.Null())
	}
	return ldreason.NewEvaluationDetail(f.Variations[index], index, reason)
}

func (e *evaluator) getOffValue(f *ldmodel.FeatureFlag, reason ldreason.EvaluationReason) ldreason.EvaluationDetail {
	if f.OffVariation == nil {
		return ldreason.NewEvaluationDetail(ldvalue.Null(), -1, reason)
	}
	return e.getVariation(f, *f.OffVariation, reason)
}

func (e *evaluator) getValueForVariationOrRollout(
	f *ldmodel.FeatureFlag,
	vr ldmodel.VariationOrRollout,
	user *lduser.User,
	reason ldreason.EvaluationReason,
) ldreason.EvaluationDetail {
	index := variationIndexForUser(vr, user, f.Key, f.Salt)
	if index == nil {
		return ldreason.NewEvaluationDetailForError(ldreason.EvalErrorMalformedFlag, ldvalue.Null())
	}
	return e.getVariation(f, *index, reason)
}

func (e *evaluator) ruleMatchesUser(rule *ldmodel.FlagRule, user *lduser.User) bool {
	for i := range rule.Clauses {
		if !clauseMatchesUser(e.dataProvider, &rule.Clauses[i], user) {
			return false
		}
	}
	return true
}
