package ldeval

import (
	"regexp"
	"time"

	"github.com/launchdarkly/go-semver"

	"github.com/launchdarkly/go-eval-engine/ldmodel"
	"github.com/launchdarkly/go-eval-engine/ldvalue"
	"github.com/launchdarkly/go-eval-engine/lduser"
)

// clauseMatchesUserNoSegments evaluates a clause against a user without considering
// OperatorSegmentMatch; it is also used internally by segment rule matching, which can never
// reference another segment from within one of its own rules.
func clauseMatchesUserNoSegments(clause *ldmodel.Clause, user *lduser.User) bool {
	uValue := user.GetAttribute(clause.Attribute)
	if uValue.IsNull() {
		return false
	}

	if uValue.Type() == ldvalue.ArrayType {
		for i := 0; i < uValue.Count(); i++ {
			if clauseMatchesSingleValue(clause, uValue.GetByIndex(i)) {
				return maybeNegate(clause, true)
			}
		}
		return maybeNegate(clause, false)
	}

	return maybeNegate(clause, clauseMatchesSingleValue(clause, uValue))
}

// clauseMatchesUser evaluates a clause against a user, including OperatorSegmentMatch, which
// requires consulting the DataProvider for referenced segments.
func clauseMatchesUser(dataProvider DataProvider, clause *ldmodel.Clause, user *lduser.User) bool {
	if clause.Op == ldmodel.OperatorSegmentMatch {
		for _, value := range clause.Values {
			if value.Type() != ldvalue.StringType {
				continue
			}
			segment, ok := dataProvider.GetSegment(value.StringValue())
			if !ok {
				continue
			}
			if matches, _ := segmentContainsUser(dataProvider, &segment, user); matches {
				return maybeNegate(clause, true)
			}
		}
		return maybeNegate(clause, false)
	}
	return clauseMatchesUserNoSegments(clause, user)
}

// clauseMatchesSingleValue tests a single (non-array) user attribute value against every reference
// value in the clause, ORed together. Operators that benefit from preprocessing (in, matches,
// before/after, semVer*) go through ldmodel.EvaluatorAccessors so that a preprocessed flag pays for
// regex compilation and date/semver parsing only once, no matter how many times it is evaluated.
func clauseMatchesSingleValue(clause *ldmodel.Clause, uValue ldvalue.Value) bool {
	switch clause.Op {
	case ldmodel.OperatorIn:
		if ldmodel.EvaluatorAccessors.ClauseFindValue(clause, uValue) {
			return true
		}
		return false
	case ldmodel.OperatorMatches:
		if uValue.Type() != ldvalue.StringType {
			return false
		}
		for i := range clause.Values {
			if r := ldmodel.EvaluatorAccessors.ClauseGetValueAsRegexp(clause, i); r != nil {
				if matchesRegexp(r, uValue.StringValue()) {
					return true
				}
			}
		}
		return false
	case ldmodel.OperatorBefore, ldmodel.OperatorAfter:
		uTime, ok := parseDateTimeAttr(uValue)
		if !ok {
			return false
		}
		for i := range clause.Values {
			cTime, valid := ldmodel.EvaluatorAccessors.ClauseGetValueAsTimestamp(clause, i)
			if !valid {
				continue
			}
			if clause.Op == ldmodel.OperatorBefore && uTime.Before(cTime) {
				return true
			}
			if clause.Op == ldmodel.OperatorAfter && uTime.After(cTime) {
				return true
			}
		}
		return false
	case ldmodel.OperatorSemVerEqual, ldmodel.OperatorSemVerLessThan, ldmodel.OperatorSemVerGreaterThan:
		uVer, ok := parseSemVerAttr(uValue)
		if !ok {
			return false
		}
		for i := range clause.Values {
			cVer, valid := ldmodel.EvaluatorAccessors.ClauseGetValueAsSemanticVersion(clause, i)
			if !valid {
				continue
			}
			if semVerMatches(clause.Op, uVer, cVer) {
				return true
			}
		}
		return false
	default:
		fn := operatorFn(clause.Op)
		for _, cValue := range clause.Values {
			if fn(uValue, cValue) {
				return true
			}
		}
		return false
	}
}

func semVerMatches(op ldmodel.Operator, u, c semver.Version) bool {
	switch op {
	case ldmodel.OperatorSemVerEqual:
		return u.ComparePrecedence(c) == 0
	case ldmodel.OperatorSemVerLessThan:
		return u.ComparePrecedence(c) < 0
	case ldmodel.OperatorSemVerGreaterThan:
		return u.ComparePrecedence(c) > 0
	default:
		return false
	}
}

func matchesRegexp(r *regexp.Regexp, s string) bool {
	return r.MatchString(s)
}

func maybeNegate(clause *ldmodel.Clause, b bool) bool {
	if clause.Negate {
		return !b
	}
	return b
}

func parseDateTimeAttr(value ldvalue.Value) (time.Time, bool) {
	switch value.Type() {
	case ldvalue.StringType:
		t, err := time.Parse(time.RFC3339Nano, value.StringValue())
		if err != nil {
			return time.Time{}, false
		}
		return t.UTC(), true
	case ldvalue.NumberType:
		return time.Unix(0, int64(value.Float64Value())*int64(time.Millisecond)).UTC(), true
	}
	return time.Time{}, false
}

func parseSemVerAttr(value ldvalue.Value) (semver.Version, bool) {
	if value.Type() != ldvalue.StringType {
		return semver.Version{}, false
	}
	sv, err := semver.ParseAs(value.StringValue(), semver.ParseModeAllowMissingMinorAndPatch)
	if err != nil {
		return semver.Version{}, false
	}
	return sv, true
}
