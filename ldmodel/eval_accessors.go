package ldmodel

import (
	"regexp"
	"time"

	"github.com/launchdarkly/go-semver"

	"github.com/launchdarkly/go-eval-engine/ldvalue"
)

// EvaluatorAccessorMethods contains lookup helpers used by the ldeval package to inspect Clause
// and Segment values.
//
// These live here, rather than as plain methods on Clause/Segment, because they take advantage of
// the preprocessed data populated by PreprocessFlag/PreprocessSegment, which is an implementation
// detail of this package and therefore unexported. Each method falls back to a linear scan or a
// fresh parse when no preprocessed data is available, so evaluation is correct even for flags
// that were built some other way and never preprocessed.
type EvaluatorAccessorMethods struct{}

// EvaluatorAccessors is the entry point for EvaluatorAccessorMethods.
var EvaluatorAccessors EvaluatorAccessorMethods

// ClauseFindValue reports whether contextValue is deeply equal to any of the clause's Values.
func (e EvaluatorAccessorMethods) ClauseFindValue(clause *Clause, contextValue ldvalue.Value) bool {
	if clause == nil {
		return false
	}
	if clause.preprocessed.valuesMap != nil {
		if key := asPrimitiveValueKey(contextValue); key.isValid() {
			_, found := clause.preprocessed.valuesMap[key]
			return found
		}
	}
	for _, clauseValue := range clause.Values {
		if contextValue.Equal(clauseValue) {
			return true
		}
	}
	return false
}

// ClauseGetValueAsRegexp returns one of the clause's values as a compiled regexp, or nil if it is
// not a string or is not a valid pattern.
func (e EvaluatorAccessorMethods) ClauseGetValueAsRegexp(clause *Clause, index int) *regexp.Regexp {
	if clause == nil || index < 0 {
		return nil
	}
	if clause.preprocessed.values != nil {
		if index >= len(clause.preprocessed.values) {
			return nil
		}
		return clause.preprocessed.values[index].parsedRegexp
	}
	if index < len(clause.Values) {
		return parseRegexp(clause.Values[index])
	}
	return nil
}

// ClauseGetValueAsSemanticVersion returns one of the clause's values as a semver.Version.
func (e EvaluatorAccessorMethods) ClauseGetValueAsSemanticVersion(clause *Clause, index int) (semver.Version, bool) {
	if clause == nil || index < 0 {
		return semver.Version{}, false
	}
	if clause.preprocessed.values != nil {
		if index >= len(clause.preprocessed.values) {
			return semver.Version{}, false
		}
		p := clause.preprocessed.values[index]
		return p.parsedSemver, p.valid
	}
	if index < len(clause.Values) {
		return parseSemVer(clause.Values[index])
	}
	return semver.Version{}, false
}

// ClauseGetValueAsTimestamp returns one of the clause's values as a time.Time.
func (e EvaluatorAccessorMethods) ClauseGetValueAsTimestamp(clause *Clause, index int) (time.Time, bool) {
	if clause == nil || index < 0 {
		return time.Time{}, false
	}
	if clause.preprocessed.values != nil {
		if index >= len(clause.preprocessed.values) {
			return time.Time{}, false
		}
		p := clause.preprocessed.values[index]
		return p.parsedTime, p.valid
	}
	if index < len(clause.Values) {
		return parseDateTime(clause.Values[index])
	}
	return time.Time{}, false
}

// SegmentFindKeyInIncluded reports whether key is in the segment's Included list.
func (e EvaluatorAccessorMethods) SegmentFindKeyInIncluded(segment *Segment, key string) bool {
	if segment == nil {
		return false
	}
	return findValueInMapOrStrings(key, segment.Included, segment.preprocessed.includeMap)
}

// SegmentFindKeyInExcluded reports whether key is in the segment's Excluded list.
func (e EvaluatorAccessorMethods) SegmentFindKeyInExcluded(segment *Segment, key string) bool {
	if segment == nil {
		return false
	}
	return findValueInMapOrStrings(key, segment.Excluded, segment.preprocessed.excludeMap)
}

// TargetFindKey reports whether key is in the target's Values list.
func (e EvaluatorAccessorMethods) TargetFindKey(target *Target, key string) bool {
	if target == nil {
		return false
	}
	return findValueInMapOrStrings(key, target.Values, target.preprocessed.valuesMap)
}

func findValueInMapOrStrings(value string, values []string, valuesMap map[string]struct{}) bool {
	if valuesMap != nil {
		_, found := valuesMap[value]
		return found
	}
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
