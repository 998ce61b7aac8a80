package ldeval

import (
	"github.com/launchdarkly/go-eval-engine/ldmodel"
	"github.com/launchdarkly/go-eval-engine/lduser"
)

// segmentExplanation describes which rule, if any, caused a segment match decision.
type segmentExplanation struct {
	kind        string
	matchedRule *ldmodel.SegmentRule
}

// segmentContainsUser applies include/exclude/rule precedence: an explicit Included entry always
// wins, then an explicit Excluded entry, and only then do the segment's rules get a chance to
// match.
func segmentContainsUser(dataProvider DataProvider, s *ldmodel.Segment, user *lduser.User) (bool, segmentExplanation) {
	userKey := user.GetKey()

	if ldmodel.EvaluatorAccessors.SegmentFindKeyInIncluded(s, userKey) {
		return true, segmentExplanation{kind: "included"}
	}
	if ldmodel.EvaluatorAccessors.SegmentFindKeyInExcluded(s, userKey) {
		return false, segmentExplanation{kind: "excluded"}
	}

	for _, rule := range s.Rules {
		r := rule
		if segmentRuleMatchesUser(&r, user, s.Key, s.Salt) {
			return true, segmentExplanation{kind: "rule", matchedRule: &r}
		}
	}

	return false, segmentExplanation{}
}

func segmentRuleMatchesUser(r *ldmodel.SegmentRule, user *lduser.User, key, salt string) bool {
	for i := range r.Clauses {
		if !clauseMatchesUserNoSegments(&r.Clauses[i], user) {
			return false
		}
	}

	if r.Weight == nil {
		return true
	}

	bucketBy := lduser.KeyAttribute
	if r.BucketBy != nil {
		bucketBy = *r.BucketBy
	}

	bucket := bucketUser(user, key, bucketBy, salt)
	weight := float32(*r.Weight) / 100000.0
	return bucket < weight
}
