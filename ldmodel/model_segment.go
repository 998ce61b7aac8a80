package ldmodel

import "github.com/launchdarkly/go-eval-engine/lduser"

// Segment describes a reusable group of users, defined by key lists and/or matching rules.
type Segment struct {
	// Key is the unique key of the segment.
	Key string `json:"key"`
	// Included is a list of user keys that always match this segment, regardless of Rules.
	Included []string `json:"included"`
	// Excluded is a list of user keys that never match this segment, unless the key is also in
	// Included (Included takes precedence).
	Excluded []string `json:"excluded"`
	// Salt is a randomized value assigned to this segment when it is created, used to make the
	// segment's rollout-rule bucketing unpredictable from any other flag or segment's bucketing.
	Salt string `json:"salt"`
	// Rules is a list of rules that may match a user not found in Included or Excluded.
	//
	// If a user is matched by a rule, subsequent rules are skipped.
	Rules []SegmentRule `json:"rules"`
	// Version is an integer incremented by LaunchDarkly every time the segment configuration changes.
	Version int `json:"version"`
	// Deleted is true if this is a placeholder (tombstone) for a deleted segment rather than a real
	// segment. A DataProvider should treat it as not found.
	Deleted bool `json:"deleted"`
	// preprocessed holds data computed by PreprocessSegment to speed up repeated Included/Excluded
	// membership tests.
	preprocessed segmentPreprocessedData
}

// GetKey returns the string key for the segment.
func (s *Segment) GetKey() string {
	return s.Key
}

// GetVersion returns the version of the segment.
func (s *Segment) GetVersion() int {
	return s.Version
}

// SegmentRule describes a set of ANDed clauses that, if all match, include the user in a segment
// (optionally subject to a percentage rollout).
type SegmentRule struct {
	// ID is a randomized identifier assigned to each rule when it is created.
	ID string `json:"id,omitempty"`
	// Clauses is a list of test conditions making up the rule. Every Clause must match.
	Clauses []Clause `json:"clauses"`
	// Weight, if non-nil, restricts matching to a percentage of users who would otherwise match this
	// rule, as hundred-thousandths (0 to 100000). A nil Weight means the rule always matches once its
	// clauses pass.
	Weight *int `json:"weight,omitempty"`
	// BucketBy specifies which user attribute distinguishes users for this rule's rollout. The
	// default, when nil, is lduser.KeyAttribute.
	BucketBy *lduser.UserAttribute `json:"bucketBy,omitempty"`
}
