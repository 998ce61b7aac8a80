package ldeval

import (
	"crypto/sha1" //nolint:gosec // used only for deterministic bucketing, not for security
	"encoding/hex"
	"strconv"

	"github.com/launchdarkly/go-eval-engine/ldmodel"
	"github.com/launchdarkly/go-eval-engine/ldvalue"
	"github.com/launchdarkly/go-eval-engine/lduser"
)

// longScale is 2^60 - 1, the denominator used to turn the first 15 hex characters of a SHA-1
// digest (60 bits) into a bucket value in [0, 1).
const longScale = float32(0xFFFFFFFFFFFFFFF)

// bucketUser computes a user's bucket value in [0, 1) for a given flag or segment key, salt, and
// bucketing attribute. An attribute that is missing, or present but not a string or integer,
// buckets to 0.
func bucketUser(user *lduser.User, key string, attr lduser.UserAttribute, salt string) float32 {
	uValue := user.GetAttribute(attr)
	idHash, ok := bucketableStringValue(uValue)
	if !ok {
		return 0
	}

	if secondary := user.GetSecondaryKey(); secondary.IsDefined() {
		idHash = idHash + "." + secondary.StringValue()
	}

	h := sha1.New() //nolint:gosec
	h.Write([]byte(key + "." + salt + "." + idHash))
	hash := hex.EncodeToString(h.Sum(nil))[:15]

	intVal, _ := strconv.ParseInt(hash, 16, 64)
	return float32(intVal) / longScale
}

func bucketableStringValue(uValue ldvalue.Value) (string, bool) {
	if uValue.Type() == ldvalue.StringType {
		return uValue.StringValue(), true
	}
	if uValue.IsInt() {
		return strconv.Itoa(uValue.IntValue()), true
	}
	return "", false
}

// variationIndexForUser resolves a VariationOrRollout to a concrete variation index for the given
// user. It returns nil only when the record is malformed (neither Variation nor Rollout set, or a
// Rollout with no variations at all).
//
// A Rollout whose weights sum to less than 100000 - whether by design or by rounding - always
// resolves to some variation: the bucket walk falls through to the last listed variation rather
// than failing, since every bucket value must land somewhere.
func variationIndexForUser(vr ldmodel.VariationOrRollout, user *lduser.User, key, salt string) *int {
	if vr.Variation != nil {
		return vr.Variation
	}
	if vr.Rollout == nil || len(vr.Rollout.Variations) == 0 {
		return nil
	}

	bucketBy := lduser.KeyAttribute
	if vr.Rollout.BucketBy != nil {
		bucketBy = *vr.Rollout.BucketBy
	}

	bucket := bucketUser(user, key, bucketBy, salt)

	var sum float32
	for _, wv := range vr.Rollout.Variations {
		sum += float32(wv.Weight) / 100000.0
		if bucket < sum {
			v := wv.Variation
			return &v
		}
	}

	last := vr.Rollout.Variations[len(vr.Rollout.Variations)-1].Variation
	return &last
}
