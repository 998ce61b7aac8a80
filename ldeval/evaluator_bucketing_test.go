package ldeval

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/launchdarkly/go-eval-engine/ldmodel"
	"github.com/launchdarkly/go-eval-engine/ldvalue"
	"github.com/launchdarkly/go-eval-engine/lduser"
)

func TestBucketUserByKey(t *testing.T) {
	cases := []struct {
		userKey  string
		expected float32
	}{
		{"userKeyA", 0.42157587},
		{"userKeyB", 0.6708485},
		{"userKeyC", 0.10343106},
	}
	for _, c := range cases {
		user := lduser.NewUser(c.userKey)
		bucket := bucketUser(&user, "hashKey", lduser.KeyAttribute, "saltyA")
		assert.InDelta(t, c.expected, bucket, 0.0000001)
	}
}

func TestBucketUserByIntegerCustomAttribute(t *testing.T) {
	user := lduser.NewUserBuilder("userKey").
		Custom("intAttr", ldvalue.Int(33333)).
		Custom("stringAttr", ldvalue.String("33333")).
		Build()

	bucketByInt := bucketUser(&user, "hashKey", "intAttr", "saltyA")
	bucketByString := bucketUser(&user, "hashKey", "stringAttr", "saltyA")

	assert.InDelta(t, 0.54771423, bucketByInt, 0.0000001)
	assert.Equal(t, bucketByString, bucketByInt)
}

func TestBucketUserByFloatAttributeIsRejected(t *testing.T) {
	user := lduser.NewUserBuilder("x").
		Custom("floatAttr", ldvalue.Float64(33.5)).
		Build()

	bucket := bucketUser(&user, "hashKey", "floatAttr", "saltyA")
	assert.Equal(t, float32(0), bucket)
}

func TestBucketValueIsWithinUnitRange(t *testing.T) {
	for i := 0; i < 100; i++ {
		user := lduser.NewUser(string(rune('a' + i%26)))
		bucket := bucketUser(&user, "hashKey", lduser.KeyAttribute, "salt")
		assert.GreaterOrEqual(t, bucket, float32(0))
		assert.Less(t, bucket, float32(1))
	}
}

func TestVariationIndexForUserFallsBackToLastVariationOnWeightShortfall(t *testing.T) {
	// userKeyA buckets to ~0.42157587 against hashKey/saltyA (see TestBucketUserByKey). Weights here
	// sum to only 0.3, so the cumulative walk never reaches the bucket; the last listed variation
	// absorbs the shortfall instead of producing a malformed-flag error.
	vr := ldmodel.VariationOrRollout{
		Rollout: &ldmodel.Rollout{
			Variations: []ldmodel.WeightedVariation{
				{Variation: 0, Weight: 10000},
				{Variation: 1, Weight: 20000},
			},
		},
	}
	user := lduser.NewUser("userKeyA")

	index := variationIndexForUser(vr, &user, "hashKey", "saltyA")

	assert.NotNil(t, index)
	assert.Equal(t, 1, *index)
}

func TestVariationIndexForUserReturnsNilForMalformedRollout(t *testing.T) {
	vr := ldmodel.VariationOrRollout{Rollout: &ldmodel.Rollout{}}
	user := lduser.NewUser("x")

	index := variationIndexForUser(vr, &user, "hashKey", "saltyA")

	assert.Nil(t, index)
}
