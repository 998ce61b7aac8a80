package ldmodel

import "encoding/json"

// DataModelSerialization is an abstraction over how FeatureFlag and Segment records are encoded
// on the wire. The evaluator only ever sees already-preprocessed values, so any implementation
// must call PreprocessFlag/PreprocessSegment as part of decoding.
type DataModelSerialization interface {
	MarshalFeatureFlag(item FeatureFlag) ([]byte, error)
	MarshalSegment(item Segment) ([]byte, error)
	UnmarshalFeatureFlag(data []byte) (FeatureFlag, error)
	UnmarshalSegment(data []byte) (Segment, error)
}

type jsonDataModelSerialization struct{}

// NewJSONDataModelSerialization returns the standard JSON encoding for flags and segments.
func NewJSONDataModelSerialization() DataModelSerialization {
	return jsonDataModelSerialization{}
}

func (jsonDataModelSerialization) MarshalFeatureFlag(item FeatureFlag) ([]byte, error) {
	return json.Marshal(item)
}

func (jsonDataModelSerialization) MarshalSegment(item Segment) ([]byte, error) {
	return json.Marshal(item)
}

func (jsonDataModelSerialization) UnmarshalFeatureFlag(data []byte) (FeatureFlag, error) {
	var f FeatureFlag
	if err := json.Unmarshal(data, &f); err != nil {
		return FeatureFlag{}, err
	}
	return f, nil
}

func (jsonDataModelSerialization) UnmarshalSegment(data []byte) (Segment, error) {
	var s Segment
	if err := json.Unmarshal(data, &s); err != nil {
		return Segment{}, err
	}
	return s, nil
}

// rawFeatureFlag mirrors FeatureFlag's field layout so that UnmarshalJSON can delegate to the
// default decoding behavior without recursing into itself.
type rawFeatureFlag FeatureFlag

// UnmarshalJSON decodes a FeatureFlag and then preprocesses it, so that any flag produced by
// json.Unmarshal is immediately ready for efficient repeated evaluation.
func (f *FeatureFlag) UnmarshalJSON(data []byte) error {
	var raw rawFeatureFlag
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*f = FeatureFlag(raw)
	PreprocessFlag(f)
	return nil
}

type rawSegment Segment

// UnmarshalJSON decodes a Segment and then preprocesses it, so that any segment produced by
// json.Unmarshal is immediately ready for efficient repeated evaluation.
func (s *Segment) UnmarshalJSON(data []byte) error {
	var raw rawSegment
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = Segment(raw)
	PreprocessSegment(s)
	return nil
}
