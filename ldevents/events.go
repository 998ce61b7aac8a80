package ldevents

import (
	"github.com/launchdarkly/go-eval-engine/ldreason"
	"github.com/launchdarkly/go-eval-engine/ldtime"
	"github.com/launchdarkly/go-eval-engine/ldvalue"
	"github.com/launchdarkly/go-eval-engine/lduser"
)

// NoVariation is used in place of a variation index when an evaluation did not select one
// (for instance, an off event with no off variation, or an error result).
const NoVariation = -1

// FlagEventProperties is the subset of a feature flag's fields that the event pipeline needs
// in order to decide how to record an evaluation of that flag, without depending on the
// flag evaluation package itself.
type FlagEventProperties interface {
	GetKey() string
	GetVersion() int
	IsFullEventTrackingEnabled() bool
	GetDebugEventsUntilDate() ldtime.UnixMillisecondTime
	IsExperimentationEnabled(reason ldreason.EvaluationReason) bool
}

// BaseEvent contains the fields common to every event type.
type BaseEvent struct {
	CreationDate ldtime.UnixMillisecondTime
	User         lduser.User
}

// GetBase returns the BaseEvent embedded in any Event.
func (b BaseEvent) GetBase() BaseEvent {
	return b
}

// Event is implemented by every event type that can be sent to an EventProcessor.
type Event interface {
	GetBase() BaseEvent
}

// FeatureRequestEvent represents a single flag evaluation.
type FeatureRequestEvent struct {
	BaseEvent
	Key                  string
	Value                ldvalue.Value
	Default              ldvalue.Value
	Variation            int
	Version              int
	PrereqOf             string
	Reason               ldreason.EvaluationReason
	TrackEvents          bool
	DebugEventsUntilDate ldtime.UnixMillisecondTime
	Debug                bool
}

// IdentifyEvent represents an explicit notice that a user was seen.
type IdentifyEvent struct {
	BaseEvent
}

// IndexEvent is synthesized internally the first time a user is referenced by an event that
// does not inline the full user, so the analytics endpoint learns the user's attributes.
type IndexEvent struct {
	BaseEvent
}

// CustomEvent represents an application-defined event, optionally carrying data and a metric value.
type CustomEvent struct {
	BaseEvent
	Key         string
	Data        ldvalue.Value
	HasMetric   bool
	MetricValue float64
}

// EventFactory creates events, tagging them with the current time and with experimentation
// flags derived from the evaluation reason.
type EventFactory struct {
	includeReasons bool
	timeFn         func() ldtime.UnixMillisecondTime
}

// NewEventFactory creates an EventFactory. If timeFn is nil, time.Now is used.
func NewEventFactory(includeReasons bool, timeFn func() ldtime.UnixMillisecondTime) EventFactory {
	if timeFn == nil {
		timeFn = ldtime.UnixMillisNow
	}
	return EventFactory{includeReasons: includeReasons, timeFn: timeFn}
}

// NewUnknownFlagEvaluationData creates a feature event for a flag key that was not found in the store.
func (f EventFactory) NewUnknownFlagEvaluationData(
	key string,
	user lduser.User,
	defaultVal ldvalue.Value,
	reason ldreason.EvaluationReason,
) FeatureRequestEvent {
	return FeatureRequestEvent{
		BaseEvent: BaseEvent{CreationDate: f.timeFn(), User: user},
		Key:       key,
		Value:     defaultVal,
		Default:   defaultVal,
		Variation: NoVariation,
		Version:   0,
		Reason:    f.reasonOrEmpty(reason),
	}
}

// NewSuccessfulEvalEvent creates a feature event for a completed evaluation of a known flag.
func (f EventFactory) NewSuccessfulEvalEvent(
	flag FlagEventProperties,
	user lduser.User,
	variation int,
	value ldvalue.Value,
	defaultVal ldvalue.Value,
	reason ldreason.EvaluationReason,
	prereqOf string,
) FeatureRequestEvent {
	requireExperimentData := flag.IsExperimentationEnabled(reason)
	return FeatureRequestEvent{
		BaseEvent:            BaseEvent{CreationDate: f.timeFn(), User: user},
		Key:                  flag.GetKey(),
		Value:                value,
		Default:              defaultVal,
		Variation:            variation,
		Version:              flag.GetVersion(),
		PrereqOf:             prereqOf,
		Reason:               f.reasonFor(reason, requireExperimentData),
		TrackEvents:          flag.IsFullEventTrackingEnabled() || requireExperimentData,
		DebugEventsUntilDate: flag.GetDebugEventsUntilDate(),
	}
}

func (f EventFactory) reasonFor(reason ldreason.EvaluationReason, forceInclude bool) ldreason.EvaluationReason {
	if f.includeReasons || forceInclude {
		return reason
	}
	return ldreason.EvaluationReason{}
}

func (f EventFactory) reasonOrEmpty(reason ldreason.EvaluationReason) ldreason.EvaluationReason {
	if f.includeReasons {
		return reason
	}
	return ldreason.EvaluationReason{}
}

// NewIdentifyEvent creates an identify event.
func (f EventFactory) NewIdentifyEvent(user lduser.User) IdentifyEvent {
	return IdentifyEvent{BaseEvent: BaseEvent{CreationDate: f.timeFn(), User: user}}
}

// NewCustomEvent creates a custom event.
func (f EventFactory) NewCustomEvent(
	key string,
	user lduser.User,
	data ldvalue.Value,
	hasMetric bool,
	metricValue float64,
) CustomEvent {
	return CustomEvent{
		BaseEvent:   BaseEvent{CreationDate: f.timeFn(), User: user},
		Key:         key,
		Data:        data,
		HasMetric:   hasMetric,
		MetricValue: metricValue,
	}
}
