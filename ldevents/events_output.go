package ldevents

import (
	"github.com/launchdarkly/go-eval-engine/ldreason"
	"github.com/launchdarkly/go-eval-engine/ldtime"
	"github.com/launchdarkly/go-eval-engine/ldvalue"
)

// outputEvent is the wire representation shared by every non-summary event kind. Fields that do
// not apply to a given kind are left at their zero value and omitted by the omitempty tags.
type outputEvent struct {
	Kind                 string                     `json:"kind"`
	CreationDate         ldtime.UnixMillisecondTime `json:"creationDate"`
	Key                  string                     `json:"key,omitempty"`
	UserKey              string                     `json:"userKey,omitempty"`
	User                 interface{}                `json:"user,omitempty"`
	Value                *ldvalue.Value             `json:"value,omitempty"`
	Default              *ldvalue.Value             `json:"default,omitempty"`
	Variation            *int                       `json:"variation,omitempty"`
	Version              *int                       `json:"version,omitempty"`
	PrereqOf             string                     `json:"prereqOf,omitempty"`
	Reason               *ldreason.EvaluationReason `json:"reason,omitempty"`
	Data                 *ldvalue.Value             `json:"data,omitempty"`
	MetricValue          *float64                   `json:"metricValue,omitempty"`
}

type summaryCounter struct {
	Variation *int          `json:"variation,omitempty"`
	Version   *int          `json:"version,omitempty"`
	Value     ldvalue.Value `json:"value"`
	Count     int           `json:"count"`
}

type summaryFlagData struct {
	Default  ldvalue.Value    `json:"default"`
	Counters []summaryCounter `json:"counters"`
}

type summaryOutputEvent struct {
	Kind      string                     `json:"kind"`
	StartDate ldtime.UnixMillisecondTime `json:"startDate"`
	EndDate   ldtime.UnixMillisecondTime `json:"endDate"`
	Features  map[string]summaryFlagData `json:"features"`
}

// eventOutputFormatter converts internal Event values and an eventSummary snapshot into the
// wire-format payload that gets JSON-marshaled and posted to the analytics endpoint.
type eventOutputFormatter struct {
	userFilter userFilter
	config     EventsConfiguration
}

func (ef eventOutputFormatter) makeOutputEvents(events []Event, summary eventSummary) []interface{} {
	outputEvents := make([]interface{}, 0, len(events)+1)
	for _, e := range events {
		if oe := ef.makeOutputEvent(e); oe != nil {
			outputEvents = append(outputEvents, oe)
		}
	}
	if len(summary.counters) > 0 {
		outputEvents = append(outputEvents, ef.makeSummaryEvent(summary))
	}
	return outputEvents
}

func (ef eventOutputFormatter) makeOutputEvent(evt Event) interface{} {
	switch e := evt.(type) {
	case FeatureRequestEvent:
		scrubbed := ef.userFilter.scrubUser(e.User)
		out := &outputEvent{
			Kind:         featureEventKind(e.Debug),
			CreationDate: e.CreationDate,
			Key:          e.Key,
			Value:        &e.Value,
			Default:      &e.Default,
			PrereqOf:     e.PrereqOf,
		}
		if e.Variation != NoVariation {
			v := e.Variation
			out.Variation = &v
		}
		if e.Version != 0 {
			v := e.Version
			out.Version = &v
		}
		if e.Reason.GetKind() != "" {
			r := e.Reason
			out.Reason = &r
		}
		if e.Debug || ef.config.InlineUsersInEvents {
			out.User = scrubbed
		} else {
			out.UserKey = e.User.GetKey()
		}
		return out
	case IdentifyEvent:
		return &outputEvent{
			Kind:         "identify",
			CreationDate: e.CreationDate,
			Key:          e.User.GetKey(),
			User:         ef.userFilter.scrubUser(e.User),
		}
	case IndexEvent:
		return &outputEvent{
			Kind:         "index",
			CreationDate: e.CreationDate,
			User:         ef.userFilter.scrubUser(e.User),
		}
	case CustomEvent:
		out := &outputEvent{
			Kind:         "custom",
			CreationDate: e.CreationDate,
			Key:          e.Key,
			Data:         e.Data.AsPointer(),
		}
		if ef.config.InlineUsersInEvents {
			out.User = ef.userFilter.scrubUser(e.User)
		} else {
			out.UserKey = e.User.GetKey()
		}
		if e.HasMetric {
			mv := e.MetricValue
			out.MetricValue = &mv
		}
		return out
	default:
		return nil
	}
}

func featureEventKind(debug bool) string {
	if debug {
		return "debug"
	}
	return "feature"
}

func (ef eventOutputFormatter) makeSummaryEvent(summary eventSummary) *summaryOutputEvent {
	features := make(map[string]summaryFlagData)
	for key, counter := range summary.counters {
		data, ok := features[key.key]
		if !ok {
			data = summaryFlagData{Default: counter.flagDefault}
		}
		sc := summaryCounter{Value: counter.flagValue, Count: counter.count}
		if key.variation != NoVariation {
			v := key.variation
			sc.Variation = &v
		}
		if key.version != 0 {
			v := key.version
			sc.Version = &v
		}
		data.Counters = append(data.Counters, sc)
		features[key.key] = data
	}
	return &summaryOutputEvent{
		Kind:      "summary",
		StartDate: summary.startDate,
		EndDate:   summary.endDate,
		Features:  features,
	}
}
