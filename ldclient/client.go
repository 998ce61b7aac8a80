package ldclient

import (
	"github.com/launchdarkly/go-eval-engine/ldeval"
	"github.com/launchdarkly/go-eval-engine/ldevents"
	"github.com/launchdarkly/go-eval-engine/ldlog"
	"github.com/launchdarkly/go-eval-engine/ldmodel"
	"github.com/launchdarkly/go-eval-engine/ldreason"
	"github.com/launchdarkly/go-eval-engine/ldstore"
	"github.com/launchdarkly/go-eval-engine/ldvalue"
	"github.com/launchdarkly/go-eval-engine/lduser"
)

// Client is the top-level entry point for evaluating feature flags and recording analytics
// events. It wires an ldeval.Evaluator, a flag/segment DataProvider, and an
// ldevents.EventProcessor together behind the variation/track/identify surface an application
// uses directly.
type Client struct {
	loggers        ldlog.Loggers
	dataProvider   ldeval.DataProvider
	store          *ldstore.Store // non-nil only when the default in-memory store was used
	evaluator      ldeval.Evaluator
	eventProcessor ldevents.EventProcessor
	eventFactory   ldevents.EventFactory
}

// New creates a Client from the given sdkKey and options. sdkKey is accepted for parity with the
// teacher's constructor signature and for inclusion in any future real event-transport wiring; it
// is not otherwise consulted since outbound event delivery is out of scope here (see DESIGN.md).
func New(sdkKey string, options ...Option) *Client {
	config := newConfig(options...)

	var store *ldstore.Store
	if s, ok := config.DataProvider.(*ldstore.Store); ok {
		store = s
	}

	eventProcessor := config.EventProcessor
	switch {
	case config.EventsDisabled || config.Offline:
		eventProcessor = ldevents.NewNullEventProcessor()
	case eventProcessor == nil:
		eventProcessor = ldevents.NewDefaultEventProcessor(ldevents.EventsConfiguration{
			Loggers:  config.Loggers,
			Capacity: 1000,
		})
	}

	return &Client{
		loggers:        config.Loggers,
		dataProvider:   config.DataProvider,
		store:          store,
		evaluator:      ldeval.NewEvaluator(config.DataProvider),
		eventProcessor: eventProcessor,
		eventFactory:   ldevents.NewEventFactory(false, nil),
	}
}

// Store returns the client's in-memory data store, or nil if the client was configured with a
// custom DataProvider via WithDataProvider. Callers use this to push flag/segment data (e.g. a
// test harness loading fixture data) when no real polling/streaming data source is wired up.
func (c *Client) Store() *ldstore.Store {
	return c.store
}

// BoolVariation returns the value of a boolean flag for the given user, or defaultValue if the
// flag does not exist, is not a boolean, or could not be evaluated.
func (c *Client) BoolVariation(flagKey string, user lduser.User, defaultValue bool) bool {
	detail, _ := c.evaluateInternal(flagKey, user, ldvalue.Bool(defaultValue), "")
	return detail.Value.BoolValue()
}

// StringVariation returns the value of a string flag for the given user, or defaultValue if the
// flag does not exist, is not a string, or could not be evaluated.
func (c *Client) StringVariation(flagKey string, user lduser.User, defaultValue string) string {
	detail, _ := c.evaluateInternal(flagKey, user, ldvalue.String(defaultValue), "")
	return detail.Value.StringValue()
}

// IntVariation returns the value of a numeric flag for the given user, truncated to an int, or
// defaultValue if the flag does not exist or could not be evaluated.
func (c *Client) IntVariation(flagKey string, user lduser.User, defaultValue int) int {
	detail, _ := c.evaluateInternal(flagKey, user, ldvalue.Int(defaultValue), "")
	return detail.Value.IntValue()
}

// Float64Variation returns the value of a numeric flag for the given user, or defaultValue if the
// flag does not exist or could not be evaluated.
func (c *Client) Float64Variation(flagKey string, user lduser.User, defaultValue float64) float64 {
	detail, _ := c.evaluateInternal(flagKey, user, ldvalue.Float64(defaultValue), "")
	return detail.Value.Float64Value()
}

// JSONVariation returns the value of a flag of any JSON type for the given user, or defaultValue
// if the flag does not exist or could not be evaluated.
func (c *Client) JSONVariation(flagKey string, user lduser.User, defaultValue ldvalue.Value) ldvalue.Value {
	detail, _ := c.evaluateInternal(flagKey, user, defaultValue, "")
	return detail.Value
}

// BoolVariationDetail is equivalent to BoolVariation, but also returns the full EvaluationDetail
// explaining how the result was reached.
func (c *Client) BoolVariationDetail(flagKey string, user lduser.User, defaultValue bool) (bool, ldreason.EvaluationDetail) {
	detail, _ := c.evaluateInternal(flagKey, user, ldvalue.Bool(defaultValue), "")
	return detail.Value.BoolValue(), detail
}

// StringVariationDetail is equivalent to StringVariation, but also returns the full
// EvaluationDetail explaining how the result was reached.
func (c *Client) StringVariationDetail(flagKey string, user lduser.User, defaultValue string) (string, ldreason.EvaluationDetail) {
	detail, _ := c.evaluateInternal(flagKey, user, ldvalue.String(defaultValue), "")
	return detail.Value.StringValue(), detail
}

// IntVariationDetail is equivalent to IntVariation, but also returns the full EvaluationDetail
// explaining how the result was reached.
func (c *Client) IntVariationDetail(flagKey string, user lduser.User, defaultValue int) (int, ldreason.EvaluationDetail) {
	detail, _ := c.evaluateInternal(flagKey, user, ldvalue.Int(defaultValue), "")
	return detail.Value.IntValue(), detail
}

// Float64VariationDetail is equivalent to Float64Variation, but also returns the full
// EvaluationDetail explaining how the result was reached.
func (c *Client) Float64VariationDetail(flagKey string, user lduser.User, defaultValue float64) (float64, ldreason.EvaluationDetail) {
	detail, _ := c.evaluateInternal(flagKey, user, ldvalue.Float64(defaultValue), "")
	return detail.Value.Float64Value(), detail
}

// JSONVariationDetail is equivalent to JSONVariation, but also returns the full EvaluationDetail
// explaining how the result was reached.
func (c *Client) JSONVariationDetail(flagKey string, user lduser.User, defaultValue ldvalue.Value) (ldvalue.Value, ldreason.EvaluationDetail) {
	return c.evaluateInternal(flagKey, user, defaultValue, "")
}

// evaluateInternal resolves the named flag, evaluates it, and sends the resulting feature event
// (plus one event per prerequisite touched along the way) to the event processor.
func (c *Client) evaluateInternal(
	flagKey string,
	user lduser.User,
	defaultValue ldvalue.Value,
	prereqOf string,
) (ldreason.EvaluationDetail, bool) {
	flag, ok := c.dataProvider.GetFeatureFlag(flagKey)
	if !ok {
		detail := ldreason.NewEvaluationDetailForError(ldreason.EvalErrorFlagNotFound, defaultValue)
		c.eventProcessor.SendEvent(c.eventFactory.NewUnknownFlagEvaluationData(flagKey, user, defaultValue, detail.Reason))
		return detail, false
	}

	detail := c.evaluator.Evaluate(flag, user, func(event ldeval.PrerequisiteFlagEvent) {
		c.eventProcessor.SendEvent(c.eventFactory.NewSuccessfulEvalEvent(
			&event.PrerequisiteFlag,
			user,
			event.PrerequisiteResult.VariationIndex,
			event.PrerequisiteResult.Value,
			ldvalue.Null(),
			event.PrerequisiteResult.Reason,
			event.TargetFlagKey,
		))
	})
	if detail.IsDefaultValue() {
		detail.Value = defaultValue
	}
	c.eventProcessor.SendEvent(c.eventFactory.NewSuccessfulEvalEvent(
		&flag, user, detail.VariationIndex, detail.Value, defaultValue, detail.Reason, prereqOf,
	))
	return detail, true
}

// AllFlagsState evaluates every known flag for the given user and returns a map of flag key to
// resulting value. Flags that fail to evaluate are simply omitted.
func (c *Client) AllFlagsState(user lduser.User, flags map[string]ldmodel.FeatureFlag) map[string]ldvalue.Value {
	result := make(map[string]ldvalue.Value, len(flags))
	for key, flag := range flags {
		detail := c.evaluator.Evaluate(flag, user, nil)
		result[key] = detail.Value
	}
	return result
}

// Identify records that a user was seen, without evaluating any flag.
func (c *Client) Identify(user lduser.User) {
	c.eventProcessor.SendEvent(c.eventFactory.NewIdentifyEvent(user))
}

// TrackEvent records a custom event with no associated data.
func (c *Client) TrackEvent(eventKey string, user lduser.User) {
	c.eventProcessor.SendEvent(c.eventFactory.NewCustomEvent(eventKey, user, ldvalue.Null(), false, 0))
}

// TrackData records a custom event carrying arbitrary JSON data.
func (c *Client) TrackData(eventKey string, user lduser.User, data ldvalue.Value) {
	c.eventProcessor.SendEvent(c.eventFactory.NewCustomEvent(eventKey, user, data, false, 0))
}

// TrackMetric records a custom event carrying both arbitrary JSON data and a numeric metric value.
func (c *Client) TrackMetric(eventKey string, user lduser.User, metricValue float64, data ldvalue.Value) {
	c.eventProcessor.SendEvent(c.eventFactory.NewCustomEvent(eventKey, user, data, true, metricValue))
}

// SecureModeHash computes the HMAC-SHA256 hash used by client-side SDKs running in secure mode,
// given the sdkKey this Client was constructed with and the user's key.
func (c *Client) SecureModeHash(sdkKey string, user lduser.User) string {
	return ldeval.SecureModeHash(sdkKey, user.GetKey())
}

// Flush triggers delivery of any buffered analytics events without waiting for the next flush
// interval.
func (c *Client) Flush() {
	c.eventProcessor.Flush()
}

// Close shuts down the client, flushing any buffered events first.
func (c *Client) Close() error {
	return c.eventProcessor.Close()
}
