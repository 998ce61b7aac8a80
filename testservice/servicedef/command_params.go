package servicedef

import (
	"github.com/launchdarkly/go-eval-engine/ldmodel"
	"github.com/launchdarkly/go-eval-engine/ldreason"
	"github.com/launchdarkly/go-eval-engine/ldvalue"
	"github.com/launchdarkly/go-eval-engine/lduser"
)

// Command names recognized by POST /clients/{id}. migrationVariation, migrationOperation, and
// getBigSegmentStoreStatus are accepted and answered with the fixed, simplest-correct responses
// described in DESIGN.md; their underlying subsystems (migrations, real big-segment polling) are
// out of scope for this module.
const (
	CommandEvaluateFlag             = "evaluate"
	CommandEvaluateAllFlags         = "evaluateAll"
	CommandIdentifyEvent            = "identifyEvent"
	CommandCustomEvent              = "customEvent"
	CommandFlushEvents              = "flushEvents"
	CommandSecureModeHash           = "secureModeHash"
	CommandContextBuild             = "contextBuild"
	CommandContextConvert           = "contextConvert"
	CommandGetBigSegmentStoreStatus = "getBigSegmentStoreStatus"
	CommandMigrationVariation       = "migrationVariation"
	CommandMigrationOperation       = "migrationOperation"
)

// ValueType selects which typed variation method a CommandEvaluateFlag call should use.
type ValueType string

// Recognized ValueType values.
const (
	ValueTypeBool   ValueType = "bool"
	ValueTypeInt    ValueType = "int"
	ValueTypeDouble ValueType = "double"
	ValueTypeString ValueType = "string"
	ValueTypeAny    ValueType = "any"
)

// CommandParams is the request body for POST /clients/{id}. Exactly one of the pointer fields is
// populated, selected by Command.
type CommandParams struct {
	Command        string                `json:"command"`
	Evaluate       *EvaluateFlagParams   `json:"evaluate,omitempty"`
	EvaluateAll    *EvaluateAllParams    `json:"evaluateAll,omitempty"`
	IdentifyEvent  *IdentifyEventParams  `json:"identifyEvent,omitempty"`
	CustomEvent    *CustomEventParams    `json:"customEvent,omitempty"`
	SecureModeHash *SecureModeHashParams `json:"secureModeHash,omitempty"`
	ContextBuild   *ContextBuildParams   `json:"contextBuild,omitempty"`
	ContextConvert *ContextConvertParams `json:"contextConvert,omitempty"`
}

// UserParams is the wire representation of a user sent by the harness. lduser.User has no JSON
// tags of its own (it is built only through lduser.NewUserBuilder), so every command below carries
// this flat shape instead and converts it with toUser.
type UserParams struct {
	Key       string                   `json:"key"`
	Secondary *string                  `json:"secondary,omitempty"`
	IP        *string                  `json:"ip,omitempty"`
	Country   *string                  `json:"country,omitempty"`
	Email     *string                  `json:"email,omitempty"`
	FirstName *string                  `json:"firstName,omitempty"`
	LastName  *string                  `json:"lastName,omitempty"`
	Avatar    *string                  `json:"avatar,omitempty"`
	Name      *string                  `json:"name,omitempty"`
	Anonymous *bool                    `json:"anonymous,omitempty"`
	Custom    map[string]ldvalue.Value `json:"custom,omitempty"`
	Private   []string                 `json:"privateAttributeNames,omitempty"`
}

// ToUser builds an lduser.User from its wire representation. Attributes marked private are
// chained through AsPrivateAttribute immediately after their setter, as the builder API requires.
func (p UserParams) ToUser() lduser.User {
	private := make(map[string]struct{}, len(p.Private))
	for _, attr := range p.Private {
		private[attr] = struct{}{}
	}

	builder := lduser.NewUserBuilder(p.Key)
	maybePrivate := func(name string, attr lduser.UserBuilderCanMakeAttributePrivate) {
		if _, ok := private[name]; ok {
			attr.AsPrivateAttribute()
		}
	}
	if p.Secondary != nil {
		maybePrivate(string(lduser.SecondaryKeyAttribute), builder.Secondary(*p.Secondary))
	}
	if p.IP != nil {
		maybePrivate(string(lduser.IPAttribute), builder.IP(*p.IP))
	}
	if p.Country != nil {
		maybePrivate(string(lduser.CountryAttribute), builder.Country(*p.Country))
	}
	if p.Email != nil {
		maybePrivate(string(lduser.EmailAttribute), builder.Email(*p.Email))
	}
	if p.FirstName != nil {
		maybePrivate(string(lduser.FirstNameAttribute), builder.FirstName(*p.FirstName))
	}
	if p.LastName != nil {
		maybePrivate(string(lduser.LastNameAttribute), builder.LastName(*p.LastName))
	}
	if p.Avatar != nil {
		maybePrivate(string(lduser.AvatarAttribute), builder.Avatar(*p.Avatar))
	}
	if p.Name != nil {
		maybePrivate(string(lduser.NameAttribute), builder.Name(*p.Name))
	}
	if p.Anonymous != nil {
		builder.Anonymous(*p.Anonymous)
	}
	for k, v := range p.Custom {
		maybePrivate(k, builder.Custom(k, v))
	}
	return builder.Build()
}

// EvaluateFlagParams is the request body for an "evaluate" command.
type EvaluateFlagParams struct {
	FlagKey      string        `json:"flagKey"`
	User         UserParams    `json:"user"`
	ValueType    ValueType     `json:"valueType"`
	DefaultValue ldvalue.Value `json:"defaultValue"`
	Detail       bool          `json:"detail"`
}

// EvaluateFlagResponse is the response body for an "evaluate" command.
type EvaluateFlagResponse struct {
	Value          ldvalue.Value              `json:"value"`
	VariationIndex *int                       `json:"variationIndex,omitempty"`
	Reason         *ldreason.EvaluationReason `json:"reason,omitempty"`
}

// EvaluateAllParams is the request body for an "evaluateAll" command.
type EvaluateAllParams struct {
	User UserParams `json:"user"`
}

// EvaluateAllResponse is the response body for an "evaluateAll" command.
type EvaluateAllResponse struct {
	State map[string]ldvalue.Value `json:"state"`
}

// IdentifyEventParams is the request body for an "identifyEvent" command.
type IdentifyEventParams struct {
	User UserParams `json:"user"`
}

// CustomEventParams is the request body for a "customEvent" command.
type CustomEventParams struct {
	EventKey    string        `json:"eventKey"`
	User        UserParams    `json:"user"`
	Data        ldvalue.Value `json:"data,omitempty"`
	MetricValue *float64      `json:"metricValue,omitempty"`
}

// SecureModeHashParams is the request body for a "secureModeHash" command.
type SecureModeHashParams struct {
	User UserParams `json:"user"`
}

// SecureModeHashResponse is the response body for a "secureModeHash" command.
type SecureModeHashResponse struct {
	Result string `json:"result"`
}

// ContextBuildParams is the request body for a "contextBuild" command: build a user from its
// component attributes and serialize it, so the harness can check the SDK's wire representation
// without needing its own copy of the user model.
type ContextBuildParams struct {
	Key       string                   `json:"key"`
	Anonymous *bool                    `json:"anonymous,omitempty"`
	Custom    map[string]ldvalue.Value `json:"custom,omitempty"`
}

// ContextBuildResponse is the response body for a "contextBuild" or "contextConvert" command.
// Exactly one of Output or Error is populated; a build/parse failure is reported through Error
// rather than an HTTP error status, since malformed input is an expected test case.
type ContextBuildResponse struct {
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

// ContextConvertParams is the request body for a "contextConvert" command: round-trip a
// JSON-encoded user through lduser.User to check that the SDK's user model stays canonical.
type ContextConvertParams struct {
	Input string `json:"input"`
}

// BigSegmentStoreStatusResponse is the response body for a "getBigSegmentStoreStatus" command.
type BigSegmentStoreStatusResponse struct {
	Available bool `json:"available"`
	Stale     bool `json:"stale"`
}

// InitialDataParams seeds a client's data store at creation time. The real contract-test harness
// configures flag data through a stub polling/streaming endpoint; since that data-source loop is
// out of scope here (see DESIGN.md), CreateInstanceParams carries the flag/segment data directly
// instead.
type InitialDataParams struct {
	Flags    map[string]ldmodel.FeatureFlag `json:"flags,omitempty"`
	Segments map[string]ldmodel.Segment     `json:"segments,omitempty"`
}
