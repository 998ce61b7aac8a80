package testservice

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/launchdarkly/go-eval-engine/ldclient"
	"github.com/launchdarkly/go-eval-engine/ldlog"
	"github.com/launchdarkly/go-eval-engine/ldmodel"
	"github.com/launchdarkly/go-eval-engine/ldreason"
	"github.com/launchdarkly/go-eval-engine/ldvalue"
	"github.com/launchdarkly/go-eval-engine/lduser"
	"github.com/launchdarkly/go-eval-engine/testservice/servicedef"
)

// SDKClientEntity wraps one ldclient.Client instance created in response to a POST / from the
// contract-test harness, plus a logger scoped to that instance's tag.
type SDKClientEntity struct {
	sdk    *ldclient.Client
	logger *log.Logger
}

// NewSDKClientEntity creates and configures a Client from the harness's requested configuration.
func NewSDKClientEntity(params servicedef.CreateInstanceParams) (*SDKClientEntity, error) {
	c := &SDKClientEntity{}
	c.logger = log.New(os.Stdout, fmt.Sprintf("[%s]: ", params.Tag),
		log.Ldate|log.Ltime|log.Lmicroseconds|log.Lmsgprefix)
	c.logger.Printf("Starting SDK client with configuration: %s", asJSON(params))

	sdkLog := ldlog.NewDefaultLoggers()
	sdkLog.SetBaseLogger(c.logger)
	sdkLog.SetPrefix("[sdklog]")
	sdkLog.SetMinLevel(ldlog.Debug)

	options := []ldclient.Option{ldclient.WithLoggers(sdkLog)}
	if params.Configuration.Events == nil {
		options = append(options, ldclient.WithEventsDisabled())
	}

	sdk := ldclient.New(params.Configuration.Credential, options...)

	if params.Configuration.InitialData != nil && sdk.Store() != nil {
		for _, flag := range params.Configuration.InitialData.Flags {
			sdk.Store().UpsertFeatureFlag(flag)
		}
		for _, segment := range params.Configuration.InitialData.Segments {
			sdk.Store().UpsertSegment(segment)
		}
	}

	c.sdk = sdk
	return c, nil
}

// Close shuts down the wrapped client and silences its logger.
func (c *SDKClientEntity) Close() {
	_ = c.sdk.Close()
	c.logger.Println("Test ended")
	c.logger.SetOutput(io.Discard)
}

// DoCommand dispatches one POST /clients/{id} command to the wrapped client.
func (c *SDKClientEntity) DoCommand(params servicedef.CommandParams) (interface{}, error) {
	c.logger.Printf("Test service sent command: %s", asJSON(params))
	switch params.Command {
	case servicedef.CommandEvaluateFlag:
		return c.evaluateFlag(*params.Evaluate)
	case servicedef.CommandEvaluateAllFlags:
		return c.evaluateAllFlags(*params.EvaluateAll)
	case servicedef.CommandIdentifyEvent:
		c.sdk.Identify(params.IdentifyEvent.User.ToUser())
		return nil, nil
	case servicedef.CommandCustomEvent:
		user := params.CustomEvent.User.ToUser()
		eventKey := params.CustomEvent.EventKey
		switch {
		case params.CustomEvent.MetricValue != nil:
			c.sdk.TrackMetric(eventKey, user, *params.CustomEvent.MetricValue, params.CustomEvent.Data)
		case params.CustomEvent.Data.IsDefined():
			c.sdk.TrackData(eventKey, user, params.CustomEvent.Data)
		default:
			c.sdk.TrackEvent(eventKey, user)
		}
		return nil, nil
	case servicedef.CommandFlushEvents:
		c.sdk.Flush()
		return nil, nil
	case servicedef.CommandGetBigSegmentStoreStatus:
		// No real big-segment polling subsystem exists in this module; the harness only checks
		// that the command is answered, so an always-available status is reported.
		return servicedef.BigSegmentStoreStatusResponse{Available: true, Stale: false}, nil
	case servicedef.CommandContextBuild:
		return c.contextBuild(*params.ContextBuild), nil
	case servicedef.CommandContextConvert:
		return c.contextConvert(*params.ContextConvert), nil
	case servicedef.CommandSecureModeHash:
		hash := c.sdk.SecureModeHash(params.SecureModeHash.User.Key, params.SecureModeHash.User.ToUser())
		return servicedef.SecureModeHashResponse{Result: hash}, nil
	case servicedef.CommandMigrationVariation, servicedef.CommandMigrationOperation:
		// Migrations have no corresponding subsystem in this module (see DESIGN.md); these
		// commands exist only so the harness's capability probe doesn't fail outright.
		return nil, BadRequestError{Message: fmt.Sprintf("command %q is not supported", params.Command)}
	default:
		return nil, BadRequestError{Message: fmt.Sprintf("unknown command %q", params.Command)}
	}
}

func (c *SDKClientEntity) evaluateFlag(p servicedef.EvaluateFlagParams) (*servicedef.EvaluateFlagResponse, error) {
	user := p.User.ToUser()
	var result ldreason.EvaluationDetail
	if p.Detail {
		switch p.ValueType {
		case servicedef.ValueTypeBool:
			_, result = c.sdk.BoolVariationDetail(p.FlagKey, user, p.DefaultValue.BoolValue())
		case servicedef.ValueTypeInt:
			_, result = c.sdk.IntVariationDetail(p.FlagKey, user, p.DefaultValue.IntValue())
		case servicedef.ValueTypeDouble:
			_, result = c.sdk.Float64VariationDetail(p.FlagKey, user, p.DefaultValue.Float64Value())
		case servicedef.ValueTypeString:
			_, result = c.sdk.StringVariationDetail(p.FlagKey, user, p.DefaultValue.StringValue())
		default:
			_, result = c.sdk.JSONVariationDetail(p.FlagKey, user, p.DefaultValue)
		}
	} else {
		switch p.ValueType {
		case servicedef.ValueTypeBool:
			result.Value = ldvalue.Bool(c.sdk.BoolVariation(p.FlagKey, user, p.DefaultValue.BoolValue()))
		case servicedef.ValueTypeInt:
			result.Value = ldvalue.Int(c.sdk.IntVariation(p.FlagKey, user, p.DefaultValue.IntValue()))
		case servicedef.ValueTypeDouble:
			result.Value = ldvalue.Float64(c.sdk.Float64Variation(p.FlagKey, user, p.DefaultValue.Float64Value()))
		case servicedef.ValueTypeString:
			result.Value = ldvalue.String(c.sdk.StringVariation(p.FlagKey, user, p.DefaultValue.StringValue()))
		default:
			result.Value = c.sdk.JSONVariation(p.FlagKey, user, p.DefaultValue)
		}
	}
	rep := &servicedef.EvaluateFlagResponse{Value: result.Value}
	if result.VariationIndex >= 0 {
		index := result.VariationIndex
		rep.VariationIndex = &index
	}
	if p.Detail {
		rep.Reason = &result.Reason
	}
	return rep, nil
}

func (c *SDKClientEntity) evaluateAllFlags(p servicedef.EvaluateAllParams) (*servicedef.EvaluateAllResponse, error) {
	user := p.User.ToUser()
	var flags map[string]ldmodel.FeatureFlag
	if store := c.sdk.Store(); store != nil {
		flags = store.AllFlags()
	}
	state := c.sdk.AllFlagsState(user, flags)
	return &servicedef.EvaluateAllResponse{State: state}, nil
}

func (c *SDKClientEntity) contextBuild(p servicedef.ContextBuildParams) *servicedef.ContextBuildResponse {
	builder := lduser.NewUserBuilder(p.Key)
	if p.Anonymous != nil {
		builder.Anonymous(*p.Anonymous)
	}
	for k, v := range p.Custom {
		builder.Custom(k, v)
	}
	user := builder.Build()
	data, err := json.Marshal(userToParams(user))
	if err != nil {
		return &servicedef.ContextBuildResponse{Error: "marshaling failed: " + err.Error()}
	}
	return &servicedef.ContextBuildResponse{Output: string(data)}
}

func (c *SDKClientEntity) contextConvert(p servicedef.ContextConvertParams) *servicedef.ContextBuildResponse {
	var wire servicedef.UserParams
	if err := json.Unmarshal([]byte(p.Input), &wire); err != nil {
		return &servicedef.ContextBuildResponse{Error: "unmarshaling failed: " + err.Error()}
	}
	data, err := json.Marshal(wire)
	if err != nil {
		return &servicedef.ContextBuildResponse{Error: "re-marshaling failed: " + err.Error()}
	}
	return &servicedef.ContextBuildResponse{Output: string(data)}
}

func userToParams(user lduser.User) servicedef.UserParams {
	p := servicedef.UserParams{Key: user.GetKey()}
	if v, ok := user.GetSecondaryKey().Get(); ok {
		p.Secondary = &v
	}
	if v, ok := user.GetIP().Get(); ok {
		p.IP = &v
	}
	if v, ok := user.GetCountry().Get(); ok {
		p.Country = &v
	}
	if v, ok := user.GetEmail().Get(); ok {
		p.Email = &v
	}
	if v, ok := user.GetFirstName().Get(); ok {
		p.FirstName = &v
	}
	if v, ok := user.GetLastName().Get(); ok {
		p.LastName = &v
	}
	if v, ok := user.GetAvatar().Get(); ok {
		p.Avatar = &v
	}
	if v, ok := user.GetName().Get(); ok {
		p.Name = &v
	}
	if anon, set := user.GetAnonymousOptional(); set {
		p.Anonymous = &anon
	}
	custom := user.GetAllCustom()
	if keys := custom.Keys(); len(keys) > 0 {
		p.Custom = make(map[string]ldvalue.Value, len(keys))
		for _, k := range keys {
			p.Custom[k] = custom.GetByKey(k)
		}
	}
	return p
}

func asJSON(value interface{}) string {
	ret, _ := json.Marshal(value)
	return string(ret)
}
