package ldevents

import (
	"encoding/json"

	"github.com/launchdarkly/go-eval-engine/ldlog"
	"github.com/launchdarkly/go-eval-engine/lduser"
	"github.com/launchdarkly/go-eval-engine/ldvalue"
)

type filteredUser struct {
	Key          string         `json:"key"`
	Secondary    *string        `json:"secondary,omitempty"`
	IP           *string        `json:"ip,omitempty"`
	Country      *string        `json:"country,omitempty"`
	Email        *string        `json:"email,omitempty"`
	FirstName    *string        `json:"firstName,omitempty"`
	LastName     *string        `json:"lastName,omitempty"`
	Avatar       *string        `json:"avatar,omitempty"`
	Name         *string        `json:"name,omitempty"`
	Anonymous    *bool          `json:"anonymous,omitempty"`
	Custom       *ldvalue.Value `json:"custom,omitempty"`
	PrivateAttrs []string       `json:"privateAttrs,omitempty"`
}

type serializableUser struct {
	filteredUser filteredUser
	filter       *userFilter
}

type userFilter struct {
	allAttributesPrivate    bool
	globalPrivateAttributes []lduser.UserAttribute
	loggers                 ldlog.Loggers
	logUserKeyInErrors      bool
}

func newUserFilter(config EventsConfiguration) userFilter {
	return userFilter{
		allAttributesPrivate:    config.AllAttributesPrivate,
		globalPrivateAttributes: config.PrivateAttributeNames,
		loggers:                 config.Loggers,
		logUserKeyInErrors:      config.LogUserKeyInErrors,
	}
}

const userSerializationErrorMessage = "An error occurred while processing custom attributes for %s. If this" +
	" is a concurrent modification error, check that you are not modifying custom attributes in a User after" +
	" you have evaluated a flag with that User. The custom attributes for this user have been dropped from" +
	" analytics data. Error: %s"

// scrubUser returns a version of the user data suitable for JSON serialization in event data. If
// neither the configuration nor the user specifies any private attributes, this is the same as
// the original user; otherwise it is a copy with the private attributes removed and their names
// recorded in PrivateAttrs.
//
// This also guards against a concurrent-modification panic on the user's custom attributes map:
// we can't prevent another goroutine from mutating it while we iterate, but we can recover from
// the resulting panic and log the problem, dropping the custom attributes for this event.
func (uf *userFilter) scrubUser(user lduser.User) (ret *serializableUser) {
	ret = &serializableUser{}
	ret.filter = uf

	ret.filteredUser.Key = user.GetKey()
	if anon, hasAnon := user.GetAnonymousOptional(); hasAnon {
		ret.filteredUser.Anonymous = &anon
	}

	if !user.HasPrivateAttributes() && len(uf.globalPrivateAttributes) == 0 && !uf.allAttributesPrivate {
		ret.filteredUser.Secondary = user.GetSecondaryKey().AsPointer()
		ret.filteredUser.IP = user.GetIP().AsPointer()
		ret.filteredUser.Country = user.GetCountry().AsPointer()
		ret.filteredUser.Email = user.GetEmail().AsPointer()
		ret.filteredUser.FirstName = user.GetFirstName().AsPointer()
		ret.filteredUser.LastName = user.GetLastName().AsPointer()
		ret.filteredUser.Avatar = user.GetAvatar().AsPointer()
		ret.filteredUser.Name = user.GetName().AsPointer()
		ret.filteredUser.Custom = user.GetAllCustom().AsPointer()
		return
	}

	privateAttrs := []string{}
	isPrivate := func(attrName lduser.UserAttribute) bool {
		if uf.allAttributesPrivate || user.IsPrivateAttribute(attrName) {
			return true
		}
		for _, a := range uf.globalPrivateAttributes {
			if a == attrName {
				return true
			}
		}
		return false
	}
	maybeFilter := func(attr lduser.UserAttribute, getter func(lduser.User) ldvalue.OptionalString) *string {
		value := getter(user)
		if value.IsDefined() {
			if isPrivate(attr) {
				privateAttrs = append(privateAttrs, string(attr))
				return nil
			}
			return value.AsPointer()
		}
		return nil
	}
	ret.filteredUser.Secondary = maybeFilter(lduser.SecondaryKeyAttribute, lduser.User.GetSecondaryKey)
	ret.filteredUser.IP = maybeFilter(lduser.IPAttribute, lduser.User.GetIP)
	ret.filteredUser.Country = maybeFilter(lduser.CountryAttribute, lduser.User.GetCountry)
	ret.filteredUser.Email = maybeFilter(lduser.EmailAttribute, lduser.User.GetEmail)
	ret.filteredUser.FirstName = maybeFilter(lduser.FirstNameAttribute, lduser.User.GetFirstName)
	ret.filteredUser.LastName = maybeFilter(lduser.LastNameAttribute, lduser.User.GetLastName)
	ret.filteredUser.Avatar = maybeFilter(lduser.AvatarAttribute, lduser.User.GetAvatar)
	ret.filteredUser.Name = maybeFilter(lduser.NameAttribute, lduser.User.GetName)

	if !user.GetAllCustom().IsNull() {
		// Any panics from this point on (presumably due to concurrent modification of the custom
		// attributes map) are caught here, dropping the custom attributes for this event.
		defer func() {
			if r := recover(); r != nil {
				uf.loggers.Errorf(userSerializationErrorMessage, describeUserForErrorLog(user.GetKey(), uf.logUserKeyInErrors), r)
				ret.filteredUser.Custom = nil
			}
		}()
		filteredCustomBuilder := ldvalue.ObjectBuild()
		anyRetained := false
		user.GetAllCustom().Enumerate(func(_ int, key string, v ldvalue.Value) bool {
			if isPrivate(lduser.UserAttribute(key)) {
				privateAttrs = append(privateAttrs, key)
				return true
			}
			filteredCustomBuilder.Set(key, v)
			anyRetained = true
			return true
		})
		if anyRetained {
			filteredCustom := filteredCustomBuilder.Build()
			ret.filteredUser.Custom = filteredCustom.AsPointer()
		}
	}

	ret.filteredUser.PrivateAttrs = privateAttrs
	return
}

func (u serializableUser) MarshalJSON() (output []byte, err error) {
	marshalUserWithoutCustomAttrs := func(err interface{}) ([]byte, error) {
		if me, ok := err.(*json.MarshalerError); ok {
			err = me.Err
		}
		u.filter.loggers.Errorf(
			userSerializationErrorMessage,
			describeUserForErrorLog(u.filteredUser.Key, u.filter.logUserKeyInErrors),
			err,
		)
		u.filteredUser.Custom = nil
		return json.Marshal(u.filteredUser)
	}
	defer func() {
		if r := recover(); r != nil {
			output, err = marshalUserWithoutCustomAttrs(r)
		}
	}()
	output, err = json.Marshal(u.filteredUser)
	if err != nil {
		output, err = marshalUserWithoutCustomAttrs(err)
	}
	return
}
