// Package lduser defines the User type used as the evaluation context throughout this module.
package lduser

import (
	"github.com/launchdarkly/go-eval-engine/ldvalue"
)

// UserAttribute is a string type representing the name of a user attribute.
//
// Constants like KeyAttribute describe all of the built-in attributes; any other string may be
// cast to UserAttribute when referencing a custom attribute name.
type UserAttribute string

const (
	// KeyAttribute is the standard attribute name corresponding to User.GetKey().
	KeyAttribute UserAttribute = "key"
	// SecondaryKeyAttribute is the standard attribute name corresponding to User.GetSecondaryKey().
	SecondaryKeyAttribute UserAttribute = "secondary"
	// IPAttribute is the standard attribute name corresponding to User.GetIP().
	IPAttribute UserAttribute = "ip"
	// CountryAttribute is the standard attribute name corresponding to User.GetCountry().
	CountryAttribute UserAttribute = "country"
	// EmailAttribute is the standard attribute name corresponding to User.GetEmail().
	EmailAttribute UserAttribute = "email"
	// FirstNameAttribute is the standard attribute name corresponding to User.GetFirstName().
	FirstNameAttribute UserAttribute = "firstName"
	// LastNameAttribute is the standard attribute name corresponding to User.GetLastName().
	LastNameAttribute UserAttribute = "lastName"
	// AvatarAttribute is the standard attribute name corresponding to User.GetAvatar().
	AvatarAttribute UserAttribute = "avatar"
	// NameAttribute is the standard attribute name corresponding to User.GetName().
	NameAttribute UserAttribute = "name"
	// AnonymousAttribute is the standard attribute name corresponding to User.GetAnonymous().
	AnonymousAttribute UserAttribute = "anonymous"
)

// User contains specific attributes of a user browsing a site. The only mandatory attribute is
// Key, which must uniquely identify each user; for authenticated users this may be a username or
// e-mail address, and for anonymous users it might be a session ID.
//
// Besides the key, a User supports built-in interpreted attributes (IP, Country, and so on) and
// custom attributes. Custom attributes can be referenced from flag targeting rules; for instance,
// a "plan" attribute could be used to launch a feature to every user on an enterprise plan.
//
// User fields are immutable and accessed only through getter methods. Construct a User with
// NewUser, NewAnonymousUser, or the builder pattern via NewUserBuilder.
type User struct {
	key               string
	secondary         ldvalue.OptionalString
	ip                ldvalue.OptionalString
	country           ldvalue.OptionalString
	email             ldvalue.OptionalString
	firstName         ldvalue.OptionalString
	lastName          ldvalue.OptionalString
	avatar            ldvalue.OptionalString
	name              ldvalue.OptionalString
	anonymous         ldvalue.Value
	custom            ldvalue.Value
	privateAttributes map[UserAttribute]struct{}
}

// NewUser creates a User with only a key set.
func NewUser(key string) User {
	return User{key: key}
}

// NewAnonymousUser creates an anonymous User with only a key set.
func NewAnonymousUser(key string) User {
	return User{key: key, anonymous: ldvalue.Bool(true)}
}

// GetAttribute returns one of the user's attributes.
//
// The attribute parameter specifies which attribute to get. To get a custom attribute rather than
// one of the built-in ones identified by the UserAttribute constants, cast any string to the
// UserAttribute type.
//
// If no value has been set for this attribute, GetAttribute returns ldvalue.Null(). The special
// attribute "secondary" is never matchable by GetAttribute because it is not exposed to clause
// matching, even though it does affect bucketing.
func (u User) GetAttribute(attribute UserAttribute) ldvalue.Value {
	switch attribute {
	case KeyAttribute:
		return ldvalue.String(u.key)
	case SecondaryKeyAttribute:
		return ldvalue.Null()
	case IPAttribute:
		return u.ip.AsValue()
	case CountryAttribute:
		return u.country.AsValue()
	case EmailAttribute:
		return u.email.AsValue()
	case FirstNameAttribute:
		return u.firstName.AsValue()
	case LastNameAttribute:
		return u.lastName.AsValue()
	case AvatarAttribute:
		return u.avatar.AsValue()
	case NameAttribute:
		return u.name.AsValue()
	case AnonymousAttribute:
		return u.anonymous
	default:
		value, _ := u.GetCustom(string(attribute))
		return value
	}
}

// GetKey gets the unique key of the user.
func (u User) GetKey() string {
	return u.key
}

// GetSecondaryKey returns the secondary key of the user, if any.
//
// This affects feature flag targeting: if bucketing is done by a specific attribute, the
// secondary key (if set) is appended to the bucketing hash input to further distinguish between
// users who are otherwise identical according to that attribute.
func (u User) GetSecondaryKey() ldvalue.OptionalString {
	return u.secondary
}

// GetIP returns the IP address attribute of the user, if any.
func (u User) GetIP() ldvalue.OptionalString {
	return u.ip
}

// GetCountry returns the country attribute of the user, if any.
func (u User) GetCountry() ldvalue.OptionalString {
	return u.country
}

// GetEmail returns the email address attribute of the user, if any.
func (u User) GetEmail() ldvalue.OptionalString {
	return u.email
}

// GetFirstName returns the first name attribute of the user, if any.
func (u User) GetFirstName() ldvalue.OptionalString {
	return u.firstName
}

// GetLastName returns the last name attribute of the user, if any.
func (u User) GetLastName() ldvalue.OptionalString {
	return u.lastName
}

// GetAvatar returns the avatar URL attribute of the user, if any.
func (u User) GetAvatar() ldvalue.OptionalString {
	return u.avatar
}

// GetName returns the full name attribute of the user, if any.
func (u User) GetName() ldvalue.OptionalString {
	return u.name
}

// GetAnonymous returns the anonymous attribute of the user.
func (u User) GetAnonymous() bool {
	return u.anonymous.BoolValue()
}

// GetAnonymousOptional returns the anonymous attribute along with whether it was set at all.
func (u User) GetAnonymousOptional() (bool, bool) {
	return u.anonymous.BoolValue(), !u.anonymous.IsNull()
}

// GetCustom returns a custom attribute of the user by name. The boolean return value indicates
// whether any value was set for this attribute.
func (u User) GetCustom(attribute string) (ldvalue.Value, bool) {
	return u.custom.TryGetByKey(attribute)
}

// GetAllCustom returns all of the user's custom attributes, as an object Value (or Null() if
// there are none).
func (u User) GetAllCustom() ldvalue.Value {
	return u.custom
}

// IsPrivateAttribute tests whether the given attribute is private for this user.
func (u User) IsPrivateAttribute(attribute UserAttribute) bool {
	_, ok := u.privateAttributes[attribute]
	return ok
}

// HasPrivateAttributes returns true if any attributes were marked private for this user.
func (u User) HasPrivateAttributes() bool {
	return len(u.privateAttributes) > 0
}

// Equal tests whether two users have equal attributes.
func (u User) Equal(other User) bool {
	if u.key != other.key ||
		u.secondary != other.secondary ||
		u.ip != other.ip ||
		u.country != other.country ||
		u.email != other.email ||
		u.firstName != other.firstName ||
		u.lastName != other.lastName ||
		u.avatar != other.avatar ||
		u.name != other.name ||
		!u.anonymous.Equal(other.anonymous) {
		return false
	}
	if !u.custom.Equal(other.custom) {
		return false
	}
	if len(u.privateAttributes) != len(other.privateAttributes) {
		return false
	}
	for k := range u.privateAttributes {
		if _, ok := other.privateAttributes[k]; !ok {
			return false
		}
	}
	return true
}
