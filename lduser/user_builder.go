package lduser

import (
	"github.com/launchdarkly/go-eval-engine/ldvalue"
)

// UserBuilder is a mutable builder for constructing a User, following the standard LaunchDarkly
// builder pattern: each setter returns the builder so calls can be chained, ending in Build().
type UserBuilder interface {
	Key(value string) UserBuilder
	Secondary(value string) UserBuilderCanMakeAttributePrivate
	IP(value string) UserBuilderCanMakeAttributePrivate
	Country(value string) UserBuilderCanMakeAttributePrivate
	Email(value string) UserBuilderCanMakeAttributePrivate
	FirstName(value string) UserBuilderCanMakeAttributePrivate
	LastName(value string) UserBuilderCanMakeAttributePrivate
	Avatar(value string) UserBuilderCanMakeAttributePrivate
	Name(value string) UserBuilderCanMakeAttributePrivate
	Anonymous(value bool) UserBuilder
	Custom(name string, value ldvalue.Value) UserBuilderCanMakeAttributePrivate
	Build() User
}

// UserBuilderCanMakeAttributePrivate is returned by setters for attributes that can be marked
// private; it embeds UserBuilder so the chain can continue, and adds AsPrivateAttribute.
type UserBuilderCanMakeAttributePrivate interface {
	UserBuilder
	AsPrivateAttribute() UserBuilder
}

type userBuilderImpl struct {
	user             User
	lastAttribute    UserAttribute
	customProperties map[string]ldvalue.Value
}

// NewUserBuilder creates a UserBuilder, initialized with the given key.
func NewUserBuilder(key string) UserBuilder {
	return &userBuilderImpl{user: User{key: key}}
}

// NewUserBuilderFromUser creates a UserBuilder initialized from an existing User's attributes.
func NewUserBuilderFromUser(fromUser User) UserBuilder {
	b := &userBuilderImpl{user: fromUser}
	if len(fromUser.privateAttributes) > 0 {
		b.user.privateAttributes = make(map[UserAttribute]struct{}, len(fromUser.privateAttributes))
		for k := range fromUser.privateAttributes {
			b.user.privateAttributes[k] = struct{}{}
		}
	}
	return b
}

func (b *userBuilderImpl) Key(value string) UserBuilder {
	b.user.key = value
	return b
}

func (b *userBuilderImpl) Secondary(value string) UserBuilderCanMakeAttributePrivate {
	b.user.secondary = ldvalue.NewOptionalString(value)
	b.lastAttribute = SecondaryKeyAttribute
	return b
}

func (b *userBuilderImpl) IP(value string) UserBuilderCanMakeAttributePrivate {
	b.user.ip = ldvalue.NewOptionalString(value)
	b.lastAttribute = IPAttribute
	return b
}

func (b *userBuilderImpl) Country(value string) UserBuilderCanMakeAttributePrivate {
	b.user.country = ldvalue.NewOptionalString(value)
	b.lastAttribute = CountryAttribute
	return b
}

func (b *userBuilderImpl) Email(value string) UserBuilderCanMakeAttributePrivate {
	b.user.email = ldvalue.NewOptionalString(value)
	b.lastAttribute = EmailAttribute
	return b
}

func (b *userBuilderImpl) FirstName(value string) UserBuilderCanMakeAttributePrivate {
	b.user.firstName = ldvalue.NewOptionalString(value)
	b.lastAttribute = FirstNameAttribute
	return b
}

func (b *userBuilderImpl) LastName(value string) UserBuilderCanMakeAttributePrivate {
	b.user.lastName = ldvalue.NewOptionalString(value)
	b.lastAttribute = LastNameAttribute
	return b
}

func (b *userBuilderImpl) Avatar(value string) UserBuilderCanMakeAttributePrivate {
	b.user.avatar = ldvalue.NewOptionalString(value)
	b.lastAttribute = AvatarAttribute
	return b
}

func (b *userBuilderImpl) Name(value string) UserBuilderCanMakeAttributePrivate {
	b.user.name = ldvalue.NewOptionalString(value)
	b.lastAttribute = NameAttribute
	return b
}

func (b *userBuilderImpl) Anonymous(value bool) UserBuilder {
	b.user.anonymous = ldvalue.Bool(value)
	return b
}

func (b *userBuilderImpl) Custom(name string, value ldvalue.Value) UserBuilderCanMakeAttributePrivate {
	if b.customProperties == nil {
		b.customProperties = make(map[string]ldvalue.Value)
	}
	b.customProperties[name] = value
	b.lastAttribute = UserAttribute(name)
	return b
}

func (b *userBuilderImpl) AsPrivateAttribute() UserBuilder {
	if b.user.privateAttributes == nil {
		b.user.privateAttributes = make(map[UserAttribute]struct{})
	}
	b.user.privateAttributes[b.lastAttribute] = struct{}{}
	return b
}

func (b *userBuilderImpl) Build() User {
	u := b.user
	if len(b.customProperties) > 0 {
		obj := ldvalue.ObjectBuild()
		for k, v := range b.customProperties {
			obj.Set(k, v)
		}
		u.custom = obj.Build()
	}
	if len(u.privateAttributes) > 0 {
		copied := make(map[UserAttribute]struct{}, len(u.privateAttributes))
		for k := range u.privateAttributes {
			copied[k] = struct{}{}
		}
		u.privateAttributes = copied
	}
	return u
}
