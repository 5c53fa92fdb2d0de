package models

import (
	"time"
)

type UserRole string

const (
	RoleAdmin   UserRole = "admin"   // platform administrator
	RoleCreator UserRole = "creator" // podcast publisher
	RoleUser    UserRole = "user"    // listener
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleCreator, RoleUser:
		return true
	}
	return false
}

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
	ThemeAuto  Theme = "auto"
)

type Profile struct {
	FirstName   string     `json:"firstName,omitempty" bson:"firstName,omitempty"`
	LastName    string     `json:"lastName,omitempty" bson:"lastName,omitempty"`
	Bio         string     `json:"bio,omitempty" bson:"bio,omitempty"`
	Avatar      string     `json:"avatar,omitempty" bson:"avatar,omitempty"`
	Website     string     `json:"website,omitempty" bson:"website,omitempty"`
	Location    string     `json:"location,omitempty" bson:"location,omitempty"`
	DateOfBirth *time.Time `json:"dateOfBirth,omitempty" bson:"dateOfBirth,omitempty"`
}

type Preferences struct {
	Theme              Theme  `json:"theme" bson:"theme"`
	Language           string `json:"language" bson:"language"`
	EmailNotifications bool   `json:"emailNotifications" bson:"emailNotifications"`
	PushNotifications  bool   `json:"pushNotifications" bson:"pushNotifications"`
}

func DefaultPreferences() Preferences {
	return Preferences{
		Theme:              ThemeAuto,
		Language:           "en",
		EmailNotifications: true,
		PushNotifications:  true,
	}
}

// User is an account. Following is stored, Followers is derived from other
// accounts' following sets when the store loads the user.
type User struct {
	ID          string      `json:"_id"`
	Username    string      `json:"username"`
	Email       string      `json:"email"`
	Password    string      `json:"-"`
	Role        UserRole    `json:"role"`
	Profile     Profile     `json:"profile"`
	Preferences Preferences `json:"preferences"`
	Following   []string    `json:"following"`
	Followers   []string    `json:"followers"`
	IsVerified  bool        `json:"isVerified"`
	IsActive    bool        `json:"isActive"`
	LastLoginAt *time.Time  `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// UserSummary is the populated form of a user reference.
type UserSummary struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username, Email: u.Email, Avatar: u.Profile.Avatar}
}

// ProfileUpdate carries a partial profile change; nil fields are left alone.
type ProfileUpdate struct {
	FirstName   *string
	LastName    *string
	Bio         *string
	Website     *string
	Location    *string
	DateOfBirth *time.Time
	Preferences *PreferencesUpdate
}

// PreferencesUpdate is the partial form of Preferences. Empty strings count
// as unset.
type PreferencesUpdate struct {
	Theme              *Theme
	Language           *string
	EmailNotifications *bool
	PushNotifications  *bool
}
