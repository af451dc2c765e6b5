package domain

import (
	"strings"
	"time"
)

// Account is the registered user. The contact address is the one proven by
// OTP at registration and is unique across accounts, as is the username.
type Account struct {
	AccountID      string      `json:"id" dynamodbav:"account_id"`
	ContactAddress string      `json:"contact_address" dynamodbav:"contact_address"`
	Username       string      `json:"username" dynamodbav:"username"`
	PasswordHash   string      `json:"-" dynamodbav:"password_hash"`
	Profile        Profile     `json:"profile" dynamodbav:"profile"`
	Mood           MoodState   `json:"mood" dynamodbav:"mood"`
	Wallet         WalletState `json:"wallet" dynamodbav:"wallet"`
	CreatedAt      time.Time   `json:"created" dynamodbav:"created_at"`
	UpdatedAt      time.Time   `json:"updated" dynamodbav:"updated_at"`
}

// DefaultLanguage is the interface language of a new account.
const DefaultLanguage = "en"

// Profile holds the free-form fields collected at registration plus the
// owner's app preferences.
type Profile struct {
	FullName             string `json:"full_name" dynamodbav:"full_name"`
	Nickname             string `json:"nickname" dynamodbav:"nickname"`
	Phone                string `json:"phone" dynamodbav:"phone"`
	Age                  *int   `json:"age" dynamodbav:"age"`
	Gender               string `json:"gender" dynamodbav:"gender"`
	NotificationsEnabled bool   `json:"notifications_enabled" dynamodbav:"notifications_enabled"`
	PrefersDarkMode      bool   `json:"prefers_dark_mode" dynamodbav:"prefers_dark_mode"`
	Language             string `json:"language" dynamodbav:"language"`
}

// DisplayName returns the nickname, then the full name, then the username,
// whichever is first non-blank.
func (a *Account) DisplayName() string {
	if n := strings.TrimSpace(a.Profile.Nickname); n != "" {
		return n
	}
	if n := strings.TrimSpace(a.Profile.FullName); n != "" {
		return n
	}
	return a.Username
}

type RegisterRequest struct {
	Token    string  `json:"otp_token" validate:"required"`
	Username string  `json:"username" validate:"required,alphanum,max=150"`
	Password string  `json:"password" validate:"required,min=6,max=72"`
	FullName string  `json:"full_name" validate:"max=150"`
	Nickname string  `json:"nickname" validate:"max=80"`
	Phone    string  `json:"phone" validate:"max=32"`
	Age      *int    `json:"age" validate:"omitempty,min=0,max=150"`
	Gender   string  `json:"gender" validate:"max=32"`
	Timezone *string `json:"timezone" validate:"omitempty,timezone"`
}

type UpdateSettingsRequest struct {
	FullName             *string `json:"full_name" validate:"omitempty,max=150"`
	Nickname             *string `json:"nickname" validate:"omitempty,max=80"`
	Phone                *string `json:"phone" validate:"omitempty,max=32"`
	Age                  *int    `json:"age" validate:"omitempty,min=0,max=150"`
	Gender               *string `json:"gender" validate:"omitempty,max=32"`
	Timezone             *string `json:"timezone" validate:"omitempty,timezone"`
	NotificationsEnabled *bool   `json:"notifications_enabled"`
	PrefersDarkMode      *bool   `json:"prefers_dark_mode"`
	Language             *string `json:"language" validate:"omitempty,max=16,bcp47_language_tag"`
}

// AccountView is the account as returned to its owner.
type AccountView struct {
	Account
	DisplayName string `json:"display_name"`
}

func (a *Account) View() AccountView {
	return AccountView{Account: *a, DisplayName: a.DisplayName()}
}

// LoginRequest accepts a username or a registered contact address as Identifier.
type LoginRequest struct {
	Identifier string `json:"username" validate:"required,max=254"`
	Password   string `json:"password" validate:"required,max=72"`
}

type AuthResult struct {
	Bearer  string      `json:"bearer"`
	Account AccountView `json:"account"`
}
