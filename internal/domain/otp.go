package domain

import "time"

// OTPRecord is the one active code for a contact address.
// PK: contact_address. ExpiresTTL is a Unix timestamp used as DynamoDB TTL and
// is set a while after ExpiresAt so that expired records still answer Expired.
type OTPRecord struct {
	ContactAddress string    `json:"contact_address" dynamodbav:"contact_address"`
	CodeHash       string    `json:"-" dynamodbav:"code_hash"`
	IssuedAt       time.Time `json:"issued_at" dynamodbav:"issued_at"`
	ExpiresAt      time.Time `json:"expires_at" dynamodbav:"expires_at"`
	Consumed       bool      `json:"consumed" dynamodbav:"consumed"`
	Attempts       int       `json:"attempts" dynamodbav:"attempts"`
	Revision       int64     `json:"-" dynamodbav:"revision"`
	ExpiresTTL     int64     `json:"-" dynamodbav:"expires_ttl"`
}

// Expired reports whether the record can no longer be verified at now.
func (r *OTPRecord) Expired(now time.Time) bool { return now.After(r.ExpiresAt) }

// ProvisioningToken is the single-use credential exchanged for a verified OTP.
// PK: token.
type ProvisioningToken struct {
	Token          string    `json:"token" dynamodbav:"token"`
	ContactAddress string    `json:"contact_address" dynamodbav:"contact_address"`
	IssuedAt       time.Time `json:"issued_at" dynamodbav:"issued_at"`
	ExpiresAt      time.Time `json:"expires_at" dynamodbav:"expires_at"`
	Consumed       bool      `json:"consumed" dynamodbav:"consumed"`
	ExpiresTTL     int64     `json:"-" dynamodbav:"expires_ttl"`
}

func (t *ProvisioningToken) Expired(now time.Time) bool { return now.After(t.ExpiresAt) }

type RequestCodeRequest struct {
	ContactAddress string `json:"contact_address" validate:"required,max=254"`
}

type VerifyCodeRequest struct {
	ContactAddress string `json:"contact_address" validate:"required,max=254"`
	Code           string `json:"code" validate:"required,len=6,numeric"`
}

// CodeIssued acknowledges a code request. The code itself never leaves the server.
type CodeIssued struct {
	ContactAddress string    `json:"contact_address"`
	ExpiresAt      time.Time `json:"expires_at"`
}
