// Package model contains the credential domain types.
package model

import "time"

// CredentialRecord is the in-memory authentication record. PasswordDigest is
// empty until a digest has been computed for the current Password; HasDigest
// distinguishes "not computed" from a real value.
type CredentialRecord struct {
	Username         string
	Password         string
	PasswordDigest   string
	HasDigest        bool
	Enabled          bool
	SessionDuration  time.Duration
	MaxLoginAttempts int
	LockoutDuration  time.Duration
}

// Policy returns the non-secret part of the record.
func (r CredentialRecord) Policy() AuthPolicy {
	return AuthPolicy{
		Username:         r.Username,
		Enabled:          r.Enabled,
		SessionDuration:  r.SessionDuration,
		MaxLoginAttempts: r.MaxLoginAttempts,
		LockoutDuration:  r.LockoutDuration,
	}
}

// AuthPolicy is the read-only policy snapshot handed to consumers such as the
// login verifier and session manager.
type AuthPolicy struct {
	Username         string
	Enabled          bool
	SessionDuration  time.Duration
	MaxLoginAttempts int
	LockoutDuration  time.Duration
}

// PasswordInfo mirrors the current password state for administrative callers.
type PasswordInfo struct {
	Username  string
	Password  string
	Digest    string
	HasDigest bool
}
