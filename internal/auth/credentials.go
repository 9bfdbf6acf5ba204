// Dispecer - Real-Time Incoming Call Distribution for Transport Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dispecer

package auth

import (
	"crypto/subtle"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// CredentialChecker validates dispatcher admin credentials. The password
// is bcrypt-hashed at initialization so plaintext never lingers on the
// struct and every request pays the same comparison cost.
type CredentialChecker struct {
	username     string
	passwordHash []byte
}

// NewCredentialChecker creates a checker for the configured admin account.
func NewCredentialChecker(username, password string) (*CredentialChecker, error) {
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if password == "" {
		return nil, fmt.Errorf("password is required")
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("password must be at least 8 characters")
	}

	// Cost factor 12 balances verification latency against brute-force
	// resistance.
	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	return &CredentialChecker{
		username:     username,
		passwordHash: hash,
	}, nil
}

// Validate checks a login attempt. Both comparisons always run so a wrong
// username costs the same as a wrong password.
func (c *CredentialChecker) Validate(username, password string) bool {
	usernameMatch := subtle.ConstantTimeCompare([]byte(username), []byte(c.username)) == 1
	passwordMatch := bcrypt.CompareHashAndPassword(c.passwordHash, []byte(password)) == nil
	return usernameMatch && passwordMatch
}

// SecretMatches checks a presented PBX webhook secret against the
// configured one. The configured value may be a bcrypt hash (recommended
// for deployments where config files are widely readable) or a plain
// string, which is compared in constant time.
func SecretMatches(configured, presented string) bool {
	if configured == "" {
		// No secret configured: the ingress accepts any caller. The
		// handler logs a one-time warning for this mode.
		return true
	}
	if presented == "" {
		return false
	}
	if strings.HasPrefix(configured, "$2a$") || strings.HasPrefix(configured, "$2b$") || strings.HasPrefix(configured, "$2y$") {
		return bcrypt.CompareHashAndPassword([]byte(configured), []byte(presented)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(configured), []byte(presented)) == 1
}
