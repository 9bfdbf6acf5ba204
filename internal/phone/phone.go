// Dispecer - Real-Time Incoming Call Distribution for Transport Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dispecer

// Package phone canonicalizes the raw phone and status text delivered by
// PBX webhooks. Both normalizers are total: any input, including empty,
// maps to a well-defined output.
package phone

import (
	"strings"

	"github.com/tomtom215/dispecer/internal/models"
)

// MaxDigits bounds the canonical digit string. Longer input is truncated,
// guarding against malformed upstream payloads rather than validating
// phone-number length.
const MaxDigits = 20

// Normalized is the canonical form of a raw phone value.
// Both fields empty means "no usable phone".
type Normalized struct {
	// Display is the presentation form: Digits, prefixed with "+" when the
	// trimmed input began with one.
	Display string

	// Digits contains only [0-9], at most MaxDigits characters.
	Digits string
}

// Normalize strips all non-digit characters from raw and derives the
// display form. Empty or all-non-digit input yields a zero Normalized.
func Normalize(raw string) Normalized {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Normalized{}
	}

	var b strings.Builder
	b.Grow(len(trimmed))
	for _, r := range trimmed {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return Normalized{}
	}
	if len(digits) > MaxDigits {
		digits = digits[:MaxDigits]
	}

	display := digits
	if strings.HasPrefix(trimmed, "+") {
		display = "+" + digits
	}
	return Normalized{Display: display, Digits: digits}
}

// Digits is a convenience wrapper returning only the canonical digit form.
func Digits(raw string) string {
	return Normalize(raw).Digits
}

// NormalizeStatus maps arbitrary PBX status text onto the canonical call
// statuses. Recognized values pass through; the "no answer" aliases map to
// missed; anything else, including empty, resolves to ringing.
func NormalizeStatus(raw string) models.CallStatus {
	status := strings.ToLower(strings.TrimSpace(raw))
	switch models.CallStatus(status) {
	case models.StatusRinging, models.StatusAnswered, models.StatusMissed, models.StatusRejected:
		return models.CallStatus(status)
	}
	if status == "no_answer" || status == "noanswer" {
		return models.StatusMissed
	}
	return models.StatusRinging
}
