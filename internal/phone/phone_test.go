// Dispecer - Real-Time Incoming Call Distribution for Transport Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dispecer

package phone

import (
	"strings"
	"testing"

	"github.com/tomtom215/dispecer/internal/models"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		display string
		digits  string
	}{
		{"empty", "", "", ""},
		{"whitespace only", "   ", "", ""},
		{"no digits", "abc-.()", "", ""},
		{"plain digits", "0721123456", "0721123456", "0721123456"},
		{"international with separators", "+40 721-111-222", "+40721111222", "40721111222"},
		{"plus with no digits", "+", "", ""},
		{"leading whitespace before plus", "  +40721111222", "+40721111222", "40721111222"},
		{"plus not leading", "40+721111222", "40721111222", "40721111222"},
		{"letters interleaved", "07a21b123", "0721123", "0721123"},
		{"truncated to 20", "123456789012345678901234", "12345678901234567890", "12345678901234567890"},
		{"plus and truncated", "+123456789012345678901234", "+12345678901234567890", "12345678901234567890"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.raw)
			if got.Display != tt.display {
				t.Errorf("Normalize(%q).Display = %q, want %q", tt.raw, got.Display, tt.display)
			}
			if got.Digits != tt.digits {
				t.Errorf("Normalize(%q).Digits = %q, want %q", tt.raw, got.Digits, tt.digits)
			}
		})
	}
}

func TestNormalizeInvariants(t *testing.T) {
	inputs := []string{
		"", "+", "+40 721 111 222", "tel:0744.555.666;ext=12",
		"001ipsum999", strings.Repeat("9", 100), "+" + strings.Repeat("12", 40),
	}

	for _, raw := range inputs {
		got := Normalize(raw)

		if len(got.Digits) > MaxDigits {
			t.Errorf("Normalize(%q) digits length %d exceeds %d", raw, len(got.Digits), MaxDigits)
		}
		for _, r := range got.Digits {
			if r < '0' || r > '9' {
				t.Errorf("Normalize(%q) digits contain non-digit %q", raw, r)
			}
		}

		wantPlus := strings.HasPrefix(strings.TrimSpace(raw), "+") && got.Digits != ""
		if gotPlus := strings.HasPrefix(got.Display, "+"); gotPlus != wantPlus {
			t.Errorf("Normalize(%q) display plus prefix = %v, want %v", raw, gotPlus, wantPlus)
		}
	}
}

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want models.CallStatus
	}{
		{"", models.StatusRinging},
		{"ringing", models.StatusRinging},
		{"answered", models.StatusAnswered},
		{"missed", models.StatusMissed},
		{"rejected", models.StatusRejected},
		{"ANSWERED", models.StatusAnswered},
		{"  Rejected ", models.StatusRejected},
		{"NoAnswer", models.StatusMissed},
		{"no_answer", models.StatusMissed},
		{"  NOANSWER ", models.StatusMissed},
		{"busy", models.StatusRinging},
		{"no answer", models.StatusRinging}, // space variant is not an alias
	}

	for _, tt := range tests {
		if got := NormalizeStatus(tt.raw); got != tt.want {
			t.Errorf("NormalizeStatus(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}
