// Copyright (c) 2026 Essenzia. All rights reserved.

package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/essenzia/essenzia/internal/auth"
)

/*
TestClassifyTarget covers the email/mobile split used by code issuance and
auto-provisioning.
*/
func TestClassifyTarget(t *testing.T) {
	tests := []struct {
		name   string
		target string
		want   auth.TargetKind
	}{
		{"plain_email", "customer@example.com", auth.TargetEmail},
		{"email_with_plus_tag", "customer+tag@example.com", auth.TargetEmail},
		{"ten_digit_mobile", "9998887777", auth.TargetMobile},
		{"mobile_with_country_code", "+91 99988 87777", auth.TargetMobile},
		{"mobile_with_dashes", "999-888-7777", auth.TargetMobile},
		{"nine_digits_minimum", "123456789", auth.TargetMobile},
		{"fifteen_digits_maximum", "123456789012345", auth.TargetMobile},
		{"too_short", "12345678", auth.TargetUnknown},
		{"too_long", "1234567890123456", auth.TargetUnknown},
		{"letters_in_number", "99988x7777", auth.TargetUnknown},
		{"bare_word", "not-a-target", auth.TargetUnknown},
		{"empty", "", auth.TargetUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, auth.ClassifyTarget(tt.target))
		})
	}
}
