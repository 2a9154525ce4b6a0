// Copyright (c) 2026 Essenzia. All rights reserved.

package auth

import (
	"net/mail"
	"regexp"
	"strings"
)

// TargetKind is the classification of a submitted OTP target.
type TargetKind string

const (
	TargetEmail   TargetKind = "email"
	TargetMobile  TargetKind = "mobile"
	TargetUnknown TargetKind = ""
)

// mobilePattern matches a bare subscriber number after normalization,
// nine to fifteen digits per E.164 length limits.
var mobilePattern = regexp.MustCompile(`^\d{9,15}$`)

// mobileNormalizer strips formatting characters commonly pasted with phone numbers.
var mobileNormalizer = strings.NewReplacer(" ", "", "+", "", "-", "")

// ClassifyTarget decides whether a target string is an email address or a
// mobile number.
//
// # Rules
//   - Email: standard address syntax (RFC 5322 parse).
//   - Mobile: 9 to 15 digits after stripping spaces, '+' and '-'.
//   - Anything else is [TargetUnknown] and must be rejected by the caller.
//
// The target is stored and matched exactly as submitted; normalization is
// used for classification only.
func ClassifyTarget(target string) TargetKind {
	if target == "" {
		return TargetUnknown
	}

	if address, err := mail.ParseAddress(target); err == nil && address.Address == target {
		return TargetEmail
	}

	if mobilePattern.MatchString(mobileNormalizer.Replace(target)) {
		return TargetMobile
	}

	return TargetUnknown
}
