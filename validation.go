package qbt

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// AllTorrents selects every torrent in multi-hash operations.
const AllTorrents = "all"

var infoHashPattern = regexp.MustCompile(`^[0-9A-Fa-f]{40}$`)

// ValidationResult collects every violated constraint of a request.
type ValidationResult struct {
	Errors   map[string]string
	Warnings []string
}

// IsValid reports whether no constraint was violated.
func (v ValidationResult) IsValid() bool {
	return len(v.Errors) == 0
}

// Fields returns the names of the invalid fields in sorted order.
func (v ValidationResult) Fields() []string {
	return sortedKeys(v.Errors)
}

func (v *ValidationResult) addError(field, format string, args ...any) {
	if v.Errors == nil {
		v.Errors = map[string]string{}
	}
	if _, exists := v.Errors[field]; exists {
		return
	}
	v.Errors[field] = fmt.Sprintf(format, args...)
}

func (v *ValidationResult) addWarning(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}

func (v *ValidationResult) merge(other ValidationResult) {
	for field, msg := range other.Errors {
		v.addError(field, "%s", msg)
	}
	v.Warnings = append(v.Warnings, other.Warnings...)
}

// IsInfoHash reports whether s is a 40 character hex info-hash.
func IsInfoHash(s string) bool {
	return infoHashPattern.MatchString(s)
}

func (v *ValidationResult) requireHash(field, hash string) {
	switch {
	case strings.TrimSpace(hash) == "":
		v.addError(field, "is required")
	case !IsInfoHash(hash):
		v.addError(field, "must be 40 hexadecimal characters")
	}
}

// requireHashes accepts a list of info-hashes, or the single value "all".
func (v *ValidationResult) requireHashes(field string, hashes []string) {
	if len(hashes) == 0 {
		v.addError(field, "at least one hash is required")
		return
	}
	if len(hashes) == 1 && strings.EqualFold(hashes[0], AllTorrents) {
		return
	}
	for i, h := range hashes {
		if strings.EqualFold(h, AllTorrents) {
			v.addError(field, `"all" cannot be combined with other hashes`)
			return
		}
		if !IsInfoHash(h) {
			v.addError(field, "hash #%d (%q) must be 40 hexadecimal characters", i+1, h)
			return
		}
	}
}

func (v *ValidationResult) requireCredential(field, value string) {
	switch {
	case value == "":
		v.addError(field, "is required")
	case utf8.RuneCountInString(value) > maxCredentialLength:
		v.addError(field, "must be at most %d characters", maxCredentialLength)
	}
}

func (v *ValidationResult) requireText(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.addError(field, "must not be empty")
	}
}

func (v *ValidationResult) requireNonNegative(field string, n int64) {
	if n < 0 {
		v.addError(field, "must not be negative")
	}
}
