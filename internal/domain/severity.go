package domain

import "strings"

// Severity is the canonical issue severity.
type Severity string

const (
	SeverityLow      Severity = "Low"
	SeverityMedium   Severity = "Medium"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

// Severities lists the canonical values from least to most severe.
var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// Valid reports whether s is exactly one of the canonical values.
func (s Severity) Valid() bool {
	for _, v := range Severities {
		if s == v {
			return true
		}
	}
	return false
}

// NormalizeSeverity maps free text onto a canonical severity by substring.
// The second result is false when nothing matched and Medium was assumed.
func NormalizeSeverity(raw string) (Severity, bool) {
	v := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.Contains(v, "crit"):
		return SeverityCritical, true
	case strings.Contains(v, "high"):
		return SeverityHigh, true
	case strings.Contains(v, "low"):
		return SeverityLow, true
	case strings.Contains(v, "med"):
		return SeverityMedium, true
	}
	return SeverityMedium, false
}
