package core

import "strings"

// StatusTable maps provider native status strings onto a canonical status.
// The mapping is total: unknown strings resolve to the fallback.
type StatusTable[T ~string] struct {
	entries  map[string]T
	fallback T
}

func NewStatusTable[T ~string](fallback T, entries map[string]T) StatusTable[T] {
	normalized := make(map[string]T, len(entries))
	for raw, status := range entries {
		key := normalizeStatusKey(raw)
		if key == "" {
			continue
		}
		normalized[key] = status
	}
	return StatusTable[T]{entries: normalized, fallback: fallback}
}

func (t StatusTable[T]) Map(raw string) T {
	if status, ok := t.entries[normalizeStatusKey(raw)]; ok {
		return status
	}
	return t.fallback
}

func (t StatusTable[T]) Fallback() T {
	return t.fallback
}

// Missing returns the canonical values no provider string maps to.
func (t StatusTable[T]) Missing(canonical []T) []T {
	seen := make(map[T]bool, len(t.entries))
	for _, status := range t.entries {
		seen[status] = true
	}
	missing := []T{}
	for _, status := range canonical {
		if !seen[status] {
			missing = append(missing, status)
		}
	}
	return missing
}

func normalizeStatusKey(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.NewReplacer("-", "_", " ", "_", ".", "_").Replace(key)
	return key
}

// VerificationStatuses lists every canonical verification status.
var VerificationStatuses = []VerificationStatus{
	VerificationStatusNotStarted,
	VerificationStatusPending,
	VerificationStatusInReview,
	VerificationStatusAdditionalInfoRequired,
	VerificationStatusApproved,
	VerificationStatusRejected,
	VerificationStatusExpired,
}
