// Package progress computes onboarding completion from an application's form
// records. Everything here is pure: no I/O, no clocks, no shared state.
package progress

import "errors"

var ErrNoRequiredKeys = errors.New("progress: required key list is empty")

// Entry is the slice of a form record the calculator needs.
type Entry struct {
	Status   string
	Uploaded bool
}

type Result struct {
	CompletedCount int      `json:"completedCount"`
	TotalCount     int      `json:"totalCount"`
	Percentage     int      `json:"percentage"`
	Done           []string `json:"done"`
	Pending        []string `json:"pending"`
}

var doneStatuses = map[string]struct{}{
	"submitted":    {},
	"completed":    {},
	"under_review": {},
	"approved":     {},
}

// IsDone reports whether a single entry counts towards completion.
func IsDone(entry Entry) bool {
	if entry.Uploaded {
		return true
	}
	_, ok := doneStatuses[entry.Status]
	return ok
}

// Resolve returns the entry that backs a required key. When jobDescriptionPCA
// itself is absent the logical key falls back to the other variants, preferring
// a done one over one that is merely present.
func Resolve(forms map[string]Entry, key string) (string, Entry, bool) {
	if entry, ok := forms[key]; ok {
		return key, entry, true
	}
	if key != KeyJobDescriptionPCA {
		return key, Entry{}, false
	}
	firstKey, found := "", false
	var first Entry
	for _, variant := range jobDescriptionVariants[1:] {
		entry, ok := forms[variant]
		if !ok {
			continue
		}
		if IsDone(entry) {
			return variant, entry, true
		}
		if !found {
			firstKey, first, found = variant, entry, true
		}
	}
	if found {
		return firstKey, first, true
	}
	return key, Entry{}, false
}

// KeyDone reports whether one required key is satisfied by status, upload, or
// membership in completed.
func KeyDone(forms map[string]Entry, completed map[string]struct{}, key string) bool {
	if _, ok := completed[key]; ok {
		return true
	}
	resolved, entry, found := Resolve(forms, key)
	if !found {
		return false
	}
	if _, ok := completed[resolved]; ok {
		return true
	}
	return IsDone(entry)
}

// Calculate counts how many of requiredKeys are done. Duplicate keys are
// counted once. An empty key list yields a zero Result and ErrNoRequiredKeys.
func Calculate(forms map[string]Entry, completed map[string]struct{}, requiredKeys []string) (Result, error) {
	keys := dedupe(requiredKeys)
	if len(keys) == 0 {
		return Result{Done: []string{}, Pending: []string{}}, ErrNoRequiredKeys
	}

	result := Result{
		TotalCount: len(keys),
		Done:       make([]string, 0, len(keys)),
		Pending:    make([]string, 0, len(keys)),
	}
	for _, key := range keys {
		if KeyDone(forms, completed, key) {
			result.Done = append(result.Done, key)
			continue
		}
		result.Pending = append(result.Pending, key)
	}
	result.CompletedCount = len(result.Done)
	result.Percentage = Percentage(result.CompletedCount, result.TotalCount)
	return result, nil
}

// Satisfied reports whether every key is done. An empty list is satisfied.
func Satisfied(forms map[string]Entry, completed map[string]struct{}, keys []string) bool {
	for _, key := range keys {
		if !KeyDone(forms, completed, key) {
			return false
		}
	}
	return true
}

// Percentage returns round(100*done/total) with halves rounded up, clamped to
// [0,100]. Integer arithmetic keeps done == total at exactly 100.
func Percentage(done, total int) int {
	if total <= 0 || done <= 0 {
		return 0
	}
	if done >= total {
		return 100
	}
	return (200*done + total) / (2 * total)
}

// CompletedSet builds the lookup set used by Calculate.
func CompletedSet(keys []string) map[string]struct{} {
	out := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		out[key] = struct{}{}
	}
	return out
}

func dedupe(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}
