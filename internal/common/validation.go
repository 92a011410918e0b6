package common

import "sort"

// ValidationErrors maps a field name to a user-facing message. An empty
// record means every validator passed.
type ValidationErrors map[string]string

// Add records msg for field unless the field already has a message.
func (v ValidationErrors) Add(field, msg string) {
	if _, exists := v[field]; exists {
		return
	}
	v[field] = msg
}

// Merge copies every entry of other that is not already present.
func (v ValidationErrors) Merge(other ValidationErrors) {
	for field, msg := range other {
		v.Add(field, msg)
	}
}

// Empty reports whether no errors were recorded.
func (v ValidationErrors) Empty() bool {
	return len(v) == 0
}

// Fields returns the failing field names in sorted order.
func (v ValidationErrors) Fields() []string {
	out := make([]string, 0, len(v))
	for field := range v {
		out = append(out, field)
	}
	sort.Strings(out)
	return out
}
