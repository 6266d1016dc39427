package validator

import (
	"fmt"
	"strings"
)

// TagSet validates requested tags against the configured whitelist.
type TagSet struct {
	allowed map[string]bool
	names   []string
}

// NewTagSet builds a TagSet from the configured tag list. Names are trimmed;
// empty names are dropped.
func NewTagSet(tags []string) *TagSet {
	ts := &TagSet{allowed: make(map[string]bool, len(tags))}
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if !ts.allowed[tag] {
			ts.allowed[tag] = true
			ts.names = append(ts.names, tag)
		}
	}
	return ts
}

// Names returns the allowed tags in configuration order.
func (ts *TagSet) Names() []string {
	return ts.names
}

// Validate checks that every requested tag is whitelisted. An empty request
// is valid. The error message names every offending tag.
func (ts *TagSet) Validate(tags []string) error {
	var invalid []string
	for _, tag := range tags {
		if !ts.allowed[tag] {
			invalid = append(invalid, tag)
		}
	}
	if len(invalid) > 0 {
		return fmt.Errorf("invalid tags: %s. Allowed tags are: %s",
			strings.Join(invalid, ", "), strings.Join(ts.names, ", "))
	}
	return nil
}
