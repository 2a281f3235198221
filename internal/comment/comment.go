package comment

import (
	"regexp"
	"sort"
	"strings"
)

// Comment is the structured form of a posting or transaction annotation:
// plain free-text lines, presence-only flag tags, and key/value tags.
type Comment struct {
	Lines     []string
	Tags      map[string]bool
	ValueTags map[string]string
}

var (
	flagLineRe = regexp.MustCompile(`^:([^:\s]+:)+$`)
	valueTagRe = regexp.MustCompile(`^([A-Za-z0-9_-]+):\s+(\S.*)$`)
)

// Parse converts a raw annotation string into a Comment. Each line is
// classified independently: ":a:b:" is a run of flag tags, "key: value"
// is a value tag, anything else (after trimming) is kept as plain text.
func Parse(raw string) Comment {
	var c Comment
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if flagLineRe.MatchString(line) {
			for _, tag := range strings.Split(strings.Trim(line, ":"), ":") {
				c.AddTag(tag)
			}
			continue
		}
		if m := valueTagRe.FindStringSubmatch(line); m != nil {
			c.SetValueTag(m[1], m[2])
			continue
		}
		c.Lines = append(c.Lines, line)
	}
	return c
}

// Format serializes a Comment back to annotation text: plain lines in
// original order, then all flag tags as one sorted ":a:b:" line, then
// value tags in sorted key order. Parse(c.Format()) reproduces c.
func (c Comment) Format() string {
	var out []string
	out = append(out, c.Lines...)

	if flags := c.SortedTags(); len(flags) > 0 {
		out = append(out, ":"+strings.Join(flags, ":")+":")
	}

	keys := make([]string, 0, len(c.ValueTags))
	for k := range c.ValueTags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, k+": "+c.ValueTags[k])
	}

	return strings.Join(out, "\n")
}

// Merge returns the union of c and other. Plain lines keep first-seen
// order with exact duplicates dropped, flag tags are set-unioned, and
// other's value tags win on key collision. Neither input is modified.
func (c Comment) Merge(other Comment) Comment {
	merged := c.Clone()

	seen := make(map[string]bool, len(merged.Lines))
	for _, line := range merged.Lines {
		seen[line] = true
	}
	for _, line := range other.Lines {
		if !seen[line] {
			merged.Lines = append(merged.Lines, line)
			seen[line] = true
		}
	}

	for tag := range other.Tags {
		merged.AddTag(tag)
	}
	for k, v := range other.ValueTags {
		merged.SetValueTag(k, v)
	}
	return merged
}

// Clone returns a deep copy of c.
func (c Comment) Clone() Comment {
	out := Comment{}
	if len(c.Lines) > 0 {
		out.Lines = append([]string(nil), c.Lines...)
	}
	for tag := range c.Tags {
		out.AddTag(tag)
	}
	for k, v := range c.ValueTags {
		out.SetValueTag(k, v)
	}
	return out
}

// IsEmpty reports whether c carries no lines and no tags.
func (c Comment) IsEmpty() bool {
	return len(c.Lines) == 0 && len(c.Tags) == 0 && len(c.ValueTags) == 0
}

// HasTag reports whether the flag tag is present.
func (c Comment) HasTag(name string) bool {
	return c.Tags[name]
}

// AddTag sets a flag tag, allocating the tag set if needed.
func (c *Comment) AddTag(name string) {
	if c.Tags == nil {
		c.Tags = make(map[string]bool)
	}
	c.Tags[name] = true
}

// RemoveTag clears a flag tag if present.
func (c *Comment) RemoveTag(name string) {
	delete(c.Tags, name)
}

// SetValueTag sets a key/value tag, allocating the map if needed.
func (c *Comment) SetValueTag(key, value string) {
	if c.ValueTags == nil {
		c.ValueTags = make(map[string]string)
	}
	c.ValueTags[key] = value
}

// SortedTags returns all flag tags in sorted order.
func (c Comment) SortedTags() []string {
	flags := make([]string, 0, len(c.Tags))
	for tag := range c.Tags {
		flags = append(flags, tag)
	}
	sort.Strings(flags)
	return flags
}

// TagsWithPrefix returns all flag tags carrying the prefix, sorted.
func (c Comment) TagsWithPrefix(prefix string) []string {
	var out []string
	for tag := range c.Tags {
		if strings.HasPrefix(tag, prefix) {
			out = append(out, tag)
		}
	}
	sort.Strings(out)
	return out
}
