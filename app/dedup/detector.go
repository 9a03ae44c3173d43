// Package dedup decides which freshly read items are new relative to a
// previously stored snapshot, and what the next snapshot should be.
package dedup

import (
	"fmt"
	"strings"

	"github.com/lysyi3m/regwatch/app/feed"
)

type Policy string

const (
	// Replace stores the current read as the snapshot.
	Replace Policy = "replace"
	// Append stores previous followed by the new items.
	Append Policy = "append"
	// Merge stores the new items followed by previous.
	Merge Policy = "merge"
)

func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case Replace, Append, Merge:
		return p, nil
	default:
		return "", fmt.Errorf("unknown policy: %q", s)
	}
}

type Field string

const (
	FieldLink           Field = "link"
	FieldTitle          Field = "title"
	FieldPubDate        Field = "pub_date"
	FieldContentSnippet Field = "content_snippet"
)

// DefaultKey compares all four item fields.
var DefaultKey = Key{FieldLink, FieldTitle, FieldPubDate, FieldContentSnippet}

// Key is the ordered set of fields that identify an item.
type Key []Field

func ParseKey(fields []string) (Key, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("identity key must name at least one field")
	}

	key := make(Key, 0, len(fields))
	for _, f := range fields {
		switch field := Field(f); field {
		case FieldLink, FieldTitle, FieldPubDate, FieldContentSnippet:
			key = append(key, field)
		default:
			return nil, fmt.Errorf("unknown identity field: %q", f)
		}
	}
	return key, nil
}

// identity builds an exact, case-sensitive composite of the key fields.
func (k Key) identity(item feed.Item) string {
	var b strings.Builder
	for i, f := range k {
		if i > 0 {
			b.WriteByte(0)
		}
		switch f {
		case FieldLink:
			b.WriteString(item.Link)
		case FieldTitle:
			b.WriteString(item.Title)
		case FieldPubDate:
			b.WriteString(item.PubDate)
		case FieldContentSnippet:
			b.WriteString(item.ContentSnippet)
		}
	}
	return b.String()
}

type Options struct {
	Policy Policy
	Key    Key
}

type Result struct {
	// New holds items of current absent from previous, in source order.
	New []feed.Item
	// Snapshot is what should be stored for the next run.
	Snapshot []feed.Item
	// Write reports whether Snapshot differs in intent from previous and
	// should be persisted. It is false when current was empty.
	Write bool
}

// Detect compares current against previous. Neither input is modified.
//
// An empty current is treated as "nothing observed": no new items, and the
// previous snapshot is kept for every policy.
func Detect(current, previous []feed.Item, opts Options) (Result, error) {
	key := opts.Key
	if len(key) == 0 {
		key = DefaultKey
	}

	policy := opts.Policy
	if policy == "" {
		policy = Replace
	}
	if _, err := ParsePolicy(string(policy)); err != nil {
		return Result{}, err
	}

	if len(current) == 0 {
		return Result{
			New:      []feed.Item{},
			Snapshot: clone(previous),
			Write:    false,
		}, nil
	}

	seen := make(map[string]struct{}, len(previous)+len(current))
	for _, item := range previous {
		seen[key.identity(item)] = struct{}{}
	}

	fresh := make([]feed.Item, 0)
	inCurrent := make(map[string]struct{}, len(current))
	for _, item := range current {
		id := key.identity(item)
		if _, dup := inCurrent[id]; dup {
			continue
		}
		inCurrent[id] = struct{}{}

		if _, known := seen[id]; !known {
			fresh = append(fresh, item)
		}
	}

	var snapshot []feed.Item
	switch policy {
	case Replace:
		// The read as observed, duplicates included.
		snapshot = clone(current)
	case Append:
		snapshot = make([]feed.Item, 0, len(previous)+len(fresh))
		snapshot = append(snapshot, previous...)
		snapshot = append(snapshot, fresh...)
	case Merge:
		snapshot = make([]feed.Item, 0, len(previous)+len(fresh))
		snapshot = append(snapshot, fresh...)
		snapshot = append(snapshot, previous...)
	}

	return Result{
		New:      fresh,
		Snapshot: snapshot,
		Write:    true,
	}, nil
}

func clone(items []feed.Item) []feed.Item {
	out := make([]feed.Item, len(items))
	copy(out, items)
	return out
}
