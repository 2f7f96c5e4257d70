package model

import (
	"slices"
	"strings"
)

// LeechTag is added to a note when one of its cards becomes a leech.
const LeechTag = "leech"

// Note groups sibling cards. Only the fields the scheduler cares about are
// kept; field content is opaque here.
type Note struct {
	ID     NoteID   `json:"id"`
	GUID   string   `json:"guid"`
	Mtime  int64    `json:"mtime"`
	Usn    Usn      `json:"usn"`
	Tags   []string `json:"tags"`
	Fields []string `json:"fields"`
}

func (n Note) Clone() Note {
	n.Tags = slices.Clone(n.Tags)
	n.Fields = slices.Clone(n.Fields)
	return n
}

// HasTag compares case-insensitively.
func (n *Note) HasTag(tag string) bool {
	return slices.ContainsFunc(n.Tags, func(t string) bool {
		return strings.EqualFold(t, tag)
	})
}

// AddTag reports whether the tag was added.
func (n *Note) AddTag(tag string) bool {
	if n.HasTag(tag) {
		return false
	}
	n.Tags = append(n.Tags, tag)
	return true
}

// JoinTags renders tags the way they are stored: space separated with a
// leading and trailing space, so that LIKE '% tag %' matches.
func JoinTags(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	return " " + strings.Join(tags, " ") + " "
}

func SplitTags(s string) []string {
	return strings.Fields(s)
}
