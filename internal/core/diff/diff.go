// Package diff correlates two annotation snapshots and classifies every
// record as unchanged, moved, updated, new or deleted.
package diff

import (
	"slices"
	"strings"

	"github.com/colonyops/tasksync/internal/core/tags"
)

// Type classifies one diff result.
type Type string

const (
	TypeSame   Type = "SAME"
	TypeMove   Type = "MOVE"
	TypeUpdate Type = "UPDATE"
	TypeNew    Type = "NEW"
	TypeDelete Type = "DELETE"
)

// Types lists every diff type in display order.
var Types = []Type{TypeNew, TypeUpdate, TypeMove, TypeSame, TypeDelete}

// IsValid reports whether t is a known diff type.
func (t Type) IsValid() bool {
	switch t {
	case TypeSame, TypeMove, TypeUpdate, TypeNew, TypeDelete:
		return true
	}
	return false
}

// Info is one side of a diff result.
type Info struct {
	Text    string   `json:"text"`
	Line    int      `json:"line"`
	File    string   `json:"file"`
	Context []string `json:"context"`
}

// Data holds both sides of a diff result. Old is nil only for NEW and New is
// nil only for DELETE.
type Data struct {
	Old *Info `json:"old"`
	New *Info `json:"new"`
}

// Result is a single classified annotation. ID is the old record's id for
// SAME, MOVE, UPDATE and DELETE, and the new record's id for NEW.
type Result struct {
	ID   string `json:"id"`
	Tag  string `json:"tag"`
	Type Type   `json:"type"`
	Data Data   `json:"data"`
}

func infoOf(t tags.ParsedTask) *Info {
	return &Info{Text: t.Text, Line: t.Line, File: t.File, Context: t.Context}
}

func sameText(a, b string) bool {
	return strings.TrimSpace(a) == strings.TrimSpace(b)
}

// Generate classifies every record of old and new.
//
// Each new record claims the first unconsumed old record with equal text
// (SAME when file and line are unchanged, MOVE otherwise). Failing that it
// claims the first unconsumed old record on the same line with the same tag
// (UPDATE). A record that claims nothing is NEW. Old records never claimed
// are DELETE and are appended last, in old order. An old record is consumed
// at most once, so the earliest-declared duplicate always wins.
//
// The first len(newTasks) results correspond one to one, in order, with
// newTasks.
func Generate(oldTasks, newTasks []tags.ParsedTask) []Result {
	consumed := make([]bool, len(oldTasks))
	results := make([]Result, 0, len(oldTasks)+len(newTasks))

	for _, n := range newTasks {
		idx := -1
		for i, o := range oldTasks {
			if !consumed[i] && sameText(o.Text, n.Text) {
				idx = i
				break
			}
		}

		if idx >= 0 {
			o := oldTasks[idx]
			consumed[idx] = true

			typ := TypeMove
			if o.File == n.File && o.Line == n.Line {
				typ = TypeSame
			}

			results = append(results, Result{
				ID:   o.ID,
				Tag:  n.Tag,
				Type: typ,
				Data: Data{Old: infoOf(o), New: infoOf(n)},
			})
			continue
		}

		for i, o := range oldTasks {
			if !consumed[i] && o.Line == n.Line && o.Tag == n.Tag {
				idx = i
				break
			}
		}

		if idx >= 0 {
			o := oldTasks[idx]
			consumed[idx] = true

			results = append(results, Result{
				ID:   o.ID,
				Tag:  n.Tag,
				Type: TypeUpdate,
				Data: Data{Old: infoOf(o), New: infoOf(n)},
			})
			continue
		}

		results = append(results, Result{
			ID:   n.ID,
			Tag:  n.Tag,
			Type: TypeNew,
			Data: Data{New: infoOf(n)},
		})
	}

	for i, o := range oldTasks {
		if consumed[i] {
			continue
		}
		results = append(results, Result{
			ID:   o.ID,
			Tag:  o.Tag,
			Type: TypeDelete,
			Data: Data{Old: infoOf(o)},
		})
	}

	return results
}

// CarryIDs returns a copy of newTasks where every record that claimed an old
// record takes over the old record's id. Storing the carried ids keeps an
// annotation's identity stable for as long as the matcher keeps claiming it.
// results must be the output of Generate(_, newTasks).
func CarryIDs(newTasks []tags.ParsedTask, results []Result) []tags.ParsedTask {
	out := slices.Clone(newTasks)
	for i := range out {
		if i >= len(results) {
			break
		}
		if r := results[i]; r.Type != TypeNew && r.Type != TypeDelete {
			out[i].ID = r.ID
		}
	}
	return out
}

// Summary counts results by type.
type Summary map[Type]int

// Summarize counts results by type.
func Summarize(results []Result) Summary {
	s := make(Summary, len(Types))
	for _, r := range results {
		s[r.Type]++
	}
	return s
}

// Changed reports whether the summary contains anything other than SAME.
func (s Summary) Changed() bool {
	for typ, n := range s {
		if typ != TypeSame && n > 0 {
			return true
		}
	}
	return false
}

// GroupByType buckets results by type, preserving input order within a bucket.
func GroupByType(results []Result) map[Type][]Result {
	out := make(map[Type][]Result, len(Types))
	for _, r := range results {
		out[r.Type] = append(out[r.Type], r)
	}
	return out
}

// Current returns the side of r that describes where the annotation lives
// now: New for everything except DELETE.
func (r Result) Current() *Info {
	if r.Data.New != nil {
		return r.Data.New
	}
	return r.Data.Old
}
