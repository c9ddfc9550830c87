// Package search provides the optional fuzzy index the data pipeline
// delegates filtering to.
//
// The index is built once over a row collection and a key set, and answers
// Query(term) with rows ranked closest match first. Cache decides when a
// rebuild is needed: only when the rows, the keys or the threshold change,
// never per keystroke.
package search

import (
	"sort"
	"unicode/utf8"

	"github.com/sahilm/fuzzy"

	"github.com/roach88/tablegrid/internal/table"
)

// DefaultThreshold accepts a match whose skipped characters are at most 30%
// of the candidate's length.
const DefaultThreshold = 0.3

// Index answers ranked queries over a fixed row collection.
type Index[R any] interface {
	Query(term string) []R
}

// Builder constructs an Index. It is the pluggable seam for alternative
// matching algorithms.
type Builder[R any] func(rows []R, fields []Field[R], threshold float64) Index[R]

// Field is one searchable key of a row.
type Field[R any] struct {
	Key      string
	Accessor table.Accessor[R]
}

// FieldsFromColumns builds fields for keys, or for every column when keys is
// empty. Unknown keys are skipped.
func FieldsFromColumns[R any](cols []table.Column[R], keys []string) []Field[R] {
	var fields []Field[R]
	if len(keys) == 0 {
		for _, c := range cols {
			fields = append(fields, Field[R]{Key: c.ID, Accessor: c.Accessor})
		}
		return fields
	}
	for _, k := range keys {
		for _, c := range cols {
			if c.ID == k || c.AccessorKey == k {
				fields = append(fields, Field[R]{Key: k, Accessor: c.Accessor})
				break
			}
		}
	}
	return fields
}

// entry is one (row, key) string in the corpus.
type entry struct {
	row  int
	text string
}

// corpus adapts the entries to fuzzy.Source.
type corpus []entry

func (c corpus) String(i int) string { return c[i].text }
func (c corpus) Len() int            { return len(c) }

// FuzzyIndex ranks rows with subsequence matching (github.com/sahilm/fuzzy).
//
// Threshold bounds looseness, the number of candidate characters skipped
// between the first and last matched character divided by the candidate
// length: 0 admits only contiguous (substring) matches, 1 admits any
// subsequence. Corpus text and terms are compared in table.Fold form.
type FuzzyIndex[R any] struct {
	rows      []R
	corpus    corpus
	threshold float64
}

// NewFuzzy builds a FuzzyIndex. Nil values and absent fields are not indexed.
func NewFuzzy[R any](rows []R, fields []Field[R], threshold float64) *FuzzyIndex[R] {
	if threshold < 0 {
		threshold = 0
	}
	if threshold > 1 {
		threshold = 1
	}

	idx := &FuzzyIndex[R]{
		rows:      rows,
		corpus:    make(corpus, 0, len(rows)*len(fields)),
		threshold: threshold,
	}
	for i, row := range rows {
		for _, f := range fields {
			if f.Accessor == nil {
				continue
			}
			v, ok := f.Accessor(row)
			if !ok {
				continue
			}
			s, ok := table.Stringify(v)
			if !ok || s == "" {
				continue
			}
			idx.corpus = append(idx.corpus, entry{row: i, text: table.Fold(s)})
		}
	}
	return idx
}

// Fuzzy is the default Builder.
func Fuzzy[R any](rows []R, fields []Field[R], threshold float64) Index[R] {
	return NewFuzzy(rows, fields, threshold)
}

// Len returns the number of indexed (row, key) strings.
func (x *FuzzyIndex[R]) Len() int {
	return len(x.corpus)
}

type hit struct {
	row   int
	score int
}

// Query returns matching rows, best score first; equal scores keep row order.
// An empty term returns nil (callers skip the index for empty filters).
func (x *FuzzyIndex[R]) Query(term string) []R {
	term = table.Fold(term)
	if term == "" {
		return nil
	}

	best := make(map[int]int)
	for _, m := range fuzzy.FindFrom(term, x.corpus) {
		if looseness(m) > x.threshold {
			continue
		}
		row := x.corpus[m.Index].row
		if s, seen := best[row]; !seen || m.Score > s {
			best[row] = m.Score
		}
	}

	hits := make([]hit, 0, len(best))
	for row, score := range best {
		hits = append(hits, hit{row: row, score: score})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].row < hits[j].row
	})

	out := make([]R, len(hits))
	for i, h := range hits {
		out[i] = x.rows[h.row]
	}
	return out
}

// looseness is skipped characters inside the matched span over candidate
// length, in runes.
func looseness(m fuzzy.Match) float64 {
	if len(m.MatchedIndexes) == 0 {
		return 1
	}
	first := m.MatchedIndexes[0]
	last := m.MatchedIndexes[len(m.MatchedIndexes)-1]

	span := utf8.RuneCountInString(m.Str[first:]) - utf8.RuneCountInString(m.Str[last:]) + 1
	gaps := span - len(m.MatchedIndexes)
	if gaps <= 0 {
		return 0
	}
	return float64(gaps) / float64(utf8.RuneCountInString(m.Str))
}
