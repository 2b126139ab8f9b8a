package cover

import (
	"path"
	"sort"

	"sortbook/internal/epub"
)

// hintFragments bounds how many document fragments are scanned for inline
// image references.
const hintFragments = 3

// noHint sorts after every real appearance-order hint.
const noHint = int(^uint(0) >> 1)

// Candidate is one ranked cover image. Data is never serialized.
type Candidate struct {
	Filename  string `json:"filename"`
	MediaType string `json:"media_type,omitempty"`
	Width     *int   `json:"width"`
	Height    *int   `json:"height"`
	Format    string `json:"format,omitempty"`
	Hint      int    `json:"-"`
	Primary   bool   `json:"primary,omitempty"`
	Data      []byte `json:"-"`
}

// HintMap builds the appearance-order lookup keyed by base filename from
// the first documents of the book.
func HintMap(documents []epub.Document) map[string]int {
	bounded := documents
	if len(bounded) > hintFragments {
		bounded = bounded[:hintFragments]
	}
	hints := make(map[string]int)
	for order, doc := range bounded {
		for _, src := range epub.ImageSources(doc.Data) {
			base := path.Base(src)
			if existing, ok := hints[base]; !ok || order < existing {
				hints[base] = order
			}
		}
	}
	return hints
}

// Select ranks the embedded images and elects a primary candidate.
//
// Vector items never survive. Items whose both dimensions are known and
// below minEdge are dropped; undecodable items are kept with nil
// dimensions. Survivors sort by appearance hint, then by known width
// descending (unknown width last within the same hint), and the first
// survivor is flagged primary.
func Select(images []epub.Item, documents []epub.Document, minEdge int) []Candidate {
	hints := HintMap(documents)

	candidates := make([]Candidate, 0, len(images))
	for _, item := range images {
		if isVector(item.MediaType, item.Name) {
			continue
		}
		width, height, format := dimensions(item.Data)
		if width != nil && height != nil && (*width < minEdge || *height < minEdge) {
			continue
		}
		hint := noHint
		if order, ok := hints[path.Base(item.Name)]; ok {
			hint = order
		}
		candidates = append(candidates, Candidate{
			Filename:  item.Name,
			MediaType: item.MediaType,
			Width:     width,
			Height:    height,
			Format:    format,
			Hint:      hint,
			Data:      item.Data,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Hint != candidates[j].Hint {
			return candidates[i].Hint < candidates[j].Hint
		}
		return knownWidth(candidates[i]) > knownWidth(candidates[j])
	})

	if len(candidates) > 0 {
		candidates[0].Primary = true
	}
	return candidates
}

func knownWidth(c Candidate) int {
	if c.Width == nil {
		return -1
	}
	return *c.Width
}
