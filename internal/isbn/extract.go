package isbn

import "strings"

// Source tags the provenance of a chosen identifier.
type Source string

const (
	SourceMetadata Source = "metadata"
	SourceContent  Source = "content"
	SourceNone     Source = "none"
)

// maxContentFragments bounds how many document fragments the content
// fallback scans.
const maxContentFragments = 5

// Data is the identifier outcome for one book file.
type Data struct {
	ISBN       string   `json:"isbn,omitempty"`
	Source     Source   `json:"isbn_source"`
	Candidates []string `json:"candidates,omitempty"`
}

// Extract applies the metadata-first discovery policy.
//
// Container-level identifier fields are checked in declared order: the
// first field that is itself checksum-valid, or that mentions "isbn",
// wins when its normalized form validates. Otherwise the first
// maxContentFragments document texts are scanned; across fragments the
// candidate set is merged preserving discovery order, and a 13-digit
// identifier is preferred as the representative when present.
func Extract(identifierFields []string, fragmentTexts []string) Data {
	for _, field := range identifierFields {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		if !strings.Contains(strings.ToLower(field), "isbn") && !IsValid(field) {
			continue
		}
		clean := Normalize(strings.TrimSpace(strings.ReplaceAll(field, "urn:isbn:", "")))
		if IsValid(clean) {
			return Data{ISBN: clean, Source: SourceMetadata, Candidates: []string{clean}}
		}
	}

	var merged []string
	seen := make(map[string]struct{})
	fragments := fragmentTexts
	if len(fragments) > maxContentFragments {
		fragments = fragments[:maxContentFragments]
	}
	for _, text := range fragments {
		for _, candidate := range ScanText(text) {
			if _, ok := seen[candidate]; ok {
				continue
			}
			seen[candidate] = struct{}{}
			merged = append(merged, candidate)
		}
	}

	if len(merged) == 0 {
		return Data{Source: SourceNone}
	}

	chosen := merged[0]
	for _, candidate := range merged {
		if len(candidate) == 13 {
			chosen = candidate
			break
		}
	}
	return Data{ISBN: chosen, Source: SourceContent, Candidates: merged}
}
