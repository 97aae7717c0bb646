package extract

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// Entity categories produced by the extractor. The values double as the
// stored entity type.
const (
	TypeGeneProtein = "genes_proteins"
	TypeOrganism    = "organisms"
	TypeCondition   = "conditions"
	TypeMeasurement = "measurements"
	TypeProcess     = "processes"
)

// Categories lists all entity categories in the fixed order the extractor
// applies them. When one normalized name matches patterns from several
// categories, the first category in this order wins.
var Categories = []string{
	TypeGeneProtein,
	TypeOrganism,
	TypeCondition,
	TypeMeasurement,
	TypeProcess,
}

// Matching is case-insensitive across the board. The gene-symbol pattern is
// intentionally loose (any 3-10 alphanumeric token starting with a letter);
// the length > 2 filter and per-category vocabularies keep the noise down.
var patterns = map[string][]*regexp.Regexp{
	TypeGeneProtein: {
		regexp.MustCompile(`(?i)\b[A-Z][A-Z0-9]{2,9}\b`),
		regexp.MustCompile(`(?i)\b(?:protein|gene|mRNA|DNA|RNA)\b`),
	},
	TypeOrganism: {
		regexp.MustCompile(`(?i)\b(?:mice|mouse|human|drosophila|arabidopsis|rat|zebrafish|cell|cells)\b`),
	},
	TypeCondition: {
		regexp.MustCompile(`(?i)\b(?:microgravity|spaceflight|radiation|hypoxia|hypergravity|control|treatment)\b`),
	},
	TypeMeasurement: {
		regexp.MustCompile(`(?i)\d+\.?\d*\s*(?:mm|cm|m|g|kg|mg|μm|nm|Gy|cGy|%)`),
	},
	TypeProcess: {
		regexp.MustCompile(`(?i)\b(?:expression|transcription|metabolism|apoptosis|differentiation|proliferation)\b`),
	},
}

// Extractor tags raw article text with typed entity mentions using fixed
// regex patterns and vocabularies. It holds no state and is safe for
// concurrent use.
type Extractor struct{}

// NewExtractor returns a pattern-based entity extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns the entities found in text, keyed by category. Names are
// lower-cased, trimmed and deduplicated within each category; normalized
// tokens of length <= 2 are discarded. The result slices are sorted, so
// identical input always yields identical output.
//
// Extract is a pure function of its input: no side effects, no I/O.
func (e *Extractor) Extract(text string) map[string][]string {
	entities := make(map[string][]string)

	for _, category := range Categories {
		seen := make(map[string]struct{})
		names := make([]string, 0)
		for _, re := range patterns[category] {
			for _, match := range re.FindAllString(text, -1) {
				name := strings.ToLower(strings.TrimSpace(match))
				if utf8.RuneCountInString(name) <= 2 {
					continue
				}
				if _, ok := seen[name]; ok {
					continue
				}
				seen[name] = struct{}{}
				names = append(names, name)
			}
		}
		if len(names) == 0 {
			continue
		}
		sort.Strings(names)
		entities[category] = names
	}

	return entities
}
