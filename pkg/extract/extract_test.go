package extract

import (
	"reflect"
	"strings"
	"testing"
	"unicode"
	"unicode/utf8"
)

func TestExtract(t *testing.T) {
	e := NewExtractor()

	tests := []struct {
		name string
		text string
		want map[string][]string
	}{
		{
			name: "empty input",
			text: "",
			want: map[string][]string{},
		},
		{
			name: "organisms and conditions",
			text: "Mice exposed to microgravity during spaceflight.",
			want: map[string][]string{
				TypeGeneProtein: {"during", "exposed", "mice"},
				TypeOrganism:    {"mice"},
				TypeCondition:   {"microgravity", "spaceflight"},
			},
		},
		{
			name: "gene symbols and common terms",
			text: "TP53 and BRCA1 gene expression increased; mRNA levels rose.",
			want: map[string][]string{
				TypeGeneProtein: {"and", "brca1", "expression", "gene", "increased", "levels", "mrna", "rose", "tp53"},
				TypeProcess:     {"expression"},
			},
		},
		{
			// The unit alternation is leftmost-first, so "2.5 Gy" matches as
			// "2.5 g" and "10 mg" as "10 m". Same behavior as the upstream
			// pattern set.
			name: "measurements with units",
			text: "Samples received 2.5 Gy and lost 10 mg of mass.",
			want: map[string][]string{
				TypeGeneProtein: {"and", "lost", "mass", "received", "samples"},
				TypeMeasurement: {"10 m", "2.5 g"},
			},
		},
		{
			name: "duplicates collapse within a category",
			text: "apoptosis, Apoptosis, APOPTOSIS",
			want: map[string][]string{
				TypeGeneProtein: {"apoptosis"},
				TypeProcess:     {"apoptosis"},
			},
		},
		{
			name: "short tokens discarded",
			text: "5 g of RNA",
			want: map[string][]string{
				TypeGeneProtein: {"rna"},
				TypeMeasurement: {"5 g"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Extract(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Extract() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExtractDeterministic(t *testing.T) {
	e := NewExtractor()
	text := "Mice and rats under microgravity showed reduced BMD expression, losing 12 mg bone mass after 30 cGy radiation."

	first := e.Extract(text)
	for i := 0; i < 10; i++ {
		if got := e.Extract(text); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d differs: %v vs %v", i, got, first)
		}
	}
}

func TestExtractNormalization(t *testing.T) {
	e := NewExtractor()
	text := "Drosophila TP53 expression increased by 2.5 Gy under Hypoxia and SPACEFLIGHT conditions."

	for category, names := range e.Extract(text) {
		for _, name := range names {
			if utf8.RuneCountInString(name) <= 2 {
				t.Errorf("category %s: name %q too short", category, name)
			}
			for _, r := range name {
				if unicode.IsUpper(r) {
					t.Errorf("category %s: name %q not lower-cased", category, name)
				}
			}
			if name != strings.TrimSpace(name) {
				t.Errorf("category %s: name %q not trimmed", category, name)
			}
		}
	}
}
