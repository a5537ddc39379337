package settings

import (
	"encoding/json"
	"sort"
)

// exportDoc is the canonical JSON shape for export/import, matching the
// outbound settings payload shape of spec.md §6. Containers that are
// semantically unordered (dictionary, stop words, synonym variant
// lists) are sorted before marshalling so two calls to Export on
// settings built from the same data produce byte-identical output.
type exportDoc struct {
	SeparatorTokens      []string            `json:"separator_tokens"`
	NonSeparatorTokens   []string            `json:"non_separator_tokens"`
	Dictionary           []string            `json:"dictionary"`
	Synonyms             map[string][]string `json:"synonyms"`
	StopWords            []string            `json:"stop_words"`
	SearchableAttributes []string            `json:"searchable_attributes"`
	DisplayedAttributes  []string            `json:"displayed_attributes"`
	FilterableAttributes []string            `json:"filterable_attributes"`
	SortableAttributes   []string            `json:"sortable_attributes"`
	RankingRules         []RankingRule       `json:"ranking_rules"`
}

// Export serializes Settings to JSON, canonicalizing unordered
// containers (dictionary, stop words, synonym variants) so two exports
// of equal-but-differently-ordered settings compare equal.
func Export(s Settings) ([]byte, error) {
	doc := exportDoc{
		SeparatorTokens:      append([]string{}, s.SeparatorTokens...),
		NonSeparatorTokens:   append([]string{}, s.NonSeparatorTokens...),
		Dictionary:           sortedCopy(s.Dictionary),
		Synonyms:             sortSynonymVariants(s.Synonyms),
		StopWords:            sortedCopy(s.StopWords),
		SearchableAttributes: append([]string{}, s.SearchableAttributes...),
		DisplayedAttributes:  append([]string{}, s.DisplayedAttributes...),
		FilterableAttributes: append([]string{}, s.FilterableAttributes...),
		SortableAttributes:   append([]string{}, s.SortableAttributes...),
		RankingRules:         append([]RankingRule{}, s.RankingRules...),
	}
	return json.MarshalIndent(doc, "", "  ")
}

// Import parses Export's output back into a Settings value.
func Import(data []byte) (Settings, error) {
	var doc exportDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return Settings{}, err
	}
	return Settings{
		SeparatorTokens:      doc.SeparatorTokens,
		NonSeparatorTokens:   doc.NonSeparatorTokens,
		Dictionary:           doc.Dictionary,
		Synonyms:             doc.Synonyms,
		StopWords:            doc.StopWords,
		SearchableAttributes: doc.SearchableAttributes,
		DisplayedAttributes:  doc.DisplayedAttributes,
		FilterableAttributes: doc.FilterableAttributes,
		SortableAttributes:   doc.SortableAttributes,
		RankingRules:         doc.RankingRules,
	}, nil
}

func sortedCopy(items []string) []string {
	out := append([]string{}, items...)
	sort.Strings(out)
	return out
}

func sortSynonymVariants(synonyms map[string][]string) map[string][]string {
	out := make(map[string][]string, len(synonyms))
	for k, v := range synonyms {
		out[k] = sortedCopy(v)
	}
	return out
}
