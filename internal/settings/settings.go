// Package settings builds and validates the search-engine index
// configuration bundle that makes C3's word-boundary markers
// authoritative at query time.
package settings

import (
	"sort"

	sidecarerrors "github.com/thai-tokenizer/sidecar/internal/errors"
)

// WordMarker is the zero-width Thai word-boundary marker, U+200B.
const WordMarker = "​"

// RankingRule is one entry of the closed ranking-rules set.
type RankingRule string

const (
	RuleWords      RankingRule = "words"
	RuleTypo       RankingRule = "typo"
	RuleProximity  RankingRule = "proximity"
	RuleAttribute  RankingRule = "attribute"
	RuleSort       RankingRule = "sort"
	RuleExactness  RankingRule = "exactness"
)

var closedRankingRules = map[RankingRule]struct{}{
	RuleWords:     {},
	RuleTypo:      {},
	RuleProximity: {},
	RuleAttribute: {},
	RuleSort:      {},
	RuleExactness: {},
}

// Settings is the search-engine configuration bundle (spec.md §3/§4.4).
type Settings struct {
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

// thaiCombiningMarks are the combining marks that must never be treated
// as word separators (spec.md §3).
var thaiCombiningMarks = []string{
	"ั", // MAI HAN-AKAT
	"ิ", // SARA I
	"ี", // SARA II
	"ึ", // SARA UE
	"ื", // SARA UEE
	"็", // MAITAIKHU
	"่", // MAI EK
	"้", // MAI THO
	"๊", // MAI TRI
	"๋", // MAI CHATTAWA
	"์", // THANTHAKHAT
}

const (
	repetitionMarker   = "ๆ"
	abbreviationMarker = "ฯ"
)

// Builder accumulates settings changes before they are built and
// validated, following the add_dictionary/add_synonyms/update_* surface
// of spec.md §4.4.
type Builder struct {
	s Settings
}

// NewBuilder seeds a Builder with the mandatory baseline: U+200B plus
// whitespace separators, Thai combining marks plus ๆ/ฯ as
// non-separators, and the default closed-set ranking rules in the
// order most search engines ship with.
func NewBuilder() *Builder {
	b := &Builder{
		s: Settings{
			SeparatorTokens:    []string{WordMarker, " ", "\t", "\n"},
			NonSeparatorTokens: append(append([]string{}, thaiCombiningMarks...), repetitionMarker, abbreviationMarker),
			Dictionary:         nil,
			Synonyms:           map[string][]string{},
			StopWords:          nil,
			SearchableAttributes: []string{
				"title", "content", "tokenized_content",
			},
			DisplayedAttributes: nil,
			FilterableAttributes: nil,
			SortableAttributes:   nil,
			RankingRules: []RankingRule{
				RuleWords, RuleTypo, RuleProximity, RuleAttribute, RuleSort, RuleExactness,
			},
		},
	}
	return b
}

// Build returns the accumulated Settings. It does not validate; callers
// should call Validate on the result before publishing it.
func (b *Builder) Build() Settings {
	return b.s
}

// AddDictionary merges words into the dictionary, deduplicated while
// preserving first-occurrence order.
func (b *Builder) AddDictionary(words []string) *Builder {
	b.s.Dictionary = dedupePreserveOrder(append(b.s.Dictionary, words...))
	return b
}

// AddSynonyms merges a canonical->variants map into the existing one by
// set-union per key; canonical keys are preserved as given.
func (b *Builder) AddSynonyms(synonyms map[string][]string) *Builder {
	if b.s.Synonyms == nil {
		b.s.Synonyms = map[string][]string{}
	}
	for canonical, variants := range synonyms {
		existing := b.s.Synonyms[canonical]
		b.s.Synonyms[canonical] = dedupePreserveOrder(append(existing, variants...))
	}
	return b
}

// UpdateStopWords replaces the stop-word list.
func (b *Builder) UpdateStopWords(words []string) *Builder {
	b.s.StopWords = dedupePreserveOrder(words)
	return b
}

// UpdateSeparatorTokens replaces the separator token list, re-inserting
// U+200B if the caller's list dropped it.
func (b *Builder) UpdateSeparatorTokens(tokens []string) *Builder {
	b.s.SeparatorTokens = ensureContains(dedupePreserveOrder(tokens), WordMarker)
	return b
}

// UpdateNonSeparatorTokens replaces the non-separator token list.
func (b *Builder) UpdateNonSeparatorTokens(tokens []string) *Builder {
	b.s.NonSeparatorTokens = dedupePreserveOrder(tokens)
	return b
}

// UpdateSearchableAttributes replaces the searchable attribute list.
func (b *Builder) UpdateSearchableAttributes(attrs []string) *Builder {
	b.s.SearchableAttributes = dedupePreserveOrder(attrs)
	return b
}

// UpdateDisplayedAttributes replaces the displayed attribute list.
func (b *Builder) UpdateDisplayedAttributes(attrs []string) *Builder {
	b.s.DisplayedAttributes = dedupePreserveOrder(attrs)
	return b
}

// UpdateFilterableAttributes replaces the filterable attribute list.
func (b *Builder) UpdateFilterableAttributes(attrs []string) *Builder {
	b.s.FilterableAttributes = dedupePreserveOrder(attrs)
	return b
}

// UpdateSortableAttributes replaces the sortable attribute list.
func (b *Builder) UpdateSortableAttributes(attrs []string) *Builder {
	b.s.SortableAttributes = dedupePreserveOrder(attrs)
	return b
}

// UpdateRankingRules replaces the ranking rule order.
func (b *Builder) UpdateRankingRules(rules []RankingRule) *Builder {
	b.s.RankingRules = rules
	return b
}

// Validate checks the closed-set, non-empty, and containment rules of
// spec.md §4.4 and returns every violation found (not just the first).
func Validate(s Settings) []error {
	var errs []error

	if len(s.SeparatorTokens) == 0 {
		errs = append(errs, sidecarerrors.New(sidecarerrors.ErrCodeSettingsValidation, "separator_tokens must not be empty", nil))
	} else if !contains(s.SeparatorTokens, WordMarker) {
		errs = append(errs, sidecarerrors.New(sidecarerrors.ErrCodeSettingsValidation, "separator_tokens must include U+200B", nil))
	}

	if !hasThaiNonSeparator(s.NonSeparatorTokens) {
		errs = append(errs, sidecarerrors.New(sidecarerrors.ErrCodeSettingsValidation, "non_separator_tokens must include a Thai combining mark or ๆ/ฯ", nil))
	}

	if len(s.SearchableAttributes) == 0 {
		errs = append(errs, sidecarerrors.New(sidecarerrors.ErrCodeSettingsValidation, "searchable_attributes must not be empty", nil))
	}

	seen := make(map[RankingRule]struct{})
	for _, rule := range s.RankingRules {
		if _, ok := closedRankingRules[rule]; !ok {
			errs = append(errs, sidecarerrors.New(sidecarerrors.ErrCodeSettingsValidation, "ranking rule \""+string(rule)+"\" is not in the closed set", nil))
			continue
		}
		if _, dup := seen[rule]; dup {
			errs = append(errs, sidecarerrors.New(sidecarerrors.ErrCodeSettingsValidation, "duplicate ranking rule \""+string(rule)+"\"", nil))
			continue
		}
		seen[rule] = struct{}{}
	}

	return errs
}

// ValidateThaiTextSettings is the quick-check helper of spec.md §4.4:
// true iff U+200B is among separators, a Thai combining mark (or
// ๆ/ฯ) appears among non-separators, and searchable attributes is
// non-empty.
func ValidateThaiTextSettings(s Settings) bool {
	return contains(s.SeparatorTokens, WordMarker) &&
		hasThaiNonSeparator(s.NonSeparatorTokens) &&
		len(s.SearchableAttributes) > 0
}

func hasThaiNonSeparator(tokens []string) bool {
	for _, t := range tokens {
		if t == repetitionMarker || t == abbreviationMarker {
			return true
		}
		for _, mark := range thaiCombiningMarks {
			if t == mark {
				return true
			}
		}
	}
	return false
}

func contains(list []string, target string) bool {
	for _, v := range list {
		if v == target {
			return true
		}
	}
	return false
}

func ensureContains(list []string, target string) []string {
	if contains(list, target) {
		return list
	}
	return append(list, target)
}

func dedupePreserveOrder(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}

// SortedSynonymKeys returns the synonym map's keys sorted, for stable
// export/iteration order.
func SortedSynonymKeys(synonyms map[string][]string) []string {
	keys := make([]string, 0, len(synonyms))
	for k := range synonyms {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
