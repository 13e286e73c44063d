package index

import (
	"fmt"
	"strings"
)

// Rule identifies a schema validation rule.
type Rule string

// Validation rules enforced on field definitions and suggesters.
const (
	RuleDuplicateFieldName  Rule = "duplicate-field-name"
	RuleMissingKeyField     Rule = "missing-key-field"
	RuleMultipleKeyFields   Rule = "multiple-key-fields"
	RuleKeyFieldSearchable  Rule = "key-field-searchable"
	RuleKeyFieldType        Rule = "key-field-not-string"
	RuleUnknownDataType     Rule = "unknown-data-type"
	RuleCollectionSortable  Rule = "collection-field-sortable"
	RuleFacetableFilterable Rule = "facetable-requires-filterable"
	RuleAnalyzerSearchable  Rule = "analyzer-requires-searchable"
	RuleSynonymsSearchable  Rule = "synonym-maps-require-searchable"
	RuleSuggesterField      Rule = "unresolved-suggester-field"
	RuleSuggesterSearchable Rule = "suggester-field-not-searchable"
	RuleSuggesterSearchMode Rule = "invalid-suggester-search-mode"
	RuleSuggesterNoFields   Rule = "suggester-without-source-fields"
	RuleEmptyFieldName      Rule = "empty-field-name"
	RuleEmptyIndexName      Rule = "empty-index-name"
)

// ValidationError records one violated rule. Field names the offending
// field; Suggester is set only for suggester rules.
type ValidationError struct {
	Field     string `json:"field,omitempty"`
	Suggester string `json:"suggester,omitempty"`
	Rule      Rule   `json:"rule"`
	Detail    string `json:"detail"`
}

func (e ValidationError) Error() string {
	switch {
	case e.Suggester != "" && e.Field != "":
		return fmt.Sprintf("suggester %q, field %q: %s (%s)", e.Suggester, e.Field, e.Detail, e.Rule)
	case e.Suggester != "":
		return fmt.Sprintf("suggester %q: %s (%s)", e.Suggester, e.Detail, e.Rule)
	case e.Field != "":
		return fmt.Sprintf("field %q: %s (%s)", e.Field, e.Detail, e.Rule)
	default:
		return fmt.Sprintf("%s (%s)", e.Detail, e.Rule)
	}
}

// Errors is the complete set of violations found in one validation pass.
// Validation never stops at the first problem, so a single run surfaces
// everything that has to change.
type Errors []ValidationError

func (e Errors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, len(e))
	for i, v := range e {
		msgs[i] = v.Error()
	}
	return fmt.Sprintf("%d schema validation error(s): %s", len(e), strings.Join(msgs, "; "))
}

// Has reports whether any recorded violation is for the given rule.
func (e Errors) Has(rule Rule) bool {
	for _, v := range e {
		if v.Rule == rule {
			return true
		}
	}
	return false
}
