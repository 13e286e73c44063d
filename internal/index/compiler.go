package index

import "fmt"

// Compile validates a declarative schema description and assembles it into
// an immutable Schema ready for submission to the provider.
//
// Field validation runs first; suggester references are then resolved
// against the declared fields. All violations are accumulated and returned
// together as an Errors value, so err is non-nil exactly when the input
// breaks at least one rule.
func Compile(name string, fields []Field, suggesters []Suggester, opts Options) (*Schema, error) {
	if name == "" {
		return nil, Errors{{
			Rule:   RuleEmptyIndexName,
			Detail: "index name must not be empty",
		}}
	}

	errs := ValidateFields(fields)

	searchable := make(map[string]bool, len(fields))
	declared := make(map[string]bool, len(fields))
	for _, f := range fields {
		declared[f.Name] = true
		if f.Searchable {
			searchable[f.Name] = true
		}
	}

	for _, sg := range suggesters {
		if sg.SearchMode != SearchModeAnalyzingInfixMatching {
			errs = append(errs, ValidationError{
				Suggester: sg.Name,
				Rule:      RuleSuggesterSearchMode,
				Detail:    fmt.Sprintf("search mode must be %q, got %q", SearchModeAnalyzingInfixMatching, sg.SearchMode),
			})
		}
		if len(sg.SourceFields) == 0 {
			errs = append(errs, ValidationError{
				Suggester: sg.Name,
				Rule:      RuleSuggesterNoFields,
				Detail:    "suggester must reference at least one source field",
			})
		}
		for _, src := range sg.SourceFields {
			switch {
			case !declared[src]:
				errs = append(errs, ValidationError{
					Suggester: sg.Name,
					Field:     src,
					Rule:      RuleSuggesterField,
					Detail:    "source field is not declared in the schema",
				})
			case !searchable[src]:
				errs = append(errs, ValidationError{
					Suggester: sg.Name,
					Field:     src,
					Rule:      RuleSuggesterSearchable,
					Detail:    "source field is declared but not searchable",
				})
			}
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}

	s := &Schema{
		name:       name,
		fields:     make([]Field, len(fields)),
		suggesters: make([]Suggester, len(suggesters)),
	}
	copy(s.fields, fields)
	copy(s.suggesters, suggesters)
	if opts.CORS != nil {
		cors := CORSOptions{
			AllowedOrigins:  make([]string, len(opts.CORS.AllowedOrigins)),
			MaxAgeInSeconds: opts.CORS.MaxAgeInSeconds,
		}
		copy(cors.AllowedOrigins, opts.CORS.AllowedOrigins)
		s.cors = &cors
	}
	return s, nil
}
