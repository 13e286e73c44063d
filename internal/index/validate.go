package index

import "fmt"

// ValidateFields checks the structural invariants on a field list and
// returns every violation found. The input is never mutated or coerced; an
// invalid schema must be fixed at the source, not silently repaired here.
//
// Checks run in a fixed order so the same input always yields the same
// error set: name uniqueness, exactly-one-key, then per-field capability
// and type rules in declaration order.
func ValidateFields(fields []Field) Errors {
	var errs Errors

	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if f.Name == "" {
			errs = append(errs, ValidationError{
				Rule:   RuleEmptyFieldName,
				Detail: "field name must not be empty",
			})
			continue
		}
		if seen[f.Name] {
			errs = append(errs, ValidationError{
				Field:  f.Name,
				Rule:   RuleDuplicateFieldName,
				Detail: "field name declared more than once",
			})
		}
		seen[f.Name] = true
	}

	keyCount := 0
	for _, f := range fields {
		if f.Key {
			keyCount++
		}
	}
	switch {
	case keyCount == 0:
		errs = append(errs, ValidationError{
			Rule:   RuleMissingKeyField,
			Detail: "schema must declare exactly one key field",
		})
	case keyCount > 1:
		for _, f := range fields {
			if f.Key {
				errs = append(errs, ValidationError{
					Field:  f.Name,
					Rule:   RuleMultipleKeyFields,
					Detail: fmt.Sprintf("schema declares %d key fields, want exactly one", keyCount),
				})
			}
		}
	}

	for _, f := range fields {
		errs = append(errs, validateField(f)...)
	}

	return errs
}

func validateField(f Field) Errors {
	var errs Errors

	if !f.Type.Known() {
		errs = append(errs, ValidationError{
			Field:  f.Name,
			Rule:   RuleUnknownDataType,
			Detail: fmt.Sprintf("unknown data type %q", f.Type),
		})
	}

	if f.Key {
		if f.Searchable {
			errs = append(errs, ValidationError{
				Field:  f.Name,
				Rule:   RuleKeyFieldSearchable,
				Detail: "key field must not be searchable",
			})
		}
		if f.Type != TypeString {
			errs = append(errs, ValidationError{
				Field:  f.Name,
				Rule:   RuleKeyFieldType,
				Detail: fmt.Sprintf("key field must be %s, got %q", TypeString, f.Type),
			})
		}
	}

	// Ordering across a multi-valued field is undefined.
	if f.Type.IsCollection() && f.Sortable {
		errs = append(errs, ValidationError{
			Field:  f.Name,
			Rule:   RuleCollectionSortable,
			Detail: fmt.Sprintf("collection field of type %q must not be sortable", f.Type),
		})
	}

	if f.Facetable && !f.Filterable {
		errs = append(errs, ValidationError{
			Field:  f.Name,
			Rule:   RuleFacetableFilterable,
			Detail: "facetable field must also be filterable",
		})
	}

	if f.Analyzer != "" && !f.Searchable {
		errs = append(errs, ValidationError{
			Field:  f.Name,
			Rule:   RuleAnalyzerSearchable,
			Detail: fmt.Sprintf("analyzer %q set on a non-searchable field", f.Analyzer),
		})
	}

	if len(f.SynonymMaps) > 0 && !f.Searchable {
		errs = append(errs, ValidationError{
			Field:  f.Name,
			Rule:   RuleSynonymsSearchable,
			Detail: "synonym maps set on a non-searchable field",
		})
	}

	return errs
}
