// Package index builds and validates search index schemas before they are
// submitted to the hosting service.
package index

import (
	"encoding/json"
	"strings"
)

// DataType is a provider type tag for an index field.
type DataType string

// Primitive field types accepted by the index provider.
const (
	TypeString         DataType = "Edm.String"
	TypeInt32          DataType = "Edm.Int32"
	TypeInt64          DataType = "Edm.Int64"
	TypeDouble         DataType = "Edm.Double"
	TypeBoolean        DataType = "Edm.Boolean"
	TypeDateTimeOffset DataType = "Edm.DateTimeOffset"
)

const (
	collectionPrefix = "Collection("
	collectionSuffix = ")"
)

// SearchModeAnalyzingInfixMatching is the only suggester search mode the
// provider accepts.
const SearchModeAnalyzingInfixMatching = "analyzingInfixMatching"

var primitiveTypes = map[DataType]bool{
	TypeString:         true,
	TypeInt32:          true,
	TypeInt64:          true,
	TypeDouble:         true,
	TypeBoolean:        true,
	TypeDateTimeOffset: true,
}

// CollectionOf returns the collection type tag for a primitive element type,
// e.g. CollectionOf(TypeString) == "Collection(Edm.String)".
func CollectionOf(elem DataType) DataType {
	return DataType(collectionPrefix + string(elem) + collectionSuffix)
}

// IsCollection reports whether t is a Collection(...) composite type.
func (t DataType) IsCollection() bool {
	return strings.HasPrefix(string(t), collectionPrefix) &&
		strings.HasSuffix(string(t), collectionSuffix)
}

// Element returns the element type of a collection, or t itself for
// primitive types.
func (t DataType) Element() DataType {
	if !t.IsCollection() {
		return t
	}
	return DataType(strings.TrimSuffix(strings.TrimPrefix(string(t), collectionPrefix), collectionSuffix))
}

// Known reports whether t is a recognized primitive or a collection of a
// recognized primitive.
func (t DataType) Known() bool {
	return primitiveTypes[t.Element()]
}

// Field describes a single index field and its capability flags.
// Capabilities default to false unless set in the declarative source.
type Field struct {
	Name       string   `json:"name" yaml:"name"`
	Type       DataType `json:"type" yaml:"type"`
	Key        bool     `json:"key" yaml:"key,omitempty"`
	Searchable bool     `json:"searchable" yaml:"searchable,omitempty"`
	Filterable bool     `json:"filterable" yaml:"filterable,omitempty"`
	Sortable   bool     `json:"sortable" yaml:"sortable,omitempty"`
	Facetable  bool     `json:"facetable" yaml:"facetable,omitempty"`

	// Analyzer and SynonymMaps are only legal on searchable fields.
	Analyzer    string   `json:"analyzer,omitempty" yaml:"analyzer,omitempty"`
	SynonymMaps []string `json:"synonymMaps,omitempty" yaml:"synonymMaps,omitempty"`
}

// Suggester provides typeahead over one or more searchable fields.
type Suggester struct {
	Name         string   `json:"name" yaml:"name"`
	SearchMode   string   `json:"searchMode" yaml:"searchMode,omitempty"`
	SourceFields []string `json:"sourceFields" yaml:"sourceFields"`
}

// CORSOptions is the cross-origin access policy attached to an index.
type CORSOptions struct {
	AllowedOrigins  []string `json:"allowedOrigins" yaml:"allowedOrigins"`
	MaxAgeInSeconds *int64   `json:"maxAgeInSeconds,omitempty" yaml:"maxAgeInSeconds,omitempty"`
}

// Options carries index-level settings that are not field definitions.
type Options struct {
	CORS *CORSOptions `yaml:"corsOptions,omitempty"`
}

// Schema is a compiled, validated index definition. It is immutable after
// compilation; field order is preserved from the declarative source because
// the provider treats it as column order.
type Schema struct {
	name       string
	fields     []Field
	suggesters []Suggester
	cors       *CORSOptions
}

// Name returns the index name.
func (s *Schema) Name() string { return s.name }

// Fields returns the fields in declaration order.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Suggesters returns the suggesters in declaration order.
func (s *Schema) Suggesters() []Suggester {
	out := make([]Suggester, len(s.suggesters))
	copy(out, s.suggesters)
	return out
}

// schemaDocument is the provider REST body for index creation.
type schemaDocument struct {
	Name        string       `json:"name"`
	Fields      []Field      `json:"fields"`
	Suggesters  []Suggester  `json:"suggesters,omitempty"`
	CORSOptions *CORSOptions `json:"corsOptions,omitempty"`
}

// MarshalJSON renders the schema as the document the provider ingests.
func (s *Schema) MarshalJSON() ([]byte, error) {
	return json.Marshal(schemaDocument{
		Name:        s.name,
		Fields:      s.fields,
		Suggesters:  s.suggesters,
		CORSOptions: s.cors,
	})
}
