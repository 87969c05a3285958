// Package schema declares table structure in the frictionless table-schema
// layout: typed fields, a primary key and foreign keys. A Schema is pure
// data; it can be written as JSON, checked against produced rows and turned
// into a storage.TableSpec.
package schema

import (
	"encoding/json"
	"fmt"
	"io"

	"prep/internal/storage"
)

// Field types.
const (
	TypeInteger = "integer"
	TypeNumber  = "number"
	TypeString  = "string"
	TypeBoolean = "boolean"
)

// FormatURI marks a string field holding an absolute URI.
const FormatURI = "uri"

// Field is one column of a table schema.
type Field struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Format      string `json:"format,omitempty"`
	Description string `json:"description,omitempty"`
}

// Reference points a foreign key at another resource.
type Reference struct {
	Resource string    `json:"resource"`
	Fields   FieldList `json:"fields"`
}

// ForeignKey declares that Fields reference Reference.Fields in another
// resource. It is declared only; nothing here enforces it.
type ForeignKey struct {
	Fields    FieldList `json:"fields"`
	Reference Reference `json:"reference"`
}

// Schema describes a table.
type Schema struct {
	Fields      []Field      `json:"fields"`
	PrimaryKey  []string     `json:"primaryKey,omitempty"`
	ForeignKeys []ForeignKey `json:"foreignKeys,omitempty"`
}

// FieldList is a list of field names. A single name encodes as a bare JSON
// string, as frictionless does; both forms decode.
type FieldList []string

// MarshalJSON implements json.Marshaler.
func (l FieldList) MarshalJSON() ([]byte, error) {
	if len(l) == 1 {
		return json.Marshal(l[0])
	}
	return json.Marshal([]string(l))
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *FieldList) UnmarshalJSON(b []byte) error {
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		*l = FieldList{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return fmt.Errorf("schema: fields must be a string or a list of strings: %w", err)
	}
	*l = many
	return nil
}

// FieldNames returns field names in declaration order.
func (s Schema) FieldNames() []string {
	out := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		out[i] = f.Name
	}
	return out
}

// Field returns the field called name.
func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Validate checks the schema is self-consistent: unique non-empty field
// names, known types, and keys that name declared fields.
func (s Schema) Validate() error {
	if len(s.Fields) == 0 {
		return fmt.Errorf("schema: no fields")
	}
	seen := make(map[string]bool, len(s.Fields))
	for i, f := range s.Fields {
		if f.Name == "" {
			return fmt.Errorf("schema: field %d has no name", i)
		}
		if seen[f.Name] {
			return fmt.Errorf("schema: duplicate field %q", f.Name)
		}
		seen[f.Name] = true

		switch f.Type {
		case TypeInteger, TypeNumber, TypeString, TypeBoolean:
		default:
			return fmt.Errorf("schema: field %q has unknown type %q", f.Name, f.Type)
		}
		if f.Format == FormatURI && f.Type != TypeString {
			return fmt.Errorf("schema: field %q: format uri requires type string", f.Name)
		}
	}

	for _, k := range s.PrimaryKey {
		if !seen[k] {
			return fmt.Errorf("schema: primary key field %q is not declared", k)
		}
	}
	for i, fk := range s.ForeignKeys {
		if len(fk.Fields) == 0 || len(fk.Fields) != len(fk.Reference.Fields) {
			return fmt.Errorf("schema: foreign key %d: %d fields reference %d", i, len(fk.Fields), len(fk.Reference.Fields))
		}
		if fk.Reference.Resource == "" {
			return fmt.Errorf("schema: foreign key %d has no resource", i)
		}
		for _, f := range fk.Fields {
			if !seen[f] {
				return fmt.Errorf("schema: foreign key field %q is not declared", f)
			}
		}
	}
	return nil
}

// WriteJSON writes s as indented JSON.
func (s Schema) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// TableSpec renders s as a storage table. Primary key columns are NOT NULL;
// other columns are nullable, matching frictionless' default of optional
// fields.
func (s Schema) TableSpec(name string) storage.TableSpec {
	key := make(map[string]bool, len(s.PrimaryKey))
	for _, k := range s.PrimaryKey {
		key[k] = true
	}

	spec := storage.TableSpec{
		Name:       name,
		Columns:    make([]storage.ColumnSpec, len(s.Fields)),
		PrimaryKey: append([]string(nil), s.PrimaryKey...),
	}
	for i, f := range s.Fields {
		spec.Columns[i] = storage.ColumnSpec{
			Name:     f.Name,
			Type:     storageType(f.Type),
			Nullable: !key[f.Name],
		}
	}
	return spec
}

func storageType(t string) string {
	switch t {
	case TypeInteger:
		return storage.TypeInteger
	case TypeNumber:
		return storage.TypeNumber
	case TypeBoolean:
		return storage.TypeBoolean
	default:
		return storage.TypeString
	}
}
