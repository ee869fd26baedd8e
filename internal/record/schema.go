// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package record

import (
	"fmt"
	"sort"
)

// Field names shared by both schemas
const (
	FieldChiefComplaint     = "Chief_Complaint"
	FieldOnsetTime          = "Onset_Time"
	FieldNIHSS              = "NIHSS"
	FieldHypertension       = "Hypertension"
	FieldDiabetes           = "Diabetes"
	FieldAtrialFibrillation = "Atrial_Fibrillation"
	FieldASPECTS            = "ASPECTS"
	FieldTPA                = "tPA_Administered"
	FieldWeaknessSide       = "Weakness_Side"
	FieldSBP                = "SBP"
)

// Extended schema additions
const (
	FieldDyslipidemia          = "Dyslipidemia"
	FieldCardiovascularDisease = "Cardiovascular_Disease"
	FieldPriorStroke           = "Prior_Stroke"
	FieldMalignancy            = "Malignancy"
	FieldESRD                  = "ESRD"
	FieldMRICortical           = "MRI_Cortical_Lesion"
	FieldMRISubcortical        = "MRI_Subcortical_Lesion"
	FieldMRIInfratentorial     = "MRI_Infratentorial_Lesion"
)

// Schema names
const (
	SchemaNarrow   = "narrow"
	SchemaExtended = "extended"
)

// Tri-state values accepted for categorical fields
var TriStateValues = []string{"yes", "no", "unknown"}

// FieldKind describes the format a field must follow
type FieldKind int

const (
	FieldText FieldKind = iota
	FieldTriState
	FieldInteger
)

func (k FieldKind) String() string {
	switch k {
	case FieldTriState:
		return "tristate"
	case FieldInteger:
		return "integer"
	default:
		return "text"
	}
}

// FieldSpec describes one schema field. Min and Max are inclusive and only apply to integers.
type FieldSpec struct {
	Name string
	Kind FieldKind
	Min  int
	Max  int
}

// Constraint renders the expected format for findings
func (f FieldSpec) Constraint() string {
	switch f.Kind {
	case FieldTriState:
		return "yes/no/unknown"
	case FieldInteger:
		return fmt.Sprintf("integer %d–%d", f.Min, f.Max)
	default:
		return "free text"
	}
}

// Schema is an ordered field list. The order is also the export column order.
type Schema struct {
	Name   string
	Fields []FieldSpec
}

var narrowFields = []FieldSpec{
	{Name: FieldChiefComplaint, Kind: FieldText},
	{Name: FieldOnsetTime, Kind: FieldText},
	{Name: FieldNIHSS, Kind: FieldInteger, Min: 0, Max: 42},
	{Name: FieldHypertension, Kind: FieldTriState},
	{Name: FieldDiabetes, Kind: FieldTriState},
	{Name: FieldAtrialFibrillation, Kind: FieldTriState},
	{Name: FieldASPECTS, Kind: FieldInteger, Min: 0, Max: 10},
	{Name: FieldTPA, Kind: FieldTriState},
	{Name: FieldWeaknessSide, Kind: FieldText},
	{Name: FieldSBP, Kind: FieldInteger, Min: 40, Max: 300},
}

var extendedOnly = []FieldSpec{
	{Name: FieldDyslipidemia, Kind: FieldTriState},
	{Name: FieldCardiovascularDisease, Kind: FieldTriState},
	{Name: FieldPriorStroke, Kind: FieldTriState},
	{Name: FieldMalignancy, Kind: FieldTriState},
	{Name: FieldESRD, Kind: FieldTriState},
	{Name: FieldMRICortical, Kind: FieldTriState},
	{Name: FieldMRISubcortical, Kind: FieldTriState},
	{Name: FieldMRIInfratentorial, Kind: FieldTriState},
}

// Narrow returns the canonical ten-field schema
func Narrow() *Schema {
	fields := make([]FieldSpec, len(narrowFields))
	copy(fields, narrowFields)
	return &Schema{Name: SchemaNarrow, Fields: fields}
}

// Extended returns the narrow schema followed by comorbidity and MRI lesion flags
func Extended() *Schema {
	fields := make([]FieldSpec, 0, len(narrowFields)+len(extendedOnly))
	fields = append(fields, narrowFields...)
	fields = append(fields, extendedOnly...)
	return &Schema{Name: SchemaExtended, Fields: fields}
}

// SchemaByName resolves a schema name; an empty name means narrow
func SchemaByName(name string) (*Schema, error) {
	switch name {
	case "", SchemaNarrow:
		return Narrow(), nil
	case SchemaExtended:
		return Extended(), nil
	default:
		return nil, fmt.Errorf("unknown schema %q (expected %s or %s)", name, SchemaNarrow, SchemaExtended)
	}
}

// Field looks up a field spec by name
func (s *Schema) Field(name string) (FieldSpec, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// Has reports whether the schema declares the field
func (s *Schema) Has(name string) bool {
	_, ok := s.Field(name)
	return ok
}

// Names returns the field names in schema order
func (s *Schema) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Require fails with IncompleteRecordError when any schema field is absent
func (s *Schema) Require(caseID string, r Record) error {
	var missing []string
	for _, f := range s.Fields {
		if _, ok := r[f.Name]; !ok {
			missing = append(missing, f.Name)
		}
	}
	if len(missing) > 0 {
		return &IncompleteRecordError{CaseID: caseID, Missing: missing}
	}
	return nil
}

// Order returns the record's field names: schema fields first, then any extras sorted
func (s *Schema) Order(r Record) []string {
	names := make([]string, 0, len(r))
	for _, f := range s.Fields {
		if _, ok := r[f.Name]; ok {
			names = append(names, f.Name)
		}
	}
	var extra []string
	for name := range r {
		if !s.Has(name) {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	return append(names, extra...)
}
