// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package record

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestValueYAMLKeepsKind(t *testing.T) {
	var r Record
	src := `
NIHSS: 9
ASPECTS: missing
Quoted: "19"
Hypertension: "yes"
`
	require.NoError(t, yaml.Unmarshal([]byte(src), &r))

	n, ok := r["NIHSS"].AsInt()
	assert.True(t, ok)
	assert.Equal(t, 9, n)

	assert.True(t, r["ASPECTS"].IsMissing())

	_, ok = r["Quoted"].AsInt()
	assert.False(t, ok, "quoted numbers stay text")
	assert.Equal(t, "19", r["Quoted"].String())
	assert.Equal(t, "yes", r["Hypertension"].Text)
}

func TestValueYAMLRejectsNonScalar(t *testing.T) {
	var r Record
	err := yaml.Unmarshal([]byte("NIHSS: [1, 2]\n"), &r)
	assert.Error(t, err)
}

func TestValueJSON(t *testing.T) {
	r := Record{"NIHSS": Int(5), "Weakness_Side": Text("left")}
	data, err := json.Marshal(r)
	require.NoError(t, err)

	var back Record
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, r.Equal(back))

	var v Value
	assert.Error(t, json.Unmarshal([]byte("7.5"), &v))
	assert.Error(t, json.Unmarshal([]byte("true"), &v))
}

func TestValueEqual(t *testing.T) {
	assert.True(t, Int(5).Equal(Int(5)))
	assert.False(t, Int(5).Equal(Text("5")))
	assert.False(t, Text("yes").Equal(Text("no")))
}

func TestCloneIsIndependent(t *testing.T) {
	orig := Record{"ASPECTS": Int(7)}
	c := orig.Clone()
	c["ASPECTS"] = Int(5)
	assert.Equal(t, 7, orig["ASPECTS"].Int)
	assert.False(t, orig.Equal(c))
}

func TestSchemaByName(t *testing.T) {
	s, err := SchemaByName("")
	require.NoError(t, err)
	assert.Equal(t, SchemaNarrow, s.Name)
	assert.Len(t, s.Fields, 10)

	e, err := SchemaByName(SchemaExtended)
	require.NoError(t, err)
	assert.Len(t, e.Fields, 18)
	assert.True(t, e.Has(FieldMRICortical))
	assert.False(t, s.Has(FieldMRICortical))

	_, err = SchemaByName("wide")
	assert.Error(t, err)
}

func TestRequireListsMissingFields(t *testing.T) {
	s := Narrow()
	r := Record{}
	for _, name := range s.Names() {
		r[name] = Text("x")
	}
	require.NoError(t, s.Require("c1", r))

	delete(r, FieldSBP)
	delete(r, FieldNIHSS)
	err := s.Require("c1", r)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIncompleteRecord))

	var incomplete *IncompleteRecordError
	require.True(t, errors.As(err, &incomplete))
	assert.Equal(t, []string{FieldNIHSS, FieldSBP}, incomplete.Missing)
}

func TestOrderPutsSchemaFieldsFirst(t *testing.T) {
	s := Narrow()
	r := Record{"Zeta": Text("z"), FieldSBP: Int(120), FieldNIHSS: Int(1), "Alpha": Text("a")}
	assert.Equal(t, []string{FieldNIHSS, FieldSBP, "Alpha", "Zeta"}, s.Order(r))
}

func TestErrorsUnwrap(t *testing.T) {
	assert.True(t, errors.Is(&UnknownCaseError{CaseID: "x"}, ErrUnknownCase))
	assert.True(t, errors.Is(&InapplicableError{CaseID: "x", Field: "f"}, ErrValidationInapplicable))
	assert.Contains(t, (&UnknownCaseError{CaseID: "x", Known: []string{"a", "b"}}).Error(), "a, b")
}
