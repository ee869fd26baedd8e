// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package prediction

import (
	"errors"
	"testing"

	"stroke-pipeline/internal/record"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepPredictor(t *testing.T) {
	tests := []struct {
		aspects int
		want    float64
	}{
		{0, 0.55},
		{5, 0.55},
		{6, 0.32},
		{7, 0.32},
		{8, 0.10},
		{10, 0.10},
	}
	p := NewStepPredictor()
	for _, tc := range tests {
		got, err := p.Predict(record.Record{record.FieldASPECTS: record.Int(tc.aspects)})
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "ASPECTS %d", tc.aspects)
	}
}

func TestStepPredictorRejectsNonNumeric(t *testing.T) {
	p := NewStepPredictor()

	_, err := p.Predict(record.Record{record.FieldASPECTS: record.Text(record.MissingSentinel)})
	assert.True(t, errors.Is(err, ErrNoSeverityScore))

	_, err = p.Predict(record.Record{})
	assert.True(t, errors.Is(err, ErrNoSeverityScore))

	_, err = p.Predict(record.Record{record.FieldASPECTS: record.Text("7")})
	assert.True(t, errors.Is(err, ErrNoSeverityScore), "text never converts to a score")
}

func TestPredictorInterface(t *testing.T) {
	var p Predictor = NewStepPredictor()
	got, err := p.Predict(record.Record{record.FieldASPECTS: record.Int(5)})
	require.NoError(t, err)
	assert.Equal(t, 0.55, got)
}
