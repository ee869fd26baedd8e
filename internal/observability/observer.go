// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package observability

import (
	"encoding/json"
	"io"
	"time"
)

// StandardObserver records per-stage timing for pipeline runs
type StandardObserver struct {
	level         ObservabilityLevel
	writer        io.Writer
	DebugObserver *DebugObserver // Set when running with --debug
}

type ObservabilityLevel int

const (
	ObservabilityOff     ObservabilityLevel = 0
	ObservabilityMetrics ObservabilityLevel = 1
	ObservabilityDebug   ObservabilityLevel = 2
)

// NewStandardObserver creates observability component
func NewStandardObserver(level ObservabilityLevel, writer io.Writer) *StandardObserver {
	return &StandardObserver{
		level:  level,
		writer: writer,
	}
}

// New picks the observer for the requested verbosity. Debug mode prints
// step-by-step progress as well as JSON timing records.
func New(debug bool, writer io.Writer) *StandardObserver {
	if !debug {
		return NewStandardObserver(ObservabilityMetrics, writer)
	}
	debugObs := NewDebugObserver(writer)
	observer := debugObs.StandardObserver
	observer.DebugObserver = debugObs
	return observer
}

// StartTiming returns a function to complete timing. A nil observer is a no-op.
func (o *StandardObserver) StartTiming(component, operation, caseID string) func(success bool, metadata map[string]interface{}) {
	if o == nil {
		return func(bool, map[string]interface{}) {}
	}
	start := time.Now()

	var finishStep func(bool, string)
	if o.DebugObserver != nil {
		finishStep = o.DebugObserver.StartStep(component, operation, caseID)
	}

	return func(success bool, metadata map[string]interface{}) {
		duration := time.Since(start)

		data := StandardObservabilityData{
			Component:  component,
			Operation:  operation,
			CaseID:     caseID,
			DurationMs: duration.Milliseconds(),
			Success:    success,
			Metadata:   metadata,
		}
		if n, ok := metadata["findings"].(int); ok {
			data.FindingCount = n
		}
		if msg, ok := metadata["error"].(string); ok {
			data.Error = msg
		}

		if finishStep != nil {
			finishStep(success, "")
		}
		o.LogOperation(data)
	}
}

// Detail prints a detail line under the current debug step
func (o *StandardObserver) Detail(component, detail string) {
	if o == nil || o.DebugObserver == nil {
		return
	}
	o.DebugObserver.LogDetail(component, detail)
}

// Metric prints a metric under the current debug step
func (o *StandardObserver) Metric(component, metric string, value interface{}) {
	if o == nil || o.DebugObserver == nil {
		return
	}
	o.DebugObserver.LogMetric(component, metric, value)
}

// LogOperation logs operation data
func (o *StandardObserver) LogOperation(data StandardObservabilityData) {
	if o == nil || o.level == ObservabilityOff {
		return
	}

	data.RequestID = "run-" + time.Now().Format("20060102-150405")

	// Only log JSON in debug mode
	if o.level == ObservabilityDebug {
		json.NewEncoder(o.writer).Encode(data)
	}
}

// StandardObservabilityData for all components
type StandardObservabilityData struct {
	Component    string                 `json:"component"`
	Operation    string                 `json:"operation"`
	RequestID    string                 `json:"request_id"`
	CaseID       string                 `json:"case_id,omitempty"`
	DurationMs   int64                  `json:"duration_ms,omitempty"`
	Success      bool                   `json:"success"`
	Error        string                 `json:"error,omitempty"`
	FindingCount int                    `json:"finding_count,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}
