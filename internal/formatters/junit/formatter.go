// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package junit

import (
	"encoding/xml"
	"fmt"
	"strings"

	"stroke-pipeline/internal/formatters"
	"stroke-pipeline/internal/pipeline"
	"stroke-pipeline/internal/validation"
)

// JUnit XML structures based on the standard JUnit XML schema
type TestSuites struct {
	XMLName    xml.Name    `xml:"testsuites"`
	Name       string      `xml:"name,attr"`
	Tests      int         `xml:"tests,attr"`
	Failures   int         `xml:"failures,attr"`
	Errors     int         `xml:"errors,attr"`
	Time       string      `xml:"time,attr"`
	TestSuites []TestSuite `xml:"testsuite"`
}

type TestSuite struct {
	XMLName    xml.Name   `xml:"testsuite"`
	Name       string     `xml:"name,attr"`
	Tests      int        `xml:"tests,attr"`
	Failures   int        `xml:"failures,attr"`
	Errors     int        `xml:"errors,attr"`
	Time       string     `xml:"time,attr"`
	Properties []Property `xml:"properties>property,omitempty"`
	TestCases  []TestCase `xml:"testcase"`
}

type Property struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

type TestCase struct {
	XMLName   xml.Name `xml:"testcase"`
	Name      string   `xml:"name,attr"`
	ClassName string   `xml:"classname,attr"`
	Time      string   `xml:"time,attr"`
	Failure   *Failure `xml:"failure,omitempty"`
}

type Failure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Content string `xml:",chardata"`
}

// Formatter implements JUnit XML output: one suite per case, one test case
// per finding, flagged findings as failures.
type Formatter struct{}

// NewFormatter creates a new JUnit XML formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

func (f *Formatter) Name() string {
	return "junit"
}

func (f *Formatter) Description() string {
	return "JUnit XML format for CI/CD integration, one test per validation finding"
}

func (f *Formatter) FileExtension() string {
	return ".xml"
}

func (f *Formatter) Format(runs []*pipeline.Run, options formatters.FormatterOptions) (string, error) {
	testSuites := TestSuites{
		Name:       "stroke-pipeline",
		Time:       "0.000",
		TestSuites: []TestSuite{},
	}

	for _, run := range runs {
		suite := f.createSuite(run, options)
		testSuites.TestSuites = append(testSuites.TestSuites, suite)
		testSuites.Tests += suite.Tests
		testSuites.Failures += suite.Failures
	}

	xmlData, err := xml.MarshalIndent(testSuites, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JUnit XML: %w", err)
	}

	return xml.Header + string(xmlData) + "\n", nil
}

func (f *Formatter) createSuite(run *pipeline.Run, options formatters.FormatterOptions) TestSuite {
	suite := TestSuite{
		Name: run.CaseID,
		Time: "0.000",
		Properties: []Property{
			{Name: "schema", Value: run.Schema},
			{Name: "probability", Value: pipeline.FormatProbability(run.Probability)},
		},
	}
	if run.Validation == nil {
		return suite
	}
	suite.Properties = append(suite.Properties,
		Property{Name: "recommendation", Value: string(run.Validation.Recommendation.Action)})

	for _, stage := range validation.Stages {
		for i, finding := range run.Validation.Stage(stage) {
			tc := TestCase{
				Name:      f.testName(finding, i),
				ClassName: fmt.Sprintf("%s.%s", sanitizeClassName(run.CaseID), stage),
				Time:      "0.000",
			}
			if finding.Flagged() {
				tc.Failure = &Failure{
					Message: finding.Message,
					Type:    string(stage),
					Content: f.failureContent(finding, options),
				}
				suite.Failures++
			}
			suite.TestCases = append(suite.TestCases, tc)
			suite.Tests++
		}
	}
	return suite
}

func (f *Formatter) testName(finding validation.Finding, index int) string {
	switch {
	case finding.RuleID != "":
		return finding.RuleID
	case finding.Field != "":
		return finding.Field
	case index == 0:
		return strings.ToLower(string(finding.Stage))
	default:
		return fmt.Sprintf("%s-%d", strings.ToLower(string(finding.Stage)), index+1)
	}
}

func (f *Formatter) failureContent(finding validation.Finding, options formatters.FormatterOptions) string {
	var b strings.Builder
	b.WriteString(finding.Message)
	if finding.Constraint != "" {
		fmt.Fprintf(&b, "\nExpected: %s", finding.Constraint)
	}
	if options.Verbose && finding.Detail != "" {
		fmt.Fprintf(&b, "\n%s", finding.Detail)
	}
	return b.String()
}

// sanitizeClassName turns a case ID into a dotted JUnit class name segment
func sanitizeClassName(id string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '.' || r == '/' {
			return '_'
		}
		return r
	}, id)
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
