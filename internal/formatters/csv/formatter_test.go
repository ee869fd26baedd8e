// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package csv

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeCSVField(t *testing.T) {
	f := NewFormatter()
	tests := map[string]string{
		"plain":                 "plain",
		"a, b":                  `"a, b"`,
		`say "hi"`:              `"say ""hi"""`,
		"line\nbreak":           "\"line\nbreak\"",
		"=HYPERLINK(\"x\")":     `"'=HYPERLINK(""x"")"`,
		"+1":                    "'+1",
		"@cmd":                  "'@cmd",
		"":                      "",
		"2018-08-25 21:40":      "2018-08-25 21:40",
		"Presyncope, bilateral": `"Presyncope, bilateral"`,
	}
	for in, want := range tests {
		assert.Equal(t, want, f.escapeCSVField(in), in)
	}
}
