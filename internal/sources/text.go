// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package sources

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// maxPDFPages bounds extraction for unexpectedly large scanned records
const maxPDFPages = 50

// LoadText reads a source document. PDFs are validated and their page text
// extracted; every other file is read as UTF-8 text.
func LoadText(path string) (string, error) {
	cleanPath := filepath.Clean(path)
	if strings.EqualFold(filepath.Ext(cleanPath), ".pdf") {
		return loadPDFText(cleanPath)
	}
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return "", fmt.Errorf("error reading source document: %w", err)
	}
	return string(data), nil
}

func loadPDFText(path string) (string, error) {
	if err := api.ValidateFile(path, model.NewDefaultConfiguration()); err != nil {
		return "", fmt.Errorf("invalid PDF %s: %w", filepath.Base(path), err)
	}

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("error opening PDF: %w", err)
	}
	defer f.Close()

	pages := r.NumPage()
	if pages > maxPDFPages {
		pages = maxPDFPages
	}

	var buf bytes.Buffer
	for i := 1; i <= pages; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("error extracting page %d: %w", i, err)
		}
		if buf.Len() > 0 {
			buf.WriteString("\n")
		}
		buf.WriteString(text)
	}
	return strings.TrimSpace(buf.String()), nil
}

// Fold normalises text for keyword matching: NFKC, Unicode case folding and
// removal of control characters other than newlines and tabs.
func Fold(text string) string {
	normed := norm.NFKC.String(text)
	normed = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, normed)
	// Casers carry state; build one per call so concurrent runs stay independent.
	return cases.Fold().String(normed)
}
