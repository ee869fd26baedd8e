// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package sources

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTextPlain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.txt")
	require.NoError(t, os.WriteFile(path, []byte("NIHSS: 9\ntPA administered"), 0600))

	text, err := LoadText(path)
	require.NoError(t, err)
	assert.Equal(t, "NIHSS: 9\ntPA administered", text)
}

func TestLoadTextMissingFile(t *testing.T) {
	_, err := LoadText(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestLoadTextRejectsInvalidPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.PDF")
	require.NoError(t, os.WriteFile(path, []byte("not really a pdf"), 0600))

	_, err := LoadText(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid PDF")
}

func TestFold(t *testing.T) {
	assert.Equal(t, "acute left mca stroke; tpa administered", Fold("Acute LEFT MCA stroke; tPA administered"))
	// full-width letters fold to ASCII under NFKC
	assert.Equal(t, "tpa", Fold("ｔＰＡ"))
	assert.Equal(t, "a\nb", Fold("A\x00\nB"))
}

func TestImageWithoutExif(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aspects1.png")
	png := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	require.NoError(t, os.WriteFile(path, png, 0600))

	info, err := Image(path)
	require.NoError(t, err)
	assert.Equal(t, int64(len(png)), info.SizeBytes)
	assert.Empty(t, info.Tags)
	assert.Nil(t, info.AcquiredAt)
}

func TestImageMissing(t *testing.T) {
	_, err := Image(filepath.Join(t.TempDir(), "none.png"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "image unavailable")

	_, err = Image(t.TempDir())
	assert.Error(t, err)
}

func TestResolveAsset(t *testing.T) {
	assert.Equal(t, filepath.Join("assets", "images", "a.png"), ResolveAsset("assets", "images/a.png"))
	assert.Equal(t, "images/a.png", ResolveAsset("", "images/a.png"))
	assert.Equal(t, "", ResolveAsset("assets", ""))
	abs := filepath.Join(string(filepath.Separator), "srv", "a.png")
	assert.Equal(t, abs, ResolveAsset("assets", abs))
}
