// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package sources

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

// ImageInfo describes an ASPECTS CT image asset
type ImageInfo struct {
	Path       string            `json:"path" yaml:"path"`
	SizeBytes  int64             `json:"size_bytes" yaml:"size_bytes"`
	ModTime    time.Time         `json:"mod_time" yaml:"mod_time"`
	AcquiredAt *time.Time        `json:"acquired_at,omitempty" yaml:"acquired_at,omitempty"`
	Tags       map[string]string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

type exifWalker struct {
	tags map[string]string
}

func (w *exifWalker) Walk(name exif.FieldName, tag *tiff.Tag) error {
	if tag != nil {
		w.tags[string(name)] = tag.String()
	}
	return nil
}

// Image stats an image asset and reads its EXIF tags when present. Images
// without EXIF (PNG exports, anonymised DICOM renders) are not an error.
func Image(path string) (*ImageInfo, error) {
	cleanPath := filepath.Clean(path)
	stat, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("image unavailable: %w", err)
	}
	if stat.IsDir() {
		return nil, fmt.Errorf("image unavailable: %s is a directory", cleanPath)
	}

	info := &ImageInfo{
		Path:      cleanPath,
		SizeBytes: stat.Size(),
		ModTime:   stat.ModTime(),
	}

	f, err := os.Open(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("error opening image: %w", err)
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return info, nil
	}

	walker := &exifWalker{tags: make(map[string]string)}
	if err := x.Walk(walker); err == nil && len(walker.tags) > 0 {
		info.Tags = walker.tags
	}
	if ts, err := x.DateTime(); err == nil {
		info.AcquiredAt = &ts
	}
	return info, nil
}

// ResolveAsset joins a catalog-relative asset path with the assets directory
func ResolveAsset(assetsDir, asset string) string {
	if asset == "" || filepath.IsAbs(asset) || assetsDir == "" {
		return asset
	}
	return filepath.Join(assetsDir, asset)
}
