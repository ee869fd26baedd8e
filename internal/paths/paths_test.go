// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package paths

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetConfigDirOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("STROKE_PIPELINE_CONFIG_DIR", dir)
	assert.Equal(t, dir, GetConfigDir())
	assert.Equal(t, filepath.Join(dir, "config.yaml"), GetConfigFile())
}

func TestGetConfigDirXDG(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("XDG lookup is unix only")
	}
	t.Setenv("STROKE_PIPELINE_CONFIG_DIR", "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	assert.Equal(t, filepath.Join("/xdg", "stroke-pipeline"), GetConfigDir())
}

func TestGetDataDir(t *testing.T) {
	t.Setenv("STROKE_PIPELINE_DATA_DIR", "/data")
	assert.Equal(t, "/data", GetDataDir())

	t.Setenv("STROKE_PIPELINE_DATA_DIR", "")
	t.Setenv("XDG_DATA_HOME", "")
	t.Setenv("STROKE_PIPELINE_CONFIG_DIR", "/cfg")
	assert.Equal(t, "/cfg", GetDataDir())
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "audit.db"), ExpandHome("~/audit.db"))
	assert.Equal(t, "relative/a.db", ExpandHome("relative/a.db"))
	assert.Equal(t, "~user/a.db", ExpandHome("~user/a.db"))
}

func TestValidatePath(t *testing.T) {
	assert.NoError(t, ValidatePath("cases.yaml"))
	err := ValidatePath("bad\x00path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "null byte")
}
