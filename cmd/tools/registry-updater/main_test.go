package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"microfinance-scoring/pkg/registry"
)

func TestExportThenValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "registry.json")
	var out bytes.Buffer

	require.NoError(t, run("export", []string{"-path", path}, &out))
	assert.Contains(t, out.String(), "Wrote 7 activities")

	out.Reset()
	require.NoError(t, run("validate", []string{"-path", path}, &out))
	assert.Contains(t, out.String(), "Found 7 activities")
}

func TestValidateRegistry(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *registry.ActivityRegistry)
		wantErr string
	}{
		{
			name:   "default is valid",
			mutate: func(r *registry.ActivityRegistry) {},
		},
		{
			name:    "empty",
			mutate:  func(r *registry.ActivityRegistry) { r.Activities = nil },
			wantErr: "no activities",
		},
		{
			name: "duplicate id",
			mutate: func(r *registry.ActivityRegistry) {
				r.Activities = append(r.Activities, r.Activities[0])
			},
			wantErr: "duplicate activity ID",
		},
		{
			name:    "missing category",
			mutate:  func(r *registry.ActivityRegistry) { r.Activities[1].Category = "" },
			wantErr: "Category",
		},
		{
			name:    "bad timeout",
			mutate:  func(r *registry.ActivityRegistry) { r.Activities[0].Timeout = "soon" },
			wantErr: "invalid timeout",
		},
		{
			name:    "missing task type",
			mutate:  func(r *registry.ActivityRegistry) { r.Activities = r.Activities[1:] },
			wantErr: "missing task type score-subject",
		},
		{
			name: "schema does not compile",
			mutate: func(r *registry.ActivityRegistry) {
				r.Activities[0].InputSchema = map[string]interface{}{"type": 42}
			},
			wantErr: "compile input schema",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := registry.Default()
			tt.mutate(reg)
			err := validateRegistry(reg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCheckPayload(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.json")
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(good, []byte(`{"subjectId":"s-1","productType":"consumption"}`), 0o644))
	require.NoError(t, os.WriteFile(bad, []byte(`{"productType":"yacht"}`), 0o644))

	var out bytes.Buffer
	require.NoError(t, run("check", []string{"-task", "check-eligibility", "-payload", good}, &out))
	assert.Contains(t, out.String(), `"valid": true`)

	out.Reset()
	err := run("check", []string{"-task", "check-eligibility", "-payload", bad}, &out)
	require.Error(t, err)
	assert.Contains(t, out.String(), `"valid": false`)

	err = run("check", []string{"-task", "no-such-task", "-payload", good}, &out)
	assert.ErrorContains(t, err, "unknown task type")

	err = run("check", []string{"-task", "check-eligibility"}, &out)
	assert.ErrorContains(t, err, "required")
}

func TestUnknownCommand(t *testing.T) {
	var out bytes.Buffer
	err := run("frobnicate", nil, &out)
	require.Error(t, err)
	assert.Contains(t, out.String(), "Usage: registry-updater")
}
