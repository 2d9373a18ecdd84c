package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_HasEveryScoringTask(t *testing.T) {
	reg := Default()
	for _, taskType := range []string{
		"score-subject", "apply-transaction", "check-eligibility", "train-classifier",
		"score-history", "recalculate-scores", "scoring-analytics",
	} {
		a, ok := reg.Find(taskType)
		if assert.True(t, ok, taskType) {
			assert.Equal(t, "object", a.InputSchema["type"])
		}
	}

	_, ok := reg.Find("unknown")
	assert.False(t, ok)
}

func TestLoadRegistry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":"2","activities":[{"taskType":"score-subject","retries":2}]}`), 0o600))

	reg, err := LoadRegistry(path)
	require.NoError(t, err)
	assert.Equal(t, "2", reg.Version)
	a, ok := reg.Find("score-subject")
	require.True(t, ok)
	assert.Equal(t, 2, a.Retries)
}

func TestLoadRegistry_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	require.NoError(t, os.WriteFile(path, []byte(`{`), 0o600))
	_, err := LoadRegistry(path)
	assert.Error(t, err)
}
