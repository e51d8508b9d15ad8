// pkg/registry/registry_test.go
package registry

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	reg, err := Default()
	require.NoError(t, err)
	require.NoError(t, reg.Validate())

	for _, id := range []string{
		"normalize-input", "parse-user-intent", "enrich-web-search", "query-internal-data",
		"rank-sources", "llm-synthesis", "summarize-sources", "evaluate-confidence",
		"build-answer", "route-engine",
	} {
		a, ok := reg.Get(id)
		require.True(t, ok, id)
		assert.Equal(t, id, a.TaskType)
		assert.NotEmpty(t, a.OutputSchema, id)
	}

	assert.Len(t, reg.TaskTypes(), len(reg.Activities))
	_, ok := reg.Get("validate-subscription")
	assert.False(t, ok)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		reg     ActivityRegistry
		wantErr string
	}{
		{"empty", ActivityRegistry{}, "no activities"},
		{"missing id", ActivityRegistry{Activities: []Activity{{DisplayName: "x"}}}, "ID"},
		{"duplicate", ActivityRegistry{Activities: []Activity{
			{ID: "a", DisplayName: "A", TaskType: "a", Category: "c"},
			{ID: "a", DisplayName: "A", TaskType: "a", Category: "c"},
		}}, "duplicate"},
		{"missing task type", ActivityRegistry{Activities: []Activity{{ID: "a", DisplayName: "A", Category: "c"}}}, "TaskType"},
		{"bad schema", ActivityRegistry{Activities: []Activity{{
			ID: "a", DisplayName: "A", TaskType: "a", Category: "c",
			OutputSchema: map[string]interface{}{"type": 12},
		}}}, "outputSchema"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.reg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadRegistry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":"2","activities":[{"id":"x","displayName":"X","taskType":"x","category":"c"}]}`), 0o644))

	reg, err := LoadRegistry(path)
	require.NoError(t, err)
	assert.Equal(t, "2", reg.Version)
	assert.NoError(t, reg.Validate())

	_, err = LoadRegistry(filepath.Join(t.TempDir(), "missing.json"))
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))
	_, err = LoadRegistry(path)
	assert.Error(t, err)
}

func TestTimeoutDuration(t *testing.T) {
	assert.Equal(t, 12*time.Second, Activity{Timeout: "12s"}.TimeoutDuration(time.Second))
	assert.Equal(t, time.Second, Activity{Timeout: ""}.TimeoutDuration(time.Second))
	assert.Equal(t, time.Second, Activity{Timeout: "soon"}.TimeoutDuration(time.Second))
}
