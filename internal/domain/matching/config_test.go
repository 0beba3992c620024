package matching

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "matching_config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, []string{"1K", "D9", "F8", "9A"}, cfg.ReferenceQualifierPriority)

	cfg, err = LoadConfig(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Equal(t, DefaultQualifierPriority, cfg.ReferenceQualifierPriority)
}

func TestLoadConfig_FromFile(t *testing.T) {
	path := writeConfig(t, `{"reference_qualifier_priority": ["D9", " 1K ", ""]}`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"D9", "1K"}, cfg.ReferenceQualifierPriority)
}

func TestLoadConfig_FallsBack(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"not a list", `{"reference_qualifier_priority": "D9"}`, false},
		{"empty list", `{"reference_qualifier_priority": []}`, false},
		{"key absent", `{"other": 1}`, false},
		{"malformed", `{"reference_qualifier_priority": [`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfig(writeConfig(t, tt.body))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			require.NotNil(t, cfg)
			assert.Equal(t, DefaultQualifierPriority, cfg.ReferenceQualifierPriority)
		})
	}
}

func TestDefaultConfig_IsACopy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ReferenceQualifierPriority[0] = "ZZ"
	assert.Equal(t, "1K", DefaultQualifierPriority[0])
}
