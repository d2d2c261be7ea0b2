package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExtractionConfig_Defaults(t *testing.T) {
	cfg, err := ParseExtractionConfig()
	require.NoError(t, err)

	assert.Equal(t, 0, cfg.MaxChunks)
	assert.Equal(t, 50, cfg.ContextBucketCap)
	assert.Equal(t, 800, cfg.SummaryMaxTokens)
	assert.Equal(t, 10*time.Minute, cfg.RunTimeout)
	assert.True(t, cfg.NormalizeMarkup)
}

func TestParseExtractionConfig_Invalid(t *testing.T) {
	t.Setenv("CONTEXT_BUCKET_CAP", "0")

	_, err := ParseExtractionConfig()
	require.Error(t, err)

	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	require.Len(t, verrs, 1)
	assert.Contains(t, verrs[0].Field, "ContextBucketCap")
	assert.Equal(t, "must be at least 1", verrs[0].Message)
}

func TestParseProviderConfig(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr bool
	}{
		{
			name: "openrouter with key",
			env:  map[string]string{"LLM_PROVIDER": "openrouter", "OPENROUTER_API_KEY": "k"},
		},
		{
			name:    "openrouter without key",
			env:     map[string]string{"LLM_PROVIDER": "openrouter", "OPENROUTER_API_KEY": ""},
			wantErr: true,
		},
		{
			name:    "unknown provider",
			env:     map[string]string{"LLM_PROVIDER": "carrier-pigeon"},
			wantErr: true,
		},
		{
			name: "ollama needs no key",
			env:  map[string]string{"LLM_PROVIDER": "ollama", "LLM_MODEL": "llama3"},
		},
		{
			name:    "zero rate",
			env:     map[string]string{"LLM_PROVIDER": "ollama", "ORACLE_RPS": "0"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := ParseProviderConfig()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.env["LLM_PROVIDER"], cfg.Provider)
			assert.Equal(t, 1, cfg.OracleBurst)
		})
	}
}

func TestParseAppConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HEALTHMEM_RUNTIME_PATH", dir)

	cfg, err := ParseAppConfig()
	require.NoError(t, err)
	assert.Equal(t, StorageSQLite, cfg.StorageDriver)
	assert.Equal(t, filepath.Join(dir, "healthmem.db"), cfg.GetDatabasePath())

	t.Setenv("STORAGE_DRIVER", "postgres")
	_, err = ParseAppConfig()
	assert.Error(t, err, "postgres without DATABASE_URL")
}

func TestGetRuntimePath_Relative(t *testing.T) {
	t.Setenv("HEALTHMEM_RUNTIME_PATH", "")
	assert.True(t, filepath.IsAbs(GetRuntimePath()))
}
