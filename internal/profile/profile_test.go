package profile

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsAIEnabled(t *testing.T) {
	tests := []struct {
		name           string
		setup          func(*Profile)
		expectedResult bool
	}{
		{
			name:           "AIEnabled=false should return false",
			setup:          func(p *Profile) { p.AIEnabled = false },
			expectedResult: false,
		},
		{
			name: "AIEnabled=true but no API key should return false",
			setup: func(p *Profile) {
				p.AIEnabled = true
				p.OpenAIAPIKey = ""
			},
			expectedResult: false,
		},
		{
			name: "AIEnabled=true with OpenAI API key should return true",
			setup: func(p *Profile) {
				p.AIEnabled = true
				p.OpenAIAPIKey = "test-key"
			},
			expectedResult: true,
		},
		{
			name: "AIEnabled=false with API key should return false",
			setup: func(p *Profile) {
				p.AIEnabled = false
				p.OpenAIAPIKey = "test-key"
			},
			expectedResult: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile := &Profile{}
			tt.setup(profile)
			assert.Equal(t, tt.expectedResult, profile.IsAIEnabled())
		})
	}
}

func TestValidate(t *testing.T) {
	t.Run("sqlite dsn defaults into the data dir", func(t *testing.T) {
		dir := t.TempDir()
		p := &Profile{Mode: "dev", Port: 8081, Data: dir, Driver: "sqlite"}
		require.NoError(t, p.Validate())
		assert.Equal(t, filepath.Join(dir, "signalwatch_dev.db"), p.DSN)
	})

	t.Run("unknown mode becomes demo", func(t *testing.T) {
		p := &Profile{Mode: "staging", Port: 8081, Data: t.TempDir(), Driver: "sqlite"}
		require.NoError(t, p.Validate())
		assert.Equal(t, "demo", p.Mode)
		assert.True(t, p.IsDev())
	})

	t.Run("postgres requires a dsn", func(t *testing.T) {
		p := &Profile{Mode: "prod", Port: 8081, Data: t.TempDir(), Driver: "postgres"}
		require.Error(t, p.Validate())

		p.DSN = "postgres://localhost/signalwatch"
		require.NoError(t, p.Validate())
		assert.False(t, p.IsDev())
	})

	t.Run("rejects bad values", func(t *testing.T) {
		base := func() *Profile {
			return &Profile{Mode: "dev", Port: 8081, Data: t.TempDir(), Driver: "sqlite"}
		}

		p := base()
		p.Port = 0
		assert.Error(t, p.Validate())

		p = base()
		p.Driver = "mysql"
		assert.Error(t, p.Validate())

		p = base()
		p.Data = filepath.Join(p.Data, "missing")
		assert.Error(t, p.Validate())

		p = base()
		p.CacheTTL = -time.Second
		assert.Error(t, p.Validate())

		p = base()
		p.RateLimitAIDaily = -1
		assert.Error(t, p.Validate())
	})
}
