package oauth

import (
	"testing"

	"github.com/markbates/goth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/ColorCalm/internal/pkg/testutil"
)

func TestRegisterProviders(t *testing.T) {
	t.Setenv("GOOGLE_KEY", "g-key")
	t.Setenv("GOOGLE_SECRET", "g-secret")
	t.Setenv("DISCORD_KEY", "")
	t.Cleanup(goth.ClearProviders)

	names := RegisterProviders("https://colorcalm.example")
	assert.Equal(t, []string{ProviderGoogle}, names)

	p, err := goth.GetProvider(ProviderGoogle)
	require.NoError(t, err)
	assert.Equal(t, ProviderGoogle, p.Name())

	_, err = goth.GetProvider(ProviderDiscord)
	assert.Error(t, err)
}

func TestBaseURL(t *testing.T) {
	t.Setenv("PUBLIC_DOMAIN", "https://colorcalm.example/")
	assert.Equal(t, "https://colorcalm.example", BaseURL())

	t.Setenv("PUBLIC_DOMAIN", "")
	t.Setenv("APP_PORT", "4100")
	assert.Equal(t, "http://localhost:4100", BaseURL())
}

func TestNewStateStore(t *testing.T) {
	_, client := testutil.NewRedis(t)
	assert.NotNil(t, NewStateStore(client))
	assert.True(t, IsSupported("discord"))
	assert.False(t, IsSupported("facebook"))
}
