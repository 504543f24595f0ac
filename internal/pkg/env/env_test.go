package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvPrefersLoadedFile(t *testing.T) {
	t.Setenv("COLORCALM_TEST_KEY", "from-os")
	Env = map[string]string{"COLORCALM_TEST_KEY": "from-file"}
	t.Cleanup(func() { Env = nil })

	assert.Equal(t, "from-file", GetEnv("COLORCALM_TEST_KEY", "def"))
	delete(Env, "COLORCALM_TEST_KEY")
	assert.Equal(t, "from-os", GetEnv("COLORCALM_TEST_KEY", "def"))
	assert.Equal(t, "def", GetEnv("COLORCALM_TEST_MISSING", "def"))
}

func TestTypedGetters(t *testing.T) {
	t.Setenv("COLORCALM_WORKERS", "4")
	t.Setenv("COLORCALM_FLAG", "true")
	t.Setenv("COLORCALM_BROKEN", "x")

	assert.Equal(t, 4, GetEnvInt("COLORCALM_WORKERS", 1))
	assert.Equal(t, 1, GetEnvInt("COLORCALM_BROKEN", 1))
	assert.True(t, GetEnvBool("COLORCALM_FLAG", false))
	assert.False(t, GetEnvBool("COLORCALM_BROKEN", false))
}

func TestSetupEnvFileWithoutFileUsesOSEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("APP_ENV", "dev")
	t.Cleanup(func() { Env = nil })

	assert.NotPanics(t, SetupEnvFile)
	assert.True(t, IsDev())
}
