package config

import (
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/duskweb/dusk/backend/headless"
)

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

func TestParseScale(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"", 0, false},
		{"1", 1, false},
		{"2", 2, false},
		{"1.5", 1.5, false},
		{" 1.25 ", 1.25, false},
		{"150%", 1.5, false},
		{"100%", 1, false},
		{"50%", 0.5, false},
		{"0", 0, true},
		{"-1", 0, true},
		{"0%", 0, true},
		{"abc", 0, true},
		{"%", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseScale(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "ParseScale(%q)", tt.in)
			continue
		}
		require.NoError(t, err, "ParseScale(%q)", tt.in)
		assert.Equal(t, tt.want, got, "ParseScale(%q)", tt.in)
	}
}

func TestNew_Defaults(t *testing.T) {
	c, err := New(newViper())
	require.NoError(t, err)
	assert.Equal(t, 800.0, c.Width)
	assert.Equal(t, 600.0, c.Height)
	assert.Equal(t, "auto", c.Backend)
	assert.Equal(t, 0.0, c.Scale)
	assert.False(t, c.Headless)
}

func TestNew_ScreenshotImpliesHeadless(t *testing.T) {
	v := newViper()
	v.Set("screenshot", "out.png")
	c, err := New(v)
	require.NoError(t, err)
	assert.True(t, c.Headless)
	assert.Equal(t, "headless", c.Backend)
}

func TestNew_EnvOverrides(t *testing.T) {
	t.Setenv("DUSK_SCALE", "200%")
	t.Setenv("DUSK_BACKEND", "headless")
	c, err := New(newViper())
	require.NoError(t, err)
	assert.Equal(t, 2.0, c.Scale)
	assert.Equal(t, "headless", c.Backend)
}

func TestNew_RejectsUnknownBackend(t *testing.T) {
	v := newViper()
	v.Set("backend", "cocoa")
	_, err := New(v)
	assert.Error(t, err)
}

func TestNew_RejectsBadScale(t *testing.T) {
	t.Setenv("DUSK_SCALE", "huge")
	_, err := New(newViper())
	assert.Error(t, err)
}

func TestNew_RejectsInvalidViewport(t *testing.T) {
	v := newViper()
	v.Set("width", -10)
	_, err := New(v)
	assert.Error(t, err)
}
