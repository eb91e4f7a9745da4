package wiretap

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/supergoodsystems/wiretap/pkg/store"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{"WIRETAP_DEBUG", "WIRETAP_SHOW_ON_RELEASE", "WIRETAP_LOG_LEVEL", "WIRETAP_LOG_FILE"} {
		t.Setenv(k, "")
	}
}

func TestOptions_defaults(t *testing.T) {
	clearEnv(t)

	var o *Options
	o, err := o.parse()
	require.NoError(t, err)

	require.Nil(t, o.Settings)
	require.NotNil(t, o.Store)
	require.NotNil(t, o.Sink)
	require.NotNil(t, o.Logger)
	require.NotNil(t, o.OnError)
	require.Equal(t, "info", o.LogLevel)
	require.Equal(t, "", o.LogFile)
	require.Equal(t, time.Duration(0), o.SettingsRefreshInterval)
	require.Equal(t, http.DefaultClient, o.HTTPClient)
	require.Empty(t, o.RedactHeaders)
	require.Empty(t, o.AllowedDomains)
	require.Nil(t, o.SelectRequests)
	require.False(t, o.DisableRequestBody)
	require.False(t, o.DisableResponseBody)
}

func TestOptions_overrides(t *testing.T) {
	clearEnv(t)
	var onErr error
	client := &http.Client{}
	memory := store.NewMemory(10)

	in := &Options{
		Store:                   memory,
		Settings:                &store.Settings{DebugMode: true},
		SettingsRefreshInterval: 5 * time.Second,
		RedactHeaders:           map[string]bool{"X-Api-Key": true},
		AllowedDomains:          []string{"example.com"},
		OnError:                 func(e error) { onErr = e },
		HTTPClient:              client,
		LogLevel:                "debug",
	}
	o, err := in.parse()
	require.NoError(t, err)

	require.Same(t, memory, o.Store)
	require.True(t, o.Settings.DebugMode)
	require.Equal(t, 5*time.Second, o.SettingsRefreshInterval)
	require.True(t, o.RedactHeaders["x-api-key"])
	require.False(t, o.RedactHeaders["X-Api-Key"])
	require.Equal(t, []string{"example.com"}, o.AllowedDomains)
	o.OnError(fmt.Errorf("test error"))
	require.Equal(t, "test error", onErr.Error())
	require.Equal(t, client, o.HTTPClient)
	require.Equal(t, "debug", o.LogLevel)

	// the caller's options are not modified
	require.True(t, in.RedactHeaders["X-Api-Key"])
}

func TestOptions_env(t *testing.T) {
	clearEnv(t)
	t.Setenv("WIRETAP_DEBUG", "true")
	t.Setenv("WIRETAP_LOG_LEVEL", "warn")

	o, err := (&Options{}).parse()
	require.NoError(t, err)
	require.NotNil(t, o.Settings)
	require.True(t, o.Settings.DebugMode)
	require.False(t, o.Settings.ShowOnRelease)
	require.Equal(t, "warn", o.LogLevel)

	// explicit settings win over the environment
	o, err = (&Options{Settings: &store.Settings{}}).parse()
	require.NoError(t, err)
	require.False(t, o.Settings.DebugMode)
}

func TestOptions_errors(t *testing.T) {
	clearEnv(t)
	for _, o := range []*Options{
		{SettingsRefreshInterval: -1},
		{SettingsRefreshInterval: 10},
	} {
		_, err := o.parse()
		require.Error(t, err)
	}

	t.Setenv("WIRETAP_SHOW_ON_RELEASE", "sometimes")
	_, err := (&Options{}).parse()
	require.ErrorContains(t, err, "WIRETAP_SHOW_ON_RELEASE")
}
