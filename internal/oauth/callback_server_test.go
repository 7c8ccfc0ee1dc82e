package oauth

import (
	"context"
	"io"
	"net/http"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallbackServer_DeliversParams(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	srv := NewCallbackServer(0, "login")
	redirect, err := srv.Start(ctx)
	require.NoError(t, err)
	defer srv.Stop()
	assert.NotZero(t, srv.Port())
	assert.True(t, strings.HasSuffix(redirect, CallbackPath))

	resp, err := http.Get(redirect + "?code=abc&state=xyz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	assert.Contains(t, string(body), "Discord login complete")

	params, err := srv.WaitForCallback(ctx)
	require.NoError(t, err)
	assert.Equal(t, CallbackParams{Code: "abc", State: "xyz"}, params)
}

func TestCallbackServer_ErrorPageEscapesInput(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	srv := NewCallbackServer(0, "link")
	redirect, err := srv.Start(ctx)
	require.NoError(t, err)
	defer srv.Stop()

	resp, err := http.Get(redirect + "?error=access_denied&error_description=%3Cscript%3Ealert(1)%3C%2Fscript%3E")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "Discord link failed")
	assert.NotContains(t, string(body), "<script>")

	params, err := srv.WaitForCallback(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access_denied", params.Error)
}

func TestCallbackServer_SingleShot(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	srv := NewCallbackServer(0, "")
	redirect, err := srv.Start(ctx)
	require.NoError(t, err)
	defer srv.Stop()

	resp, err := http.Get(redirect + "?code=one&state=s")
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = http.Get(redirect + "?code=two&state=s")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	params, err := srv.WaitForCallback(ctx)
	require.NoError(t, err)
	assert.Equal(t, "one", params.Code)
}

func TestCallbackServer_WaitHonoursContext(t *testing.T) {
	srv := NewCallbackServer(0, "login")
	ctx, cancel := context.WithCancel(context.Background())
	_, err := srv.Start(ctx)
	require.NoError(t, err)
	cancel()

	_, err = srv.WaitForCallback(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpenBrowser(t *testing.T) {
	var launched *exec.Cmd
	original := browserLauncher
	browserLauncher = func(cmd *exec.Cmd) error {
		launched = cmd
		return nil
	}
	defer func() { browserLauncher = original }()

	assert.Error(t, OpenBrowser("file:///etc/passwd"))
	assert.Nil(t, launched)

	err := OpenBrowser("https://api.example.com/api/auth/discord?state=x")
	if err != nil {
		assert.Contains(t, err.Error(), "unsupported platform")
		return
	}
	require.NotNil(t, launched)
	assert.Equal(t, "https://api.example.com/api/auth/discord?state=x", launched.Args[len(launched.Args)-1])
}
