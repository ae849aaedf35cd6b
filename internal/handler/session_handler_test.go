package handler_test

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/linomassaro/SyncStream/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func patchJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPatch, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeSession(t *testing.T, resp *http.Response) model.Session {
	t.Helper()
	var sess model.Session
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sess))
	return sess
}

func TestCreateSession(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/sessions", `{"id":"abc","videoUrl":"http://x/y.mp4"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	sess := decodeSession(t, resp)
	assert.Equal(t, "abc", sess.ID)
	assert.Equal(t, "http://x/y.mp4", sess.VideoURL)
	assert.False(t, sess.IsPlaying)
	assert.Equal(t, 0.0, sess.CurrentTime)
}

func TestCreateSessionIsCreateOrGet(t *testing.T) {
	srv := newTestServer(t)

	postJSON(t, srv.URL+"/sessions", `{"id":"abc","videoUrl":"http://x/y.mp4"}`)
	resp := postJSON(t, srv.URL+"/sessions", `{"id":"abc","videoUrl":"http://other/z.mp4"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	sess := decodeSession(t, resp)
	assert.Equal(t, "http://x/y.mp4", sess.VideoURL, "existing session returned, not overwritten")
}

func TestCreateSessionGeneratesID(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/sessions", `{}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	sess := decodeSession(t, resp)
	assert.NotEmpty(t, sess.ID)
}

func TestGetSessionNotFound(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/sessions/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdateSessionMergesFields(t *testing.T) {
	srv := newTestServer(t)
	postJSON(t, srv.URL+"/sessions", `{"id":"abc","videoUrl":"http://x/y.mp4"}`)

	resp := patchJSON(t, srv.URL+"/sessions/abc", `{"currentTime":30,"isPlaying":true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sess := decodeSession(t, resp)
	assert.Equal(t, 30.0, sess.CurrentTime)
	assert.True(t, sess.IsPlaying)
	assert.Equal(t, "http://x/y.mp4", sess.VideoURL)
}

func TestUpdateSessionNotFound(t *testing.T) {
	srv := newTestServer(t)

	resp := patchJSON(t, srv.URL+"/sessions/nope", `{"isPlaying":true}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestViewersEmptyWithoutConnections(t *testing.T) {
	srv := newTestServer(t)
	postJSON(t, srv.URL+"/sessions", `{"id":"abc"}`)

	resp, err := http.Get(srv.URL + "/sessions/abc/viewers")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out model.SessionViewersResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, 0, out.ViewerCount)
	assert.Empty(t, out.Viewers)
}

func TestViewersUnknownSessionNotFound(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/sessions/nope/viewers")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
