package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luciancaetano/roomlink/internal/config"
)

// noRedirect performs requests without following redirects so the handler's
// own Location header can be asserted.
var noRedirect = &http.Client{
	CheckRedirect: func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	},
}

func newFileDropServer(t *testing.T) *httptest.Server {
	t.Helper()

	_, ts := newTestServer(t, func(cfg *config.Config) {
		cfg.FileDrop.Dir = t.TempDir() + "/uploads"
		cfg.FileDrop.TTL = time.Minute
	})
	return ts
}

func uploadFile(t *testing.T, ts *httptest.Server, name, content string) *http.Response {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile(uploadField, name)
	require.NoError(t, err)
	_, err = io.WriteString(part, content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/file-transfer/uploadfile", &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := noRedirect.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	return resp
}

func TestUpload(t *testing.T) {
	ts := newFileDropServer(t)

	resp := uploadFile(t, ts, "my notes.txt", "hello")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t,
		"/file-transfer/upload/?state=success&filename=my-notes.txt",
		resp.Header.Get("Location"))
}

func TestUploadRejected(t *testing.T) {
	ts := newFileDropServer(t)

	// A name that sanitizes to nothing cannot be stored.
	resp := uploadFile(t, ts, "..", "x")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/file-transfer/upload/?state=fail", resp.Header.Get("Location"))

	// So is a form without the expected field.
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/file-transfer/uploadfile", nil)
	require.NoError(t, err)
	resp2, err := noRedirect.Do(req)
	require.NoError(t, err)
	resp2.Body.Close()
	require.Equal(t, http.StatusFound, resp2.StatusCode)
	require.Equal(t, "/file-transfer/upload/?state=fail", resp2.Header.Get("Location"))
}

func TestUploadList(t *testing.T) {
	ts := newFileDropServer(t)

	uploadFile(t, ts, "b.txt", "2")
	uploadFile(t, ts, "a.txt", "1")

	resp, err := http.Get(ts.URL + "/file-transfer/uploads")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Files []uploadEntry `json:"files"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out.Files, 2)
	require.Equal(t, "a.txt", out.Files[0].Name)
	require.Equal(t, "/file-transfer/uploads/a.txt", out.Files[0].URL)
	require.Greater(t, out.Files[0].Expires, time.Now().UnixMilli())
	require.Equal(t, "b.txt", out.Files[1].Name)
}

func TestUploadGet(t *testing.T) {
	ts := newFileDropServer(t)

	uploadFile(t, ts, "data.bin", "contents")

	resp, err := http.Get(ts.URL + "/file-transfer/uploads/data.bin")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "contents", string(body))
}

func TestUploadGetUnknown(t *testing.T) {
	ts := newFileDropServer(t)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/file-transfer/uploads/missing.txt", nil)
	require.NoError(t, err)
	resp, err := noRedirect.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/file-transfer/uploads", resp.Header.Get("Location"))
}

func TestUploadEndpointsDisabled(t *testing.T) {
	// An empty file_drop.dir leaves the routes unregistered.
	_, ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/file-transfer/uploads")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
