package handlers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndListFolders(t *testing.T) {
	router, _ := newTestRouter(t)

	body, contentType := multipartBody(t, map[string]string{"folder_name": "projects"}, "", "")
	rec := doRequest(t, router, http.MethodPost, "/folders", body, contentType)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decodeJSON(t, rec)
	assert.Equal(t, true, got["success"])
	assert.Equal(t, "projects", got["folder_name"])

	// duplicate names are rejected
	body, contentType = multipartBody(t, map[string]string{"folder_name": "projects"}, "", "")
	rec = doRequest(t, router, http.MethodPost, "/folders", body, contentType)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/folders", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	got = decodeJSON(t, rec)
	folders, _ := got["folders"].([]any)
	names := make([]string, 0, len(folders))
	for _, f := range folders {
		info, _ := f.(map[string]any)
		name, _ := info["name"].(string)
		names = append(names, name)
	}
	assert.Contains(t, names, "projects")
}

func TestNestedFolderContents(t *testing.T) {
	router, _ := newTestRouter(t)

	body, contentType := multipartBody(t, map[string]string{"folder_name": "projects"}, "", "")
	rec := doRequest(t, router, http.MethodPost, "/folders", body, contentType)
	require.Equal(t, http.StatusOK, rec.Code)

	body, contentType = multipartBody(t, map[string]string{
		"folder_name":   "august",
		"parent_folder": "projects",
	}, "", "")
	rec = doRequest(t, router, http.MethodPost, "/folders", body, contentType)
	require.Equal(t, http.StatusOK, rec.Code)

	// upload into the nested folder through the wildcard route
	body, contentType = multipartBody(t, map[string]string{"media_type": "image"}, "cover.jpg", "jpg")
	rec = doRequest(t, router, http.MethodPost, "/folders/projects/august/upload", body, contentType)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decodeJSON(t, rec)
	assert.Equal(t, "projects/august", got["folder_path"])
	fileID, _ := got["file_id"].(string)
	assert.NotEmpty(t, fileID)

	rec = doRequest(t, router, http.MethodGet, "/folders/projects/august/contents", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	contents := decodeJSON(t, rec)
	files, _ := contents["files"].([]any)
	require.Len(t, files, 1)

	// the uploaded file is downloadable through the flat storage API
	rec = doRequest(t, router, http.MethodGet, "/storage/"+fileID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "jpg", rec.Body.String())
}

func TestRootContents(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/folders/root/contents", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeJSON(t, rec)
	assert.Contains(t, got, "folders")
	assert.Contains(t, got, "files")
}

func TestDeleteFolder(t *testing.T) {
	router, _ := newTestRouter(t)

	body, contentType := multipartBody(t, map[string]string{"folder_name": "doomed"}, "", "")
	rec := doRequest(t, router, http.MethodPost, "/folders", body, contentType)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodDelete, "/folders/doomed", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeJSON(t, rec)["success"])

	rec = doRequest(t, router, http.MethodDelete, "/folders/doomed", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteProtectedFolder(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, path := range []string{"temp", "Background Music"} {
		rec := doRequest(t, router, http.MethodDelete, "/folders/"+strings.ReplaceAll(path, " ", "%20"), nil, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, "folder %q must not be deletable", path)
	}
}

func TestFolderUploadRejectsScratchType(t *testing.T) {
	router, _ := newTestRouter(t)

	body, contentType := multipartBody(t, map[string]string{"folder_name": "inbox"}, "", "")
	rec := doRequest(t, router, http.MethodPost, "/folders", body, contentType)
	require.Equal(t, http.StatusOK, rec.Code)

	body, contentType = multipartBody(t, map[string]string{"media_type": "tmp"}, "scratch.bin", "x")
	rec = doRequest(t, router, http.MethodPost, "/folders/inbox/upload", body, contentType)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
