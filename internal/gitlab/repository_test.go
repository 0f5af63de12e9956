package gitlab

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MohamedElashri/cerngitlab-mcp/internal/models"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d, 'I', 'H', 'D', 'R'}

func fileHandler(t *testing.T, files map[string][]byte) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/api/v4/projects/lhcb/DaVinci/repository/files/")
		data, ok := files[name]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"message":"404 File Not Found"}`))
			return
		}
		assert.Equal(t, "main", r.URL.Query().Get("ref"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"file_name": name,
			"file_path": name,
			"size":      len(data),
			"encoding":  "base64",
			"content":   base64.StdEncoding.EncodeToString(data),
			"ref":       "main",
		})
	})
}

func testProject() *models.ProjectReference {
	return &models.ProjectReference{
		Identifier:   "lhcb/DaVinci",
		ResolvedPath: "lhcb%2FDaVinci",
		Ref:          "main",
	}
}

func TestGetFile_DecodesText(t *testing.T) {
	c, _, _ := newTestClient(t, fileHandler(t, map[string][]byte{
		"src/main.py": []byte("print('hi')\n"),
	}))

	file, err := c.GetFile(context.Background(), testProject(), "src/main.py")
	require.NoError(t, err)

	assert.False(t, file.Binary)
	assert.Equal(t, "print('hi')\n", file.Content)
	assert.Equal(t, "python", file.Language)
	assert.Equal(t, "text", file.Encoding)
	assert.Equal(t, int64(12), file.Size)
}

func TestGetFile_PathIsEncodedAsOneSegment(t *testing.T) {
	var escaped string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		escaped = r.URL.EscapedPath()
		w.Write([]byte(`{"file_name":"CMakeLists.txt","encoding":"base64","content":""}`))
	})
	c, _, _ := newTestClient(t, handler)

	_, err := c.GetFile(context.Background(), testProject(), "Phys/CMakeLists.txt")
	require.NoError(t, err)
	assert.Equal(t, "/api/v4/projects/lhcb%2FDaVinci/repository/files/Phys%2FCMakeLists.txt", escaped)
}

func TestGetFile_BinaryContentIsNotDecoded(t *testing.T) {
	c, _, _ := newTestClient(t, fileHandler(t, map[string][]byte{
		"docs/logo.png": pngHeader,
		"data/blob.bin": {0x00, 0xff, 0xfe, 0x01, 0x02},
	}))

	for _, name := range []string{"docs/logo.png", "data/blob.bin"} {
		t.Run(name, func(t *testing.T) {
			file, err := c.GetFile(context.Background(), testProject(), name)
			require.NoError(t, err)
			assert.True(t, file.Binary)
			assert.Empty(t, file.Content)
		})
	}
}

func TestGetFile_MissingFileIsRejected(t *testing.T) {
	c, _, _ := newTestClient(t, fileHandler(t, map[string][]byte{}))

	_, err := c.GetFile(context.Background(), testProject(), "nope.txt")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestListTree_SendsRefPathAndRecursive(t *testing.T) {
	var query map[string]string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = map[string]string{}
		for k := range r.URL.Query() {
			query[k] = r.URL.Query().Get(k)
		}
		w.Write([]byte(`[{"name":"CMakeLists.txt","type":"blob","path":"Phys/CMakeLists.txt"}]`))
	})
	c, _, _ := newTestClient(t, handler)

	entries, err := c.ListTree(context.Background(), testProject(), "/Phys/", true, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].IsBlob())

	assert.Equal(t, "Phys", query["path"])
	assert.Equal(t, "main", query["ref"])
	assert.Equal(t, "true", query["recursive"])
	assert.Equal(t, "100", query["per_page"])
}

func TestListTags_RequestsCallerPage(t *testing.T) {
	var query url.Values
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		w.Write([]byte(`[{"name":"v2r0"}]`))
	})
	c, _, _ := newTestClient(t, handler)

	tags, err := c.ListTags(context.Background(), testProject(), "v2", "version", "desc", 3, 5)
	require.NoError(t, err)
	require.Len(t, tags, 1)

	assert.Equal(t, "3", query.Get("page"))
	assert.Equal(t, "5", query.Get("per_page"))
	assert.Equal(t, "v2", query.Get("search"))
	assert.Equal(t, "version", query.Get("order_by"))
}

func TestLanguageHint(t *testing.T) {
	tests := map[string]string{
		"CMakeLists.txt":    "cmake",
		"src/Makefile":      "makefile",
		"src/algo.cpp":      "cpp",
		"src/Algo.C":        "cpp",
		"src/algo.c":        "c",
		"mod/physics.F90":   "fortran",
		"README.md":         "markdown",
		"unknown.extension": "",
	}
	for input, want := range tests {
		t.Run(input, func(t *testing.T) {
			assert.Equal(t, want, LanguageHint(input))
		})
	}
}

func TestIsBinaryPath(t *testing.T) {
	assert.True(t, IsBinaryPath("data/events.root"))
	assert.True(t, IsBinaryPath("img/Logo.PNG"))
	assert.False(t, IsBinaryPath("src/main.py"))
	assert.False(t, IsBinaryPath("Makefile"))
}
