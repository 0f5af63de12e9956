package gitlab

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MohamedElashri/cerngitlab-mcp/internal/models"
)

func TestEncodeProject(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"12345", "12345"},
		{"lhcb/DaVinci", "lhcb%2FDaVinci"},
		{"atlas/athena", "atlas%2Fathena"},
		{"group/sub group/repo", "group%2Fsub%20group%2Frepo"},
		{"  lhcb/Moore  ", "lhcb%2FMoore"},
		{"12a", "12a"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, EncodeProject(tt.input))
		})
	}
}

func TestResolveProject_PathIsEncodedOnceAndDefaultBranchLookedUp(t *testing.T) {
	var (
		gotPath  string
		gotStats string
		requests atomic.Int32
	)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		gotPath = r.URL.EscapedPath()
		gotStats = r.URL.Query().Get("statistics")
		w.Write([]byte(`{"id":42,"path_with_namespace":"lhcb/DaVinci","default_branch":"master","ci_config_path":"ci/pipeline.yml"}`))
	})
	c, _, _ := newTestClient(t, handler)

	ref, err := c.ResolveProject(context.Background(), "lhcb/DaVinci", "")
	require.NoError(t, err)

	assert.Equal(t, "/api/v4/projects/lhcb%2FDaVinci", gotPath)
	assert.Equal(t, "false", gotStats)
	assert.Equal(t, int32(1), requests.Load())
	assert.Equal(t, "lhcb%2FDaVinci", ref.ResolvedPath)
	assert.Equal(t, "master", ref.DefaultRef)
	assert.Equal(t, "master", ref.Ref)
	assert.Equal(t, "ci/pipeline.yml", ref.CIConfigPath)
}

func TestResolveProject_NumericIDPassesThrough(t *testing.T) {
	var gotPath string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.Write([]byte(`{"id":12345,"default_branch":"main"}`))
	})
	c, _, _ := newTestClient(t, handler)

	ref, err := c.ResolveProject(context.Background(), "12345", "")
	require.NoError(t, err)
	assert.Equal(t, "/api/v4/projects/12345", gotPath)
	assert.Equal(t, "12345", ref.ResolvedPath)
	assert.Equal(t, "main", ref.Ref)
}

func TestResolveProject_SuppliedRefSkipsLookup(t *testing.T) {
	var requests atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	})
	c, _, _ := newTestClient(t, handler)

	ref, err := c.ResolveProject(context.Background(), "lhcb/DaVinci", "v45r0")
	require.NoError(t, err)
	assert.Equal(t, "v45r0", ref.Ref)
	assert.Empty(t, ref.DefaultRef)
	assert.Equal(t, int32(0), requests.Load())
}

func TestResolveProject_EmptyDefaultBranchFallsBackToMain(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":7,"default_branch":null}`))
	})
	c, _, _ := newTestClient(t, handler)

	ref, err := c.ResolveProject(context.Background(), "empty/repo", "")
	require.NoError(t, err)
	assert.Equal(t, "main", ref.Ref)
}

func TestResolveProject_NotFound(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"404 Project Not Found"}`))
	})
	c, _, _ := newTestClient(t, handler)

	_, err := c.ResolveProject(context.Background(), "nobody/nothing", "")
	var notFound *ProjectNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "nobody/nothing", notFound.Project)
	assert.Equal(t, KindProjectNotFound, ErrorKind(err))
}

func TestResolveProject_EmptyIdentifier(t *testing.T) {
	c := NewClient("http://unused.invalid")
	_, err := c.ResolveProject(context.Background(), "  ", "")
	assert.Error(t, err)
}

func TestSearchProjects_MapsParameters(t *testing.T) {
	var query map[string]string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = map[string]string{}
		for k := range r.URL.Query() {
			query[k] = r.URL.Query().Get(k)
		}
		w.Write([]byte(`[{"id":1,"name":"ROOT","star_count":12}]`))
	})
	c, _, _ := newTestClient(t, handler)

	projects, err := c.SearchProjects(context.Background(), models.ProjectSearchOptions{
		Query:   "root",
		OrderBy: "stars",
		PerPage: 500,
	})
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, 12, projects[0].StarCount)

	assert.Equal(t, "public", query["visibility"])
	assert.Equal(t, "root", query["search"])
	assert.Equal(t, "star_count", query["order_by"])
	assert.Equal(t, "desc", query["sort"])
	assert.Equal(t, "100", query["per_page"], "page size clamped to the maximum")
}

func TestGetProjectDetails_LanguagesFailureIsTolerated(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.EscapedPath() == "/api/v4/projects/lhcb%2FDaVinci/languages" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Write([]byte(`{"id":3,"name":"DaVinci","statistics":{"commit_count":10}}`))
	})
	c, _, _ := newTestClient(t, handler)

	details, err := c.GetProjectDetails(context.Background(), "lhcb/DaVinci")
	require.NoError(t, err)
	assert.Equal(t, "DaVinci", details.Name)
	require.NotNil(t, details.Statistics)
	assert.Equal(t, int64(10), details.Statistics.CommitCount)
	assert.Empty(t, details.Languages)
}
