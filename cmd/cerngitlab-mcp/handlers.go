package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/ternarybob/arbor"

	"github.com/MohamedElashri/cerngitlab-mcp/internal/gitlab"
	"github.com/MohamedElashri/cerngitlab-mcp/internal/inspect"
	"github.com/MohamedElashri/cerngitlab-mcp/internal/models"
)

// invalidArgumentError is a bad or missing tool parameter
type invalidArgumentError struct {
	message string
}

func (e *invalidArgumentError) Error() string {
	return e.message
}

// requireArg returns a trimmed, non-empty string parameter
func requireArg(request mcp.CallToolRequest, name string) (string, error) {
	value, err := request.RequireString(name)
	if err != nil || strings.TrimSpace(value) == "" {
		return "", &invalidArgumentError{message: fmt.Sprintf("'%s' parameter is required", name)}
	}
	return strings.TrimSpace(value), nil
}

func optionalArg(request mcp.CallToolRequest, name string) string {
	return strings.TrimSpace(request.GetString(name, ""))
}

// enumArg returns an optional parameter restricted to allowed values
func enumArg(request mcp.CallToolRequest, name string, allowed ...string) (string, error) {
	value := optionalArg(request, name)
	if value == "" {
		return "", nil
	}
	for _, a := range allowed {
		if value == a {
			return value, nil
		}
	}
	return "", &invalidArgumentError{
		message: fmt.Sprintf("'%s' must be one of %s, got %q", name, strings.Join(allowed, ", "), value),
	}
}

// perPage reads per_page, falling back to def, bounded by the configured page sizes
func (d *toolDeps) perPage(request mcp.CallToolRequest, def int) int {
	return d.client.ClampPerPage(request.GetInt("per_page", def))
}

// pageArg reads the optional 1-based start page
func pageArg(request mcp.CallToolRequest) int {
	return request.GetInt("page", 1)
}

// resolve reads project and ref and resolves them once for this call
func (d *toolDeps) resolve(ctx context.Context, request mcp.CallToolRequest) (*models.ProjectReference, error) {
	project, err := requireArg(request, "project")
	if err != nil {
		return nil, err
	}
	return d.client.ResolveProject(ctx, project, optionalArg(request, "ref"))
}

// projectOnly builds a reference for endpoints that take no ref, saving the
// default branch lookup
func projectOnly(identifier string) *models.ProjectReference {
	return &models.ProjectReference{Identifier: identifier, ResolvedPath: gitlab.EncodeProject(identifier)}
}

// connectivity probes the instance and never fails; problems are reported in the status
func (d *toolDeps) connectivity(ctx context.Context) *connectivityStatus {
	status := &connectivityStatus{
		GitLabURL:     d.client.InstanceURL(),
		Authenticated: d.client.HasToken(),
	}

	version, err := d.client.Version(ctx)
	if err != nil {
		status.Authenticated = false
		var rejected *gitlab.RequestRejectedError
		if errors.As(err, &rejected) && rejected.StatusCode == http.StatusUnauthorized {
			status.Status = statusAuthError
			status.Error = "invalid or expired token"
			return status
		}
		status.Status = statusError
		status.Error = gitlab.AsTimeout(ctx, "test connectivity", err).Error()
		return status
	}

	status.Status = statusConnected
	status.Version = version.Version
	status.Revision = version.Revision
	return status
}

func (d *toolDeps) testConnectivity(ctx context.Context, request mcp.CallToolRequest, logger arbor.ILogger) (interface{}, error) {
	status := d.connectivity(ctx)
	logger.Info().Str("status", status.Status).Str("gitlab_url", status.GitLabURL).Msg("Connectivity checked")
	return status, nil
}

func (d *toolDeps) searchRepositories(ctx context.Context, request mcp.CallToolRequest, logger arbor.ILogger) (interface{}, error) {
	sortBy, err := enumArg(request, "sort_by", "last_activity_at", "name", "created_at", "updated_at", "stars")
	if err != nil {
		return nil, err
	}
	order, err := enumArg(request, "order", "desc", "asc")
	if err != nil {
		return nil, err
	}

	opts := models.ProjectSearchOptions{
		Query:    optionalArg(request, "query"),
		Language: optionalArg(request, "language"),
		Topic:    optionalArg(request, "topic"),
		OrderBy:  sortBy,
		Sort:     order,
		PerPage:  d.perPage(request, 0),
	}
	projects, err := d.client.SearchProjects(ctx, opts)
	if err != nil {
		return nil, err
	}

	logger.Debug().Str("query", opts.Query).Int("results", len(projects)).Msg("Repositories searched")
	return newRepositorySearch(opts, projects), nil
}

func (d *toolDeps) getProjectInfo(ctx context.Context, request mcp.CallToolRequest, logger arbor.ILogger) (interface{}, error) {
	project, err := requireArg(request, "project")
	if err != nil {
		return nil, err
	}
	return d.client.GetProjectDetails(ctx, project)
}

func (d *toolDeps) listRepositoryFiles(ctx context.Context, request mcp.CallToolRequest, logger arbor.ILogger) (interface{}, error) {
	project, err := d.resolve(ctx, request)
	if err != nil {
		return nil, err
	}
	dir := strings.Trim(optionalArg(request, "path"), "/")
	recursive := request.GetBool("recursive", false)

	entries, err := d.client.ListTreePage(ctx, project, dir, recursive, pageArg(request), d.perPage(request, gitlab.MaxPerPage))
	if err != nil {
		if gitlab.IsNotFound(err) && dir == "" && pageArg(request) <= 1 {
			return nil, &gitlab.ProjectNotFoundError{Project: project.Identifier}
		}
		return nil, err
	}
	return newFileListing(project, dir, recursive, entries), nil
}

func (d *toolDeps) getFileContent(ctx context.Context, request mcp.CallToolRequest, logger arbor.ILogger) (interface{}, error) {
	filePath, err := requireArg(request, "file_path")
	if err != nil {
		return nil, err
	}
	project, err := d.resolve(ctx, request)
	if err != nil {
		return nil, err
	}

	file, err := d.client.GetFile(ctx, project, strings.TrimPrefix(filePath, "/"))
	if err != nil {
		return nil, err
	}
	if file.Binary {
		logger.Debug().Str("path", file.FilePath).Str("mime_type", file.MimeType).Msg("Binary file not decoded")
	}
	return &fileContent{Project: project.Identifier, RepoFile: file}, nil
}

func (d *toolDeps) getProjectReadme(ctx context.Context, request mcp.CallToolRequest, logger arbor.ILogger) (interface{}, error) {
	project, err := d.resolve(ctx, request)
	if err != nil {
		return nil, err
	}
	readme, err := inspect.FetchReadme(ctx, d.client, project)
	if err != nil {
		return nil, err
	}
	return &projectReadme{Project: project.Identifier, Readme: readme}, nil
}

func (d *toolDeps) searchCode(ctx context.Context, request mcp.CallToolRequest, logger arbor.ILogger) (interface{}, error) {
	term, err := requireArg(request, "search_term")
	if err != nil {
		return nil, err
	}
	scope, err := enumArg(request, "scope", string(models.SearchScopeBlobs), string(models.SearchScopeFilenames))
	if err != nil {
		return nil, err
	}

	return d.search.Search(ctx, models.CodeSearchQuery{
		Project: optionalArg(request, "project"),
		Ref:     optionalArg(request, "ref"),
		Term:    term,
		Scope:   models.SearchScope(scope),
		Limit:   d.perPage(request, 0),
	})
}

func (d *toolDeps) searchIssues(ctx context.Context, request mcp.CallToolRequest, logger arbor.ILogger) (interface{}, error) {
	term, err := requireArg(request, "search_term")
	if err != nil {
		return nil, err
	}
	state, err := enumArg(request, "state", "opened", "closed", "all")
	if err != nil {
		return nil, err
	}

	var project *models.ProjectReference
	if identifier := optionalArg(request, "project"); identifier != "" {
		project = projectOnly(identifier)
	}

	issues, err := d.client.SearchIssues(ctx, project, models.IssueSearchOptions{
		Search:  term,
		State:   state,
		PerPage: d.perPage(request, 10),
	})
	if err != nil {
		return nil, err
	}
	return newIssueSearch(term, project, issues), nil
}

func (d *toolDeps) getWikiPages(ctx context.Context, request mcp.CallToolRequest, logger arbor.ILogger) (interface{}, error) {
	identifier, err := requireArg(request, "project")
	if err != nil {
		return nil, err
	}
	project := projectOnly(identifier)

	if slug := optionalArg(request, "page_slug"); slug != "" {
		page, err := d.client.GetWikiPage(ctx, project, slug)
		if err != nil {
			return nil, err
		}
		return &wikiResult{Project: identifier, Mode: "detail", Page: page}, nil
	}

	pages, err := d.client.ListWikiPages(ctx, project)
	if err != nil {
		return nil, err
	}
	return &wikiResult{Project: identifier, Mode: "list", TotalPages: len(pages), Pages: nonNil(pages)}, nil
}

func (d *toolDeps) listReleases(ctx context.Context, request mcp.CallToolRequest, logger arbor.ILogger) (interface{}, error) {
	identifier, err := requireArg(request, "project")
	if err != nil {
		return nil, err
	}
	releases, err := d.client.ListReleases(ctx, projectOnly(identifier), pageArg(request), d.perPage(request, 0))
	if err != nil {
		return nil, err
	}
	return &releaseList{Project: identifier, TotalReleases: len(releases), Releases: nonNil(releases)}, nil
}

func (d *toolDeps) getRelease(ctx context.Context, request mcp.CallToolRequest, logger arbor.ILogger) (interface{}, error) {
	identifier, err := requireArg(request, "project")
	if err != nil {
		return nil, err
	}
	tagName, err := requireArg(request, "tag_name")
	if err != nil {
		return nil, err
	}
	release, err := d.client.GetRelease(ctx, projectOnly(identifier), tagName)
	if err != nil {
		return nil, err
	}
	return &releaseDetail{Project: identifier, Release: release}, nil
}

func (d *toolDeps) listTags(ctx context.Context, request mcp.CallToolRequest, logger arbor.ILogger) (interface{}, error) {
	identifier, err := requireArg(request, "project")
	if err != nil {
		return nil, err
	}
	orderBy, err := enumArg(request, "order_by", "name", "updated", "version")
	if err != nil {
		return nil, err
	}
	sort, err := enumArg(request, "sort", "asc", "desc")
	if err != nil {
		return nil, err
	}

	tags, err := d.client.ListTags(ctx, projectOnly(identifier), optionalArg(request, "search"), orderBy, sort, pageArg(request), d.perPage(request, 0))
	if err != nil {
		return nil, err
	}
	return &tagList{Project: identifier, TotalTags: len(tags), Tags: nonNil(tags)}, nil
}

func (d *toolDeps) listBranches(ctx context.Context, request mcp.CallToolRequest, logger arbor.ILogger) (interface{}, error) {
	identifier, err := requireArg(request, "project")
	if err != nil {
		return nil, err
	}
	branches, err := d.client.ListBranches(ctx, projectOnly(identifier), optionalArg(request, "search"), pageArg(request), d.perPage(request, 0))
	if err != nil {
		return nil, err
	}
	return &branchList{Project: identifier, TotalBranches: len(branches), Branches: nonNil(branches)}, nil
}

func (d *toolDeps) analyzeDependencies(ctx context.Context, request mcp.CallToolRequest, logger arbor.ILogger) (interface{}, error) {
	project, err := requireArg(request, "project")
	if err != nil {
		return nil, err
	}
	report, err := d.inspector.Inspect(ctx, project, optionalArg(request, "ref"))
	if err != nil {
		return nil, err
	}
	logger.Info().
		Str("project", report.Project).
		Int("dependencies", len(report.Dependencies)).
		Int("parse_failures", len(report.ParseFailures)).
		Msg("Dependencies analysed")
	return newDependencyAnalysis(report), nil
}

func (d *toolDeps) getCIConfig(ctx context.Context, request mcp.CallToolRequest, logger arbor.ILogger) (interface{}, error) {
	project, err := requireArg(request, "project")
	if err != nil {
		return nil, err
	}
	return d.inspector.CIConfig(ctx, project, optionalArg(request, "ref"))
}

func (d *toolDeps) getBuildConfig(ctx context.Context, request mcp.CallToolRequest, logger arbor.ILogger) (interface{}, error) {
	project, err := requireArg(request, "project")
	if err != nil {
		return nil, err
	}
	return d.inspector.BuildConfig(ctx, project, optionalArg(request, "ref"))
}

func (d *toolDeps) inspectProject(ctx context.Context, request mcp.CallToolRequest, logger arbor.ILogger) (interface{}, error) {
	project, err := requireArg(request, "project")
	if err != nil {
		return nil, err
	}
	report, err := d.inspector.Inspect(ctx, project, optionalArg(request, "ref"))
	if err != nil {
		return nil, err
	}
	logger.Info().
		Str("project", report.Project).
		Str("ref", report.Ref).
		Int("manifests", len(report.Manifests)).
		Int("parse_failures", len(report.ParseFailures)).
		Msg("Project inspected")
	return report, nil
}
