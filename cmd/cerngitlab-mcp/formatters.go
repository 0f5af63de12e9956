package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/MohamedElashri/cerngitlab-mcp/internal/gitlab"
	"github.com/MohamedElashri/cerngitlab-mcp/internal/inspect"
	"github.com/MohamedElashri/cerngitlab-mcp/internal/models"
)

const (
	statusConnected = "connected"
	statusAuthError = "auth_error"
	statusError     = "error"
)

// connectivityStatus is the test_connectivity payload
type connectivityStatus struct {
	Status        string `json:"status"`
	GitLabURL     string `json:"gitlab_url"`
	Version       string `json:"version,omitempty"`
	Revision      string `json:"revision,omitempty"`
	Authenticated bool   `json:"authenticated"`
	Error         string `json:"error,omitempty"`
}

type repositorySearch struct {
	Query    string           `json:"query,omitempty"`
	Language string           `json:"language,omitempty"`
	Topic    string           `json:"topic,omitempty"`
	Total    int              `json:"total"`
	Projects []models.Project `json:"projects"`
}

func newRepositorySearch(opts models.ProjectSearchOptions, projects []models.Project) *repositorySearch {
	return &repositorySearch{
		Query:    opts.Query,
		Language: opts.Language,
		Topic:    opts.Topic,
		Total:    len(projects),
		Projects: nonNil(projects),
	}
}

type fileListing struct {
	Project   string             `json:"project"`
	Ref       string             `json:"ref"`
	Path      string             `json:"path"`
	Recursive bool               `json:"recursive"`
	Total     int                `json:"total"`
	Entries   []models.TreeEntry `json:"entries"`
}

func newFileListing(project *models.ProjectReference, dir string, recursive bool, entries []models.TreeEntry) *fileListing {
	if dir == "" {
		dir = "/"
	}
	return &fileListing{
		Project:   project.Identifier,
		Ref:       project.Ref,
		Path:      dir,
		Recursive: recursive,
		Total:     len(entries),
		Entries:   nonNil(entries),
	}
}

type fileContent struct {
	Project string `json:"project"`
	*models.RepoFile
}

type projectReadme struct {
	Project string `json:"project"`
	*models.Readme
}

type issueSearch struct {
	SearchTerm string         `json:"search_term"`
	Project    string         `json:"project,omitempty"`
	Total      int            `json:"total"`
	Issues     []models.Issue `json:"issues"`
}

func newIssueSearch(term string, project *models.ProjectReference, issues []models.Issue) *issueSearch {
	result := &issueSearch{SearchTerm: term, Total: len(issues), Issues: nonNil(issues)}
	if project != nil {
		result.Project = project.Identifier
	}
	return result
}

type wikiResult struct {
	Project    string            `json:"project"`
	Mode       string            `json:"mode"` // "list" or "detail"
	TotalPages int               `json:"total_pages,omitempty"`
	Pages      []models.WikiPage `json:"pages,omitempty"`
	Page       *models.WikiPage  `json:"page,omitempty"`
}

type releaseList struct {
	Project       string           `json:"project"`
	TotalReleases int              `json:"total_releases"`
	Releases      []models.Release `json:"releases"`
}

type releaseDetail struct {
	Project string `json:"project"`
	*models.Release
}

type tagList struct {
	Project   string       `json:"project"`
	TotalTags int          `json:"total_tags"`
	Tags      []models.Tag `json:"tags"`
}

type branchList struct {
	Project       string          `json:"project"`
	TotalBranches int             `json:"total_branches"`
	Branches      []models.Branch `json:"branches"`
}

// dependencyAnalysis is the inspection report without the pipeline
type dependencyAnalysis struct {
	Project       string                        `json:"project"`
	Ref           string                        `json:"ref"`
	Ecosystems    []models.Ecosystem            `json:"ecosystems_detected"`
	Manifests     []models.ManifestCandidate    `json:"manifests"`
	Dependencies  []models.Dependency           `json:"dependencies"`
	Unresolved    []models.UnresolvedDependency `json:"unresolved,omitempty"`
	ParseFailures []models.ParseFailure         `json:"parse_failures"`
	FilesAnalyzed int                           `json:"files_analyzed"`
	TreeTruncated bool                          `json:"tree_truncated,omitempty"`
}

func newDependencyAnalysis(report *models.InspectionReport) *dependencyAnalysis {
	return &dependencyAnalysis{
		Project:       report.Project,
		Ref:           report.Ref,
		Ecosystems:    nonNil(report.Ecosystems),
		Manifests:     nonNil(report.Manifests),
		Dependencies:  nonNil(report.Dependencies),
		Unresolved:    report.Unresolved,
		ParseFailures: nonNil(report.ParseFailures),
		FilesAnalyzed: report.FilesAnalyzed,
		TreeTruncated: report.TreeTruncated,
	}
}

// toolError is the payload of a failed call
type toolError struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// errorKind extends the forge error kinds with the ones raised at the tool boundary
func errorKind(err error) string {
	var invalid *invalidArgumentError
	if errors.As(err, &invalid) {
		return gitlab.KindInvalidArgument
	}
	var noReadme *inspect.ReadmeNotFoundError
	if errors.As(err, &noReadme) {
		return gitlab.KindRequestRejected
	}
	return gitlab.ErrorKind(err)
}

// jsonResult renders payload as indented JSON text content
func jsonResult(payload interface{}) *mcp.CallToolResult {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return errorResult(gitlab.KindInternal, fmt.Errorf("failed to encode result: %w", err))
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(string(data)),
		},
	}
}

func errorResult(kind string, err error) *mcp.CallToolResult {
	data, _ := json.MarshalIndent(toolError{Error: err.Error(), Kind: kind}, "", "  ")
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(string(data)),
		},
		IsError: true,
	}
}

// nonNil makes empty lists encode as [] rather than null
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
