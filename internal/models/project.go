package models

import "time"

// ProjectReference identifies a forge project for the lifetime of one tool call.
// ResolvedPath is the identifier in transport form: numeric ids verbatim, paths
// percent-encoded exactly once. It is never shared across calls.
type ProjectReference struct {
	Identifier   string `json:"identifier"`
	ResolvedPath string `json:"-"`
	DefaultRef   string `json:"default_ref,omitempty"`
	Ref          string `json:"ref"`
	CIConfigPath string `json:"ci_config_path,omitempty"`
}

// Namespace is the owning group or user of a project
type Namespace struct {
	Name     string `json:"name"`
	FullPath string `json:"full_path"`
}

// ProjectStatistics is only populated when requested with statistics=true
type ProjectStatistics struct {
	CommitCount    int64 `json:"commit_count"`
	RepositorySize int64 `json:"repository_size"`
	StorageSize    int64 `json:"storage_size"`
}

// ProjectLicense is the detected license of a project
type ProjectLicense struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// Project is the subset of GitLab project metadata exposed by the tools
type Project struct {
	ID                int64              `json:"id"`
	Name              string             `json:"name"`
	PathWithNamespace string             `json:"path_with_namespace"`
	Description       string             `json:"description"`
	WebURL            string             `json:"web_url"`
	DefaultBranch     string             `json:"default_branch"`
	Visibility        string             `json:"visibility"`
	Topics            []string           `json:"topics"`
	StarCount         int                `json:"star_count"`
	ForksCount        int                `json:"forks_count"`
	OpenIssuesCount   int                `json:"open_issues_count"`
	CreatedAt         *time.Time         `json:"created_at,omitempty"`
	LastActivityAt    *time.Time         `json:"last_activity_at,omitempty"`
	ReadmeURL         string             `json:"readme_url,omitempty"`
	CIConfigPath      string             `json:"ci_config_path,omitempty"`
	License           *ProjectLicense    `json:"license,omitempty"`
	Namespace         Namespace          `json:"namespace"`
	Statistics        *ProjectStatistics `json:"statistics,omitempty"`
}

// ProjectDetails combines project metadata with its language breakdown (percentages)
type ProjectDetails struct {
	Project
	Languages map[string]float64 `json:"languages"`
}

// ProjectSearchOptions filters the public project listing
type ProjectSearchOptions struct {
	Query    string
	Language string
	Topic    string
	OrderBy  string
	Sort     string
	PerPage  int
}

// ServerVersion is the answer of the /version endpoint
type ServerVersion struct {
	Version  string `json:"version"`
	Revision string `json:"revision"`
}
