package models

import "time"

// TreeEntry is one item of a repository tree listing
type TreeEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"` // "blob" or "tree"
	Path string `json:"path"`
	Mode string `json:"mode"`
}

// IsBlob reports whether the entry is a file
func (e TreeEntry) IsBlob() bool {
	return e.Type == "blob"
}

// RepoFile is a decoded repository file. When Binary is set Content is empty
// and the payload was not decoded.
type RepoFile struct {
	FileName     string `json:"file_name"`
	FilePath     string `json:"file_path"`
	Ref          string `json:"ref"`
	Size         int64  `json:"size"`
	Encoding     string `json:"encoding"`
	MimeType     string `json:"mime_type,omitempty"`
	Language     string `json:"language,omitempty"`
	Binary       bool   `json:"binary"`
	Content      string `json:"content,omitempty"`
	LastCommitID string `json:"last_commit_id,omitempty"`
}

// Commit is the short commit summary embedded in branches and tags
type Commit struct {
	ID            string     `json:"id"`
	ShortID       string     `json:"short_id"`
	Title         string     `json:"title"`
	AuthorName    string     `json:"author_name"`
	CommittedDate *time.Time `json:"committed_date,omitempty"`
}

// Branch is a repository branch
type Branch struct {
	Name      string `json:"name"`
	Default   bool   `json:"default"`
	Protected bool   `json:"protected"`
	Merged    bool   `json:"merged"`
	WebURL    string `json:"web_url"`
	Commit    Commit `json:"commit"`
}

// Tag is a repository tag
type Tag struct {
	Name      string `json:"name"`
	Message   string `json:"message"`
	Target    string `json:"target"`
	Protected bool   `json:"protected"`
	Commit    Commit `json:"commit"`
}

// ReleaseLink is an asset link attached to a release
type ReleaseLink struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	LinkType string `json:"link_type"`
}

// ReleaseAssets groups source archives and links of a release
type ReleaseAssets struct {
	Count   int           `json:"count"`
	Sources []ReleaseLink `json:"sources"`
	Links   []ReleaseLink `json:"links"`
}

// ReleaseAuthor is the user who published a release
type ReleaseAuthor struct {
	Name     string `json:"name"`
	Username string `json:"username"`
}

// Release is a project release
type Release struct {
	TagName     string        `json:"tag_name"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	CreatedAt   *time.Time    `json:"created_at,omitempty"`
	ReleasedAt  *time.Time    `json:"released_at,omitempty"`
	Author      ReleaseAuthor `json:"author"`
	Commit      Commit        `json:"commit"`
	Assets      ReleaseAssets `json:"assets"`
}

// IssueAuthor is the reporter of an issue
type IssueAuthor struct {
	Name     string `json:"name"`
	Username string `json:"username"`
}

// Issue is a project issue
type Issue struct {
	IID         int64       `json:"iid"`
	ProjectID   int64       `json:"project_id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	State       string      `json:"state"`
	Labels      []string    `json:"labels"`
	WebURL      string      `json:"web_url"`
	Author      IssueAuthor `json:"author"`
	CreatedAt   *time.Time  `json:"created_at,omitempty"`
}

// IssueSearchOptions filters issue search
type IssueSearchOptions struct {
	Search  string
	State   string
	PerPage int
}

// WikiPage is a project wiki page. Content is only set for single page lookups.
type WikiPage struct {
	Title    string `json:"title"`
	Slug     string `json:"slug"`
	Format   string `json:"format"`
	Content  string `json:"content,omitempty"`
	Encoding string `json:"encoding,omitempty"`
}

// ReadmeHeading is one heading of a markdown README
type ReadmeHeading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// ReadmeOutline is the structure of a markdown README
type ReadmeOutline struct {
	Headings      []ReadmeHeading `json:"headings"`
	CodeLanguages []string        `json:"code_languages,omitempty"`
	Links         []string        `json:"links,omitempty"`
}

// Readme is a project's README file together with its detected markup
type Readme struct {
	FileName string         `json:"file_name"`
	FilePath string         `json:"file_path"`
	Ref      string         `json:"ref"`
	Size     int64          `json:"size"`
	Format   string         `json:"format"`
	Content  string         `json:"content"`
	Outline  *ReadmeOutline `json:"outline,omitempty"`
}
