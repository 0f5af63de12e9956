package models

// MatchKind says whether a hit matched file content or a file name
type MatchKind string

const (
	MatchKindContent  MatchKind = "content"
	MatchKindFilename MatchKind = "filename"
)

// SearchScope selects what a code search looks at
type SearchScope string

const (
	SearchScopeBlobs     SearchScope = "blobs"
	SearchScopeFilenames SearchScope = "filenames"
)

// SearchMode records which path produced a search result
type SearchMode string

const (
	SearchModeNative   SearchMode = "native"
	SearchModeFallback SearchMode = "fallback"
)

// SearchHit is a single code search match. LineNumber and Snippet are only set
// for content matches.
type SearchHit struct {
	FilePath   string    `json:"file_path"`
	LineNumber int       `json:"line_number,omitempty"`
	Snippet    string    `json:"snippet,omitempty"`
	MatchKind  MatchKind `json:"match_kind"`
	Ref        string    `json:"ref,omitempty"`
	ProjectID  int64     `json:"project_id,omitempty"`
}

// FileFailure records a file that could not be fetched during a scan
type FileFailure struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// CodeSearchQuery describes one search_code invocation. An empty Project means
// an instance-wide search.
type CodeSearchQuery struct {
	Project string
	Ref     string
	Term    string
	Scope   SearchScope
	Limit   int
}

// NativeSearchResult is the answer of the forge's own search endpoint.
// Available is false when the forge cannot serve the query (missing
// authentication or the feature is disabled); Hits is meaningless then.
type NativeSearchResult struct {
	Available bool
	Status    int
	Hits      []SearchHit
}

// SearchResult is the merged answer of a code search
type SearchResult struct {
	Project      string        `json:"project,omitempty"`
	Ref          string        `json:"ref,omitempty"`
	Term         string        `json:"search_term"`
	Scope        SearchScope   `json:"scope"`
	Mode         SearchMode    `json:"mode"`
	Hits         []SearchHit   `json:"hits"`
	Failures     []FileFailure `json:"failures,omitempty"`
	FilesScanned int           `json:"files_scanned,omitempty"`
	Truncated    bool          `json:"truncated,omitempty"`
}
