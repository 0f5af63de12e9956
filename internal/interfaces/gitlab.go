package interfaces

import (
	"context"

	"github.com/MohamedElashri/cerngitlab-mcp/internal/models"
)

// RateLimiter admits outbound requests against a shared budget.
// Acquire blocks until one unit is available and only fails when ctx ends.
type RateLimiter interface {
	Acquire(ctx context.Context) error
}

// ProjectResolver turns a user supplied project identifier into a reference
// usable for the rest of one call.
type ProjectResolver interface {
	ResolveProject(ctx context.Context, identifier, ref string) (*models.ProjectReference, error)
}

// RepositoryReader lists and reads repository content at a fixed ref
type RepositoryReader interface {
	// ListTree returns at most limit entries below dir (limit <= 0 means no cap)
	ListTree(ctx context.Context, project *models.ProjectReference, dir string, recursive bool, limit int) ([]models.TreeEntry, error)
	GetFile(ctx context.Context, project *models.ProjectReference, filePath string) (*models.RepoFile, error)
}

// CodeSearcher runs the forge's own code search. project is nil for an
// instance-wide search.
type CodeSearcher interface {
	SearchCode(ctx context.Context, project *models.ProjectReference, term string, scope models.SearchScope, limit int) (*models.NativeSearchResult, error)
}

// ProjectSource is everything the search and inspection layers need from the forge
type ProjectSource interface {
	ProjectResolver
	RepositoryReader
	CodeSearcher
}
