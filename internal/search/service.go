package search

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"

	"github.com/MohamedElashri/cerngitlab-mcp/internal/common"
	"github.com/MohamedElashri/cerngitlab-mcp/internal/gitlab"
	"github.com/MohamedElashri/cerngitlab-mcp/internal/interfaces"
	"github.com/MohamedElashri/cerngitlab-mcp/internal/models"
)

const (
	DefaultWorkers   = 8
	DefaultShardSize = 25
	DefaultMaxFiles  = 2000
	DefaultLimit     = 20

	maxSnippetLength = 200
)

// Service answers code searches. It prefers the forge's own search and falls
// back to scanning repository content when the forge cannot serve the query.
type Service struct {
	source    interfaces.ProjectSource
	logger    arbor.ILogger
	workers   int
	shardSize int
	maxFiles  int
}

// Option configures the Service
type Option func(*Service)

// WithWorkers sets the number of concurrent content fetchers
func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithShardSize sets how many files one fetch task handles
func WithShardSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.shardSize = n
		}
	}
}

// WithMaxFiles caps the number of tree entries considered by a fallback scan
func WithMaxFiles(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxFiles = n
		}
	}
}

// NewService creates a search service on top of source
func NewService(source interfaces.ProjectSource, logger arbor.ILogger, opts ...Option) *Service {
	if logger == nil {
		logger = arbor.NewLogger()
	}
	s := &Service{
		source:    source,
		logger:    logger,
		workers:   DefaultWorkers,
		shardSize: DefaultShardSize,
		maxFiles:  DefaultMaxFiles,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// log prefers the call's correlated logger
func (s *Service) log(ctx context.Context) arbor.ILogger {
	return common.LoggerFromContext(ctx, s.logger)
}

// Search runs q. Instance-wide searches have no fallback and fail with
// AuthRequiredError when the forge refuses them.
func (s *Service) Search(ctx context.Context, q models.CodeSearchQuery) (*models.SearchResult, error) {
	term := strings.TrimSpace(q.Term)
	if term == "" {
		return nil, fmt.Errorf("search term is required")
	}
	scope := q.Scope
	if scope != models.SearchScopeFilenames {
		scope = models.SearchScopeBlobs
	}
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	result := &models.SearchResult{
		Project: q.Project,
		Term:    term,
		Scope:   scope,
		Hits:    []models.SearchHit{},
	}

	if strings.TrimSpace(q.Project) == "" {
		native, err := s.source.SearchCode(ctx, nil, term, scope, limit)
		if err != nil {
			return nil, gitlab.AsTimeout(ctx, "code search", err)
		}
		if !native.Available {
			return nil, &gitlab.AuthRequiredError{Operation: "instance-wide code search"}
		}
		result.Mode = models.SearchModeNative
		result.Hits = capHits(native.Hits, limit, result)
		return result, nil
	}

	project, err := s.source.ResolveProject(ctx, q.Project, q.Ref)
	if err != nil {
		return nil, gitlab.AsTimeout(ctx, "code search", err)
	}
	result.Ref = project.Ref

	native, err := s.source.SearchCode(ctx, project, term, scope, limit)
	if err != nil {
		return nil, gitlab.AsTimeout(ctx, "code search", err)
	}
	if native.Available {
		result.Mode = models.SearchModeNative
		result.Hits = capHits(native.Hits, limit, result)
		return result, nil
	}

	s.log(ctx).Info().
		Str("project", project.Identifier).
		Int("native_status", native.Status).
		Str("scope", string(scope)).
		Msg("Native search unavailable, scanning repository")

	result.Mode = models.SearchModeFallback
	if err := s.scan(ctx, project, term, scope, limit, result); err != nil {
		return nil, gitlab.AsTimeout(ctx, "code search", err)
	}
	return result, nil
}

// scan lists the repository and matches term against paths or contents
func (s *Service) scan(ctx context.Context, project *models.ProjectReference, term string, scope models.SearchScope, limit int, result *models.SearchResult) error {
	entries, err := s.source.ListTree(ctx, project, "", true, s.maxFiles)
	if err != nil {
		if gitlab.IsNotFound(err) {
			return &gitlab.ProjectNotFoundError{Project: project.Identifier}
		}
		return err
	}
	if len(entries) >= s.maxFiles {
		result.Truncated = true
	}

	var paths []string
	for _, e := range entries {
		if e.IsBlob() {
			paths = append(paths, e.Path)
		}
	}

	var hits []models.SearchHit
	if scope == models.SearchScopeFilenames {
		hits = matchFilenames(paths, term)
	} else {
		candidates := textPaths(paths)
		var failures []models.FileFailure
		hits, failures, err = s.grepFiles(ctx, project, candidates, term)
		if err != nil {
			return err
		}
		result.Failures = failures
		result.FilesScanned = len(candidates)
	}

	sortHits(hits)
	result.Hits = capHits(hits, limit, result)
	return nil
}

// grepFiles fetches paths in shards on a bounded pool and collects line matches.
// A file that cannot be fetched is recorded and skipped.
func (s *Service) grepFiles(ctx context.Context, project *models.ProjectReference, paths []string, term string) ([]models.SearchHit, []models.FileFailure, error) {
	shards := splitIntoShards(paths, s.shardSize)
	shardHits := make([][]models.SearchHit, len(shards))
	shardFailures := make([][]models.FileFailure, len(shards))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	needle := strings.ToLower(term)
	for i, shard := range shards {
		g.Go(func() error {
			for _, p := range shard {
				if err := gctx.Err(); err != nil {
					return err
				}
				file, err := s.source.GetFile(gctx, project, p)
				if err != nil {
					if gctx.Err() != nil {
						return gctx.Err()
					}
					shardFailures[i] = append(shardFailures[i], models.FileFailure{Path: p, Error: err.Error()})
					continue
				}
				if file.Binary {
					continue
				}
				shardHits[i] = append(shardHits[i], grepContent(p, file.Content, needle)...)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var (
		hits     []models.SearchHit
		failures []models.FileFailure
	)
	for i := range shards {
		hits = append(hits, shardHits[i]...)
		failures = append(failures, shardFailures[i]...)
	}
	sort.Slice(failures, func(a, b int) bool { return failures[a].Path < failures[b].Path })

	if len(failures) > 0 {
		s.log(ctx).Warn().
			Str("project", project.Identifier).
			Int("failed_files", len(failures)).
			Msg("Some files could not be fetched during fallback search")
	}
	return hits, failures, nil
}

// grepContent returns one hit per line containing needle (already lower-cased)
func grepContent(filePath, content, needle string) []models.SearchHit {
	var hits []models.SearchHit
	for n, line := range strings.Split(content, "\n") {
		if !strings.Contains(strings.ToLower(line), needle) {
			continue
		}
		hits = append(hits, models.SearchHit{
			FilePath:   filePath,
			LineNumber: n + 1,
			Snippet:    truncateSnippet(strings.TrimSpace(line)),
			MatchKind:  models.MatchKindContent,
		})
	}
	return hits
}

// truncateSnippet cuts s to maxSnippetLength bytes on a rune boundary
func truncateSnippet(s string) string {
	if len(s) <= maxSnippetLength {
		return s
	}
	n := maxSnippetLength
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// matchFilenames matches term against file paths. Terms with glob syntax are
// matched against the base name, anything else is a case-insensitive substring.
func matchFilenames(paths []string, term string) []models.SearchHit {
	glob := strings.ContainsAny(term, "*?[")
	needle := strings.ToLower(term)

	var hits []models.SearchHit
	for _, p := range paths {
		var matched bool
		if glob {
			matched, _ = path.Match(term, path.Base(p))
		} else {
			matched = strings.Contains(strings.ToLower(p), needle)
		}
		if matched {
			hits = append(hits, models.SearchHit{FilePath: p, MatchKind: models.MatchKindFilename})
		}
	}
	return hits
}

func textPaths(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if !gitlab.IsBinaryPath(p) {
			out = append(out, p)
		}
	}
	return out
}

// sortHits orders hits by path, then line number
func sortHits(hits []models.SearchHit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].FilePath != hits[j].FilePath {
			return hits[i].FilePath < hits[j].FilePath
		}
		return hits[i].LineNumber < hits[j].LineNumber
	})
}

func capHits(hits []models.SearchHit, limit int, result *models.SearchResult) []models.SearchHit {
	if hits == nil {
		return []models.SearchHit{}
	}
	if limit > 0 && len(hits) > limit {
		result.Truncated = true
		return hits[:limit]
	}
	return hits
}

// splitIntoShards splits paths into chunks of at most size
func splitIntoShards(paths []string, size int) [][]string {
	if size <= 0 {
		size = DefaultShardSize
	}
	var shards [][]string
	for i := 0; i < len(paths); i += size {
		end := i + size
		if end > len(paths) {
			end = len(paths)
		}
		shards = append(shards, paths[i:end])
	}
	return shards
}
