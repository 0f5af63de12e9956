package inspect

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"

	"github.com/MohamedElashri/cerngitlab-mcp/internal/common"
	"github.com/MohamedElashri/cerngitlab-mcp/internal/gitlab"
	"github.com/MohamedElashri/cerngitlab-mcp/internal/interfaces"
	"github.com/MohamedElashri/cerngitlab-mcp/internal/models"
)

const (
	DefaultMaxSubdirs   = 50
	DefaultMaxManifests = 40
	DefaultFetchWorkers = 4
)

// Orchestrator runs a project inspection: list the top of the tree, detect
// manifests, parse them concurrently and analyse the CI pipeline. Failures of
// single manifests are collected in the report.
type Orchestrator struct {
	source       interfaces.ProjectSource
	logger       arbor.ILogger
	maxSubdirs   int
	maxManifests int
	fetchWorkers int
}

// Option configures the Orchestrator
type Option func(*Orchestrator)

// WithMaxSubdirs caps how many first-level directories are listed
func WithMaxSubdirs(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxSubdirs = n
		}
	}
}

// WithMaxManifests caps how many manifests are fetched
func WithMaxManifests(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxManifests = n
		}
	}
}

// WithFetchWorkers bounds concurrent tree listings and file fetches
func WithFetchWorkers(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.fetchWorkers = n
		}
	}
}

// NewOrchestrator creates an inspection orchestrator reading from source
func NewOrchestrator(source interfaces.ProjectSource, logger arbor.ILogger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = arbor.NewLogger()
	}
	o := &Orchestrator{
		source:       source,
		logger:       logger,
		maxSubdirs:   DefaultMaxSubdirs,
		maxManifests: DefaultMaxManifests,
		fetchWorkers: DefaultFetchWorkers,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// fetched is the outcome of reading one manifest
type fetched struct {
	candidate models.ManifestCandidate
	file      *models.RepoFile
	failure   *models.ParseFailure
}

// Inspect resolves identifier and inspects it at ref (the default branch when empty)
func (o *Orchestrator) Inspect(ctx context.Context, identifier, ref string) (*models.InspectionReport, error) {
	project, err := o.source.ResolveProject(ctx, identifier, ref)
	if err != nil {
		return nil, gitlab.AsTimeout(ctx, "inspection", err)
	}
	report, err := o.InspectProject(ctx, project)
	return report, gitlab.AsTimeout(ctx, "inspection", err)
}

// InspectProject inspects an already resolved project
func (o *Orchestrator) InspectProject(ctx context.Context, project *models.ProjectReference) (*models.InspectionReport, error) {
	report := &models.InspectionReport{
		Project:       project.Identifier,
		Ref:           project.Ref,
		Phase:         models.PhaseStart,
		Ecosystems:    []models.Ecosystem{},
		BuildSystems:  []models.BuildSystem{},
		Manifests:     []models.ManifestCandidate{},
		Dependencies:  []models.Dependency{},
		ParseFailures: []models.ParseFailure{},
	}

	entries, truncated, skipped, err := o.listTopLevels(ctx, project)
	if err != nil {
		return nil, err
	}
	report.TreeTruncated = truncated || len(skipped) > 0
	report.ParseFailures = append(report.ParseFailures, skipped...)
	o.advance(ctx, report, models.PhaseTreeListed, len(entries))

	candidates := DetectManifests(entries)
	report.Manifests = candidates
	report.BuildSystems = DetectBuildSystems(candidates)
	report.Ecosystems = DetectEcosystems(candidates)
	o.advance(ctx, report, models.PhaseManifestsDetected, len(candidates))

	ciPath := ciConfigPath(project)
	var toFetch []models.ManifestCandidate
	for _, c := range candidates {
		if HasParser(c.Format) {
			toFetch = append(toFetch, c)
		}
	}
	if len(toFetch) > o.maxManifests {
		report.TreeTruncated = true
		toFetch = toFetch[:o.maxManifests]
	}
	if ciPath != "" {
		toFetch = append(toFetch, models.ManifestCandidate{
			Path:      ciPath,
			Ecosystem: models.EcosystemCI,
			Format:    models.FormatGitLabCI,
		})
	}

	results, err := o.fetchAll(ctx, project, toFetch)
	if err != nil {
		return nil, err
	}

	var ciFile *models.RepoFile
	for _, r := range results {
		if r.candidate.Format == models.FormatGitLabCI {
			if r.file != nil {
				ciFile = r.file
				report.FilesAnalyzed++
			}
			continue
		}
		if r.failure != nil {
			report.ParseFailures = append(report.ParseFailures, *r.failure)
			continue
		}
		report.FilesAnalyzed++

		deps, unresolved, failure := ParseManifest(r.candidate, r.file.Content)
		if failure != nil {
			report.ParseFailures = append(report.ParseFailures, *failure)
			continue
		}
		report.Dependencies = append(report.Dependencies, deps...)
		report.Unresolved = append(report.Unresolved, unresolved...)

		if r.candidate.Format == models.FormatCMake && usesFortran(r.file.Content) {
			report.Ecosystems = addEcosystem(report.Ecosystems, models.EcosystemFortran)
		}
	}
	o.advance(ctx, report, models.PhaseDependenciesParsed, len(report.Dependencies))

	if ciFile != nil {
		report.Pipeline = AnalyzePipeline(ciPath, ciFile.Content)
		report.Ecosystems = addEcosystem(report.Ecosystems, models.EcosystemCI)
	}
	o.advance(ctx, report, models.PhaseCIAnalyzed, len(report.ParseFailures))

	o.advance(ctx, report, models.PhaseDone, report.FilesAnalyzed)
	return report, nil
}

func (o *Orchestrator) advance(ctx context.Context, report *models.InspectionReport, phase models.InspectionPhase, count int) {
	report.Phase = phase
	common.LoggerFromContext(ctx, o.logger).Debug().
		Str("project", report.Project).
		Str("phase", string(phase)).
		Int("count", count).
		Msg("Inspection phase complete")
}

// listTopLevels lists the root and up to maxSubdirs first-level directories.
// A missing root means the project or ref does not exist; a first-level
// directory that cannot be listed is returned as a failure so the caller can
// report the tree as incomplete.
func (o *Orchestrator) listTopLevels(ctx context.Context, project *models.ProjectReference) ([]models.TreeEntry, bool, []models.ParseFailure, error) {
	root, err := o.source.ListTree(ctx, project, "", false, 0)
	if err != nil {
		if gitlab.IsNotFound(err) {
			return nil, false, nil, &gitlab.ProjectNotFoundError{Project: project.Identifier}
		}
		return nil, false, nil, err
	}

	var dirs []string
	for _, e := range root {
		if e.Type == "tree" {
			dirs = append(dirs, e.Path)
		}
	}
	sort.Strings(dirs)
	truncated := false
	if len(dirs) > o.maxSubdirs {
		truncated = true
		dirs = dirs[:o.maxSubdirs]
	}

	listings := make([][]models.TreeEntry, len(dirs))
	failed := make([]error, len(dirs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.fetchWorkers)
	for i, dir := range dirs {
		g.Go(func() error {
			entries, err := o.source.ListTree(gctx, project, dir, false, 0)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				common.LoggerFromContext(ctx, o.logger).Warn().
					Str("project", project.Identifier).
					Str("dir", dir).
					Err(err).
					Msg("Directory could not be listed")
				failed[i] = err
				return nil
			}
			listings[i] = entries
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, false, nil, err
	}

	entries := append([]models.TreeEntry{}, root...)
	var failures []models.ParseFailure
	for i, l := range listings {
		if failed[i] != nil {
			failures = append(failures, models.ParseFailure{
				Path:   dirs[i],
				Reason: fmt.Sprintf("directory listing failed: %v", failed[i]),
			})
			continue
		}
		entries = append(entries, l...)
	}
	return entries, truncated, failures, nil
}

// fetchAll reads candidates on a bounded pool. Results keep candidate order.
// Only cancellation aborts; any other fetch problem becomes a ParseFailure.
func (o *Orchestrator) fetchAll(ctx context.Context, project *models.ProjectReference, candidates []models.ManifestCandidate) ([]fetched, error) {
	results := make([]fetched, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.fetchWorkers)

	for i, c := range candidates {
		g.Go(func() error {
			results[i] = fetched{candidate: c}
			file, err := o.source.GetFile(gctx, project, c.Path)
			switch {
			case err != nil && gctx.Err() != nil:
				return gctx.Err()
			case err != nil && c.Format == models.FormatGitLabCI && gitlab.IsNotFound(err):
			case err != nil:
				results[i].failure = &models.ParseFailure{
					Path:   c.Path,
					Format: c.Format,
					Reason: fmt.Sprintf("fetch failed: %v", err),
				}
			case file.Binary:
				results[i].failure = &models.ParseFailure{
					Path:   c.Path,
					Format: c.Format,
					Reason: "binary content",
				}
			default:
				results[i].file = file
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// BuildConfig fetches every detected build descriptor with its content
func (o *Orchestrator) BuildConfig(ctx context.Context, identifier, ref string) (*models.BuildConfig, error) {
	project, err := o.source.ResolveProject(ctx, identifier, ref)
	if err != nil {
		return nil, gitlab.AsTimeout(ctx, "build config", err)
	}

	entries, _, skipped, err := o.listTopLevels(ctx, project)
	if err != nil {
		return nil, gitlab.AsTimeout(ctx, "build config", err)
	}

	var candidates []models.ManifestCandidate
	systems := map[string]string{}
	for _, c := range DetectManifests(entries) {
		if c.Format == models.FormatGitLabCI || c.Format == models.FormatFortranSrc {
			continue
		}
		candidates = append(candidates, c)
	}
	if len(candidates) > o.maxManifests {
		candidates = candidates[:o.maxManifests]
	}
	for _, bs := range DetectBuildSystems(candidates) {
		for _, f := range bs.Files {
			systems[f] = bs.Name
		}
	}

	results, err := o.fetchAll(ctx, project, candidates)
	if err != nil {
		return nil, gitlab.AsTimeout(ctx, "build config", err)
	}

	config := &models.BuildConfig{
		Project:      project.Identifier,
		Ref:          project.Ref,
		BuildSystems: []string{},
		Files:        []models.BuildFile{},
		Failures:     skipped,
	}
	seen := map[string]bool{}
	for _, r := range results {
		if r.failure != nil {
			config.Failures = append(config.Failures, *r.failure)
			continue
		}
		name := systems[r.candidate.Path]
		if name != "" && !seen[name] {
			seen[name] = true
			config.BuildSystems = append(config.BuildSystems, name)
		}
		config.Files = append(config.Files, models.BuildFile{
			Path:        r.candidate.Path,
			BuildSystem: name,
			Language:    gitlab.LanguageHint(r.candidate.Path),
			Size:        r.file.Size,
			Content:     r.file.Content,
		})
	}
	sort.Strings(config.BuildSystems)
	return config, nil
}

// CIConfig fetches and analyses the project's pipeline definition. A missing
// file is reported with Found false rather than as an error.
func (o *Orchestrator) CIConfig(ctx context.Context, identifier, ref string) (*models.CIConfig, error) {
	project, err := o.source.ResolveProject(ctx, identifier, ref)
	if err != nil {
		return nil, gitlab.AsTimeout(ctx, "ci config", err)
	}

	config := &models.CIConfig{
		Project: project.Identifier,
		Ref:     project.Ref,
		Path:    ciConfigPath(project),
	}
	if config.Path == "" {
		config.Path = project.CIConfigPath
		return config, nil
	}

	file, err := o.source.GetFile(ctx, project, config.Path)
	if err != nil {
		if gitlab.IsNotFound(err) {
			return config, nil
		}
		return nil, gitlab.AsTimeout(ctx, "ci config", err)
	}
	config.Found = true
	config.Size = file.Size
	config.Content = file.Content
	config.Analysis = AnalyzePipeline(config.Path, file.Content)
	return config, nil
}

// ciConfigPath is the in-repository pipeline path. A configuration hosted in
// another project (path@group/project) or at a URL has no local path.
func ciConfigPath(project *models.ProjectReference) string {
	p := strings.TrimSpace(project.CIConfigPath)
	switch {
	case p == "":
		return DefaultCIConfigPath
	case strings.Contains(p, "@"), strings.Contains(p, "://"):
		return ""
	default:
		return path.Clean(strings.TrimPrefix(p, "/"))
	}
}

func addEcosystem(ecosystems []models.Ecosystem, e models.Ecosystem) []models.Ecosystem {
	for _, existing := range ecosystems {
		if existing == e {
			return ecosystems
		}
	}
	ecosystems = append(ecosystems, e)
	sort.Slice(ecosystems, func(i, j int) bool { return ecosystems[i] < ecosystems[j] })
	return ecosystems
}
