package main

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"

	"github.com/MohamedElashri/cerngitlab-mcp/internal/common"
	"github.com/MohamedElashri/cerngitlab-mcp/internal/gitlab"
	"github.com/MohamedElashri/cerngitlab-mcp/internal/inspect"
	"github.com/MohamedElashri/cerngitlab-mcp/internal/search"
)

// toolDeps is shared by every tool handler. The limiter inside client is the
// only state shared between concurrent calls.
type toolDeps struct {
	client      *gitlab.Client
	search      *search.Service
	inspector   *inspect.Orchestrator
	logger      arbor.ILogger
	callTimeout time.Duration
}

// newToolDeps builds the forge client and the services on top of it from a
// validated configuration
func newToolDeps(config *common.Config, logger arbor.ILogger) *toolDeps {
	limiter := gitlab.NewSlidingWindowLimiter(config.RateLimit.RequestsPerMinute, gitlab.WithLimiterLogger(logger))

	policy := gitlab.DefaultRetryPolicy()
	policy.MaxAttempts = config.Retry.MaxAttempts
	policy.Multiplier = config.Retry.Multiplier
	policy.JitterFraction = config.Retry.Jitter
	policy.BaseDelay, policy.MaxDelay = config.RetryDelays()

	client := gitlab.NewClient(config.GitLab.URL,
		gitlab.WithToken(config.GitLab.Token),
		gitlab.WithTimeout(config.RequestTimeout()),
		gitlab.WithUserAgent(config.GitLab.UserAgent),
		gitlab.WithLogger(logger),
		gitlab.WithLimiter(limiter),
		gitlab.WithRetryPolicy(policy),
		gitlab.WithPageSizes(config.Pagination.DefaultPerPage, config.Pagination.MaxPerPage),
		gitlab.WithSearchRequiresAuth(config.GitLab.SearchRequiresAuth),
	)

	return &toolDeps{
		client: client,
		search: search.NewService(client, logger,
			search.WithWorkers(config.Search.FallbackWorkers),
			search.WithShardSize(config.Search.ShardSize),
			search.WithMaxFiles(config.Search.MaxFiles),
		),
		inspector: inspect.NewOrchestrator(client, logger,
			inspect.WithMaxSubdirs(config.Inspect.MaxSubdirs),
			inspect.WithMaxManifests(config.Inspect.MaxManifests),
			inspect.WithFetchWorkers(config.Inspect.FetchWorkers),
		),
		logger:      logger,
		callTimeout: config.CallTimeout(),
	}
}

// newMCPServer registers every tool on a new stdio-ready server
func newMCPServer(d *toolDeps) *server.MCPServer {
	mcpServer := server.NewMCPServer(
		common.ServerName,
		common.GetVersion(),
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions),
	)

	for _, t := range d.tools() {
		mcpServer.AddTool(t.definition, t.handler)
	}
	return mcpServer
}

type registeredTool struct {
	definition mcp.Tool
	handler    server.ToolHandlerFunc
}

// tools lists the tool catalogue in the order clients see it
func (d *toolDeps) tools() []registeredTool {
	return []registeredTool{
		// Connectivity and discovery
		{createTestConnectivityTool(), d.handle("test_connectivity", d.testConnectivity)},
		{createSearchRepositoriesTool(), d.handle("search_repositories", d.searchRepositories)},
		{createGetProjectInfoTool(), d.handle("get_project_info", d.getProjectInfo)},

		// Repository content
		{createListRepositoryFilesTool(), d.handle("list_repository_files", d.listRepositoryFiles)},
		{createGetFileContentTool(), d.handle("get_file_content", d.getFileContent)},
		{createGetProjectReadmeTool(), d.handle("get_project_readme", d.getProjectReadme)},

		// Search
		{createSearchCodeTool(), d.handle("search_code", d.searchCode)},
		{createSearchIssuesTool(), d.handle("search_issues", d.searchIssues)},
		{createGetWikiPagesTool(), d.handle("get_wiki_pages", d.getWikiPages)},

		// Versions
		{createListReleasesTool(), d.handle("list_releases", d.listReleases)},
		{createGetReleaseTool(), d.handle("get_release", d.getRelease)},
		{createListTagsTool(), d.handle("list_tags", d.listTags)},
		{createListBranchesTool(), d.handle("list_branches", d.listBranches)},

		// Inspection
		{createAnalyzeDependenciesTool(), d.handle("analyze_dependencies", d.analyzeDependencies)},
		{createGetCIConfigTool(), d.handle("get_ci_config", d.getCIConfig)},
		{createGetBuildConfigTool(), d.handle("get_build_config", d.getBuildConfig)},
		{createInspectProjectTool(), d.handle("inspect_project", d.inspectProject)},
	}
}

// toolFunc is the body of one tool. It returns a JSON-serialisable payload.
type toolFunc func(ctx context.Context, request mcp.CallToolRequest, logger arbor.ILogger) (interface{}, error)

// handle wraps fn with the per-call deadline, a correlated logger and the
// error payload conversion
func (d *toolDeps) handle(name string, fn toolFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		logger := d.logger.WithCorrelationId(common.NewCorrelationID())
		ctx = common.WithLogger(ctx, logger)
		if d.callTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d.callTimeout)
			defer cancel()
		}

		started := time.Now()
		payload, err := fn(ctx, request, logger)
		if err != nil {
			err = gitlab.AsTimeout(ctx, name, err)
			kind := errorKind(err)
			logger.Warn().
				Str("tool", name).
				Str("kind", kind).
				Err(err).
				Msg("Tool call failed")
			return errorResult(kind, err), nil
		}

		logger.Debug().
			Str("tool", name).
			Int64("elapsed_ms", time.Since(started).Milliseconds()).
			Msg("Tool call completed")
		return jsonResult(payload), nil
	}
}

const serverInstructions = `Read-only access to CERN GitLab (gitlab.cern.ch by default).

Projects are identified by numeric id ("12345") or full path ("lhcb/DaVinci").
Tools that take a ref default to the project's default branch.

Start with search_repositories or get_project_info, then use inspect_project
for a one-call overview of build systems, dependencies and CI pipeline.
search_code falls back to scanning the repository when the instance refuses
native code search, so results may be slower and capped for large projects.`
