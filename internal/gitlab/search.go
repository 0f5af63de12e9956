package gitlab

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/MohamedElashri/cerngitlab-mcp/internal/models"
)

// statuses meaning the forge cannot serve a search, as opposed to a failed one
var searchUnavailableStatuses = map[int]bool{
	http.StatusUnauthorized:   true,
	http.StatusForbidden:      true,
	http.StatusNotImplemented: true,
}

type blobResult struct {
	Basename  string `json:"basename"`
	Filename  string `json:"filename"`
	Path      string `json:"path"`
	Data      string `json:"data"`
	Startline int    `json:"startline"`
	Ref       string `json:"ref"`
	ProjectID int64  `json:"project_id"`
}

// SearchCode runs the forge's code search. When the instance cannot serve it
// the result is marked unavailable instead of failing.
func (c *Client) SearchCode(ctx context.Context, project *models.ProjectReference, term string, scope models.SearchScope, limit int) (*models.NativeSearchResult, error) {
	if c.searchRequiresAuth && !c.HasToken() {
		return &models.NativeSearchResult{Available: false}, nil
	}

	query := term
	if scope == models.SearchScopeFilenames {
		query = "filename:" + term
	}

	params := url.Values{}
	params.Set("scope", "blobs")
	params.Set("search", query)
	params.Set("per_page", strconv.Itoa(c.ClampPerPage(limit)))

	endpoint := "/search"
	if project != nil {
		endpoint = projectEndpoint(project, "/search")
		if project.Ref != "" {
			params.Set("ref", project.Ref)
		}
	}

	var blobs []blobResult
	if err := c.get(ctx, endpoint, params, &blobs); err != nil {
		var rejected *RequestRejectedError
		if errors.As(err, &rejected) && searchUnavailableStatuses[rejected.StatusCode] {
			c.logger.Debug().
				Int("status", rejected.StatusCode).
				Str("endpoint", endpoint).
				Msg("Native code search unavailable")
			return &models.NativeSearchResult{Available: false, Status: rejected.StatusCode}, nil
		}
		if project != nil {
			return nil, notFoundAsProject(project, err)
		}
		return nil, err
	}

	hits := make([]models.SearchHit, 0, len(blobs))
	for _, b := range blobs {
		filePath := b.Path
		if filePath == "" {
			filePath = b.Filename
		}
		hit := models.SearchHit{
			FilePath:  filePath,
			MatchKind: models.MatchKindContent,
			Ref:       b.Ref,
			ProjectID: b.ProjectID,
		}
		if scope == models.SearchScopeFilenames {
			hit.MatchKind = models.MatchKindFilename
		} else {
			hit.LineNumber = b.Startline
			hit.Snippet = strings.TrimRight(b.Data, "\n")
		}
		hits = append(hits, hit)
	}

	return &models.NativeSearchResult{Available: true, Status: http.StatusOK, Hits: hits}, nil
}

// SearchIssues searches issues in one project, or instance wide when project is nil
func (c *Client) SearchIssues(ctx context.Context, project *models.ProjectReference, opts models.IssueSearchOptions) ([]models.Issue, error) {
	params := url.Values{}
	params.Set("search", opts.Search)
	params.Set("scope", "all")
	state := opts.State
	if state == "" {
		state = "all"
	}
	if state != "all" {
		params.Set("state", state)
	}
	params.Set("per_page", strconv.Itoa(c.ClampPerPage(opts.PerPage)))

	endpoint := "/issues"
	if project != nil {
		endpoint = projectEndpoint(project, "/issues")
	}

	var issues []models.Issue
	if err := c.get(ctx, endpoint, params, &issues); err != nil {
		err = c.authRequired("issue search", err)
		if project != nil {
			return nil, notFoundAsProject(project, err)
		}
		return nil, err
	}
	return issues, nil
}

// ListWikiPages lists wiki pages without their content
func (c *Client) ListWikiPages(ctx context.Context, project *models.ProjectReference) ([]models.WikiPage, error) {
	params := url.Values{}
	params.Set("with_content", "0")

	var pages []models.WikiPage
	if err := c.get(ctx, projectEndpoint(project, "/wikis"), params, &pages); err != nil {
		return nil, notFoundAsProject(project, c.authRequired("wiki access", err))
	}
	return pages, nil
}

// GetWikiPage fetches one wiki page with its content
func (c *Client) GetWikiPage(ctx context.Context, project *models.ProjectReference, slug string) (*models.WikiPage, error) {
	var page models.WikiPage
	if err := c.get(ctx, projectEndpoint(project, "/wikis/"+url.PathEscape(slug)), nil, &page); err != nil {
		return nil, c.authRequired("wiki access", err)
	}
	return &page, nil
}
