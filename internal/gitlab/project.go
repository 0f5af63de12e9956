package gitlab

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/MohamedElashri/cerngitlab-mcp/internal/models"
)

// fallbackRef is used when a project reports no default branch (empty repositories)
const fallbackRef = "main"

// EncodeProject returns the transport form of a project identifier.
// Numeric ids pass through; paths are percent-encoded once ("a/b" -> "a%2Fb").
func EncodeProject(identifier string) string {
	identifier = strings.TrimSpace(identifier)
	if isNumeric(identifier) {
		return identifier
	}
	return url.PathEscape(identifier)
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ResolveProject builds the reference used for the rest of one call. A supplied
// ref is used verbatim; otherwise the project's default branch is looked up.
// The lookup is not cached across calls.
func (c *Client) ResolveProject(ctx context.Context, identifier, ref string) (*models.ProjectReference, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, fmt.Errorf("project identifier is required")
	}

	pr := &models.ProjectReference{
		Identifier:   identifier,
		ResolvedPath: EncodeProject(identifier),
		Ref:          strings.TrimSpace(ref),
	}
	if pr.Ref != "" {
		return pr, nil
	}

	project, err := c.GetProject(ctx, identifier, false)
	if err != nil {
		return nil, err
	}

	pr.DefaultRef = project.DefaultBranch
	if pr.DefaultRef == "" {
		pr.DefaultRef = fallbackRef
	}
	pr.Ref = pr.DefaultRef
	pr.CIConfigPath = project.CIConfigPath

	c.logger.Debug().
		Str("project", identifier).
		Str("ref", pr.Ref).
		Msg("Resolved project default branch")

	return pr, nil
}

// GetProject fetches project metadata. A 404 becomes ProjectNotFoundError.
func (c *Client) GetProject(ctx context.Context, identifier string, statistics bool) (*models.Project, error) {
	params := url.Values{}
	params.Set("statistics", fmt.Sprintf("%t", statistics))

	var project models.Project
	if err := c.get(ctx, "/projects/"+EncodeProject(identifier), params, &project); err != nil {
		if IsNotFound(err) {
			return nil, &ProjectNotFoundError{Project: identifier}
		}
		return nil, err
	}
	return &project, nil
}

// GetProjectLanguages returns the language breakdown of a project in percent
func (c *Client) GetProjectLanguages(ctx context.Context, identifier string) (map[string]float64, error) {
	languages := map[string]float64{}
	if err := c.get(ctx, "/projects/"+EncodeProject(identifier)+"/languages", nil, &languages); err != nil {
		if IsNotFound(err) {
			return nil, &ProjectNotFoundError{Project: identifier}
		}
		return nil, err
	}
	return languages, nil
}

// GetProjectDetails combines project metadata and language statistics.
// A failed language lookup is logged and yields an empty breakdown.
func (c *Client) GetProjectDetails(ctx context.Context, identifier string) (*models.ProjectDetails, error) {
	project, err := c.GetProject(ctx, identifier, true)
	if err != nil {
		return nil, err
	}

	languages, err := c.GetProjectLanguages(ctx, identifier)
	if err != nil {
		if ctx.Err() != nil {
			return nil, AsTimeout(ctx, "get project languages", err)
		}
		c.logger.Warn().Err(err).Str("project", identifier).Msg("Failed to fetch project languages")
		languages = map[string]float64{}
	}

	return &models.ProjectDetails{Project: *project, Languages: languages}, nil
}

// SearchProjects lists public projects matching opts (single page)
func (c *Client) SearchProjects(ctx context.Context, opts models.ProjectSearchOptions) ([]models.Project, error) {
	params := url.Values{}
	params.Set("visibility", "public")
	if opts.Query != "" {
		params.Set("search", opts.Query)
	}
	if opts.Language != "" {
		params.Set("with_programming_language", opts.Language)
	}
	if opts.Topic != "" {
		params.Set("topic", opts.Topic)
	}

	orderBy := opts.OrderBy
	switch orderBy {
	case "":
		orderBy = "last_activity_at"
	case "stars":
		orderBy = "star_count"
	}
	params.Set("order_by", orderBy)

	sort := opts.Sort
	if sort != "asc" {
		sort = "desc"
	}
	params.Set("sort", sort)
	params.Set("per_page", fmt.Sprintf("%d", c.ClampPerPage(opts.PerPage)))

	var projects []models.Project
	if err := c.get(ctx, "/projects", params, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// Version reports the forge version. Instances that hide /version from
// anonymous users are probed with a one item project listing instead.
func (c *Client) Version(ctx context.Context) (*models.ServerVersion, error) {
	var version models.ServerVersion
	err := c.get(ctx, "/version", nil, &version)
	if err == nil {
		return &version, nil
	}

	if kind := ErrorKind(err); kind != KindRequestRejected || c.HasToken() {
		return nil, err
	}

	params := url.Values{}
	params.Set("per_page", "1")
	var probe []models.Project
	if probeErr := c.get(ctx, "/projects", params, &probe); probeErr != nil {
		return nil, probeErr
	}
	return &models.ServerVersion{Version: "unknown", Revision: "unknown"}, nil
}
