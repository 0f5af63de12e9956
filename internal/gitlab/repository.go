package gitlab

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/MohamedElashri/cerngitlab-mcp/internal/models"
)

func projectEndpoint(project *models.ProjectReference, suffix string) string {
	return "/projects/" + project.ResolvedPath + suffix
}

// notFoundAsProject turns a 404 on a project scoped endpoint into ProjectNotFoundError
func notFoundAsProject(project *models.ProjectReference, err error) error {
	if IsNotFound(err) {
		return &ProjectNotFoundError{Project: project.Identifier}
	}
	return err
}

// ListTree lists repository entries below dir at the project's ref
func (c *Client) ListTree(ctx context.Context, project *models.ProjectReference, dir string, recursive bool, limit int) ([]models.TreeEntry, error) {
	return c.ListTreePage(ctx, project, dir, recursive, 1, limit)
}

// ListTreePage is ListTree starting at the given page
func (c *Client) ListTreePage(ctx context.Context, project *models.ProjectReference, dir string, recursive bool, page, limit int) ([]models.TreeEntry, error) {
	params := pageParams(page)
	if dir = strings.Trim(dir, "/"); dir != "" {
		params.Set("path", dir)
	}
	if project.Ref != "" {
		params.Set("ref", project.Ref)
	}
	if recursive {
		params.Set("recursive", "true")
	}

	entries, err := FetchPages[models.TreeEntry](ctx, c, projectEndpoint(project, "/repository/tree"), params, c.maxPerPage, limit)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

type fileResponse struct {
	FileName     string `json:"file_name"`
	FilePath     string `json:"file_path"`
	Size         int64  `json:"size"`
	Encoding     string `json:"encoding"`
	Content      string `json:"content"`
	Ref          string `json:"ref"`
	LastCommitID string `json:"last_commit_id"`
}

// GetFile fetches and decodes one repository file. Binary content is detected
// and reported without being decoded into Content.
func (c *Client) GetFile(ctx context.Context, project *models.ProjectReference, filePath string) (*models.RepoFile, error) {
	filePath = strings.TrimPrefix(strings.TrimSpace(filePath), "/")
	if filePath == "" {
		return nil, fmt.Errorf("file path is required")
	}

	params := url.Values{}
	params.Set("ref", project.Ref)

	var raw fileResponse
	endpoint := projectEndpoint(project, "/repository/files/"+url.PathEscape(filePath))
	if err := c.get(ctx, endpoint, params, &raw); err != nil {
		return nil, err
	}

	file := &models.RepoFile{
		FileName:     raw.FileName,
		FilePath:     raw.FilePath,
		Ref:          raw.Ref,
		Size:         raw.Size,
		Encoding:     raw.Encoding,
		Language:     LanguageHint(filePath),
		LastCommitID: raw.LastCommitID,
	}
	if file.FileName == "" {
		file.FileName = path.Base(filePath)
	}
	if file.FilePath == "" {
		file.FilePath = filePath
	}
	if file.Ref == "" {
		file.Ref = project.Ref
	}

	data := []byte(raw.Content)
	if raw.Encoding == "base64" {
		decoded, err := base64.StdEncoding.DecodeString(raw.Content)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", filePath, err)
		}
		data = decoded
	}

	file.MimeType, file.Binary = classifyContent(filePath, data)
	if !file.Binary {
		file.Content = strings.ToValidUTF8(string(data), "�")
		file.Encoding = "text"
	}

	return file, nil
}

// ListBranches lists branches, optionally filtered by search
func (c *Client) ListBranches(ctx context.Context, project *models.ProjectReference, search string, page, limit int) ([]models.Branch, error) {
	params := pageParams(page)
	if search != "" {
		params.Set("search", search)
	}
	branches, err := FetchPages[models.Branch](ctx, c, projectEndpoint(project, "/repository/branches"), params, 0, limit)
	if err != nil {
		return nil, notFoundAsProject(project, err)
	}
	return branches, nil
}

// ListTags lists tags. orderBy is one of name, updated, version.
func (c *Client) ListTags(ctx context.Context, project *models.ProjectReference, search, orderBy, sort string, page, limit int) ([]models.Tag, error) {
	params := pageParams(page)
	if search != "" {
		params.Set("search", search)
	}
	if orderBy != "" {
		params.Set("order_by", orderBy)
	}
	if sort == "asc" || sort == "desc" {
		params.Set("sort", sort)
	}
	tags, err := FetchPages[models.Tag](ctx, c, projectEndpoint(project, "/repository/tags"), params, 0, limit)
	if err != nil {
		return nil, notFoundAsProject(project, err)
	}
	return tags, nil
}

// ListReleases lists releases newest first
func (c *Client) ListReleases(ctx context.Context, project *models.ProjectReference, page, limit int) ([]models.Release, error) {
	params := pageParams(page)
	params.Set("order_by", "released_at")
	params.Set("sort", "desc")
	releases, err := FetchPages[models.Release](ctx, c, projectEndpoint(project, "/releases"), params, 0, limit)
	if err != nil {
		return nil, notFoundAsProject(project, err)
	}
	return releases, nil
}

// pageParams starts a listing at page; values below 2 mean the first page
func pageParams(page int) url.Values {
	params := url.Values{}
	if page > 1 {
		params.Set("page", strconv.Itoa(page))
	}
	return params
}

// GetRelease fetches a single release by tag name
func (c *Client) GetRelease(ctx context.Context, project *models.ProjectReference, tagName string) (*models.Release, error) {
	var release models.Release
	if err := c.get(ctx, projectEndpoint(project, "/releases/"+url.PathEscape(tagName)), nil, &release); err != nil {
		return nil, err
	}
	return &release, nil
}
