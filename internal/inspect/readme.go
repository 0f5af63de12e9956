package inspect

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"github.com/MohamedElashri/cerngitlab-mcp/internal/gitlab"
	"github.com/MohamedElashri/cerngitlab-mcp/internal/interfaces"
	"github.com/MohamedElashri/cerngitlab-mcp/internal/models"
)

// ReadmeCandidates are tried in order until one exists
var ReadmeCandidates = []string{
	"README.md",
	"README.rst",
	"README.txt",
	"README",
	"readme.md",
	"readme.rst",
	"readme.txt",
	"Readme.md",
}

// ReadmeNotFoundError lists the names that were tried
type ReadmeNotFoundError struct {
	Tried []string
}

func (e *ReadmeNotFoundError) Error() string {
	return fmt.Sprintf("no README file found (tried %s)", strings.Join(e.Tried, ", "))
}

// FetchReadme returns the first README candidate present at the project's ref.
// Markdown READMEs carry an outline.
func FetchReadme(ctx context.Context, reader interfaces.RepositoryReader, project *models.ProjectReference) (*models.Readme, error) {
	for _, name := range ReadmeCandidates {
		file, err := reader.GetFile(ctx, project, name)
		if err != nil {
			if gitlab.IsNotFound(err) {
				continue
			}
			return nil, err
		}

		readme := &models.Readme{
			FileName: file.FileName,
			FilePath: file.FilePath,
			Ref:      project.Ref,
			Size:     file.Size,
			Format:   ReadmeFormat(name),
			Content:  file.Content,
		}
		if readme.FileName == "" {
			readme.FileName = name
			readme.FilePath = name
		}
		if readme.Format == "markdown" {
			readme.Outline = OutlineMarkdown(file.Content)
		}
		return readme, nil
	}
	return nil, &ReadmeNotFoundError{Tried: ReadmeCandidates}
}

// ReadmeFormat names the markup of a README by its extension
func ReadmeFormat(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".md", ".markdown":
		return "markdown"
	case ".rst":
		return "restructuredtext"
	default:
		return "plaintext"
	}
}

// OutlineMarkdown lists the headings, fenced code languages and link
// targets of a markdown document
func OutlineMarkdown(markdown string) *models.ReadmeOutline {
	source := []byte(markdown)
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	doc := md.Parser().Parse(text.NewReader(source))

	outline := &models.ReadmeOutline{Headings: []models.ReadmeHeading{}}
	seenLanguages := make(map[string]bool)
	seenLinks := make(map[string]bool)

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			outline.Headings = append(outline.Headings, models.ReadmeHeading{
				Level: node.Level,
				Text:  strings.TrimSpace(string(node.Text(source))),
			})
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock:
			if lang := string(node.Language(source)); lang != "" && !seenLanguages[lang] {
				seenLanguages[lang] = true
				outline.CodeLanguages = append(outline.CodeLanguages, lang)
			}
		case *ast.Link:
			if dest := string(node.Destination); dest != "" && !seenLinks[dest] {
				seenLinks[dest] = true
				outline.Links = append(outline.Links, dest)
			}
		}
		return ast.WalkContinue, nil
	})
	return outline
}
