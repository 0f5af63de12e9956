package inspect

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MohamedElashri/cerngitlab-mcp/internal/models"
)

func TestOutlineMarkdown(t *testing.T) {
	md := "# DaVinci\n\nSee [docs](https://lhcb-davinci.docs.cern.ch).\n\n## Build\n\n```bash\nlb-project-init\n```\n\n## Run\n\n```python\nfrom DaVinci import Options\n```\n\n### Options\n"

	outline := OutlineMarkdown(md)
	assert.Equal(t, []models.ReadmeHeading{
		{Level: 1, Text: "DaVinci"},
		{Level: 2, Text: "Build"},
		{Level: 2, Text: "Run"},
		{Level: 3, Text: "Options"},
	}, outline.Headings)
	assert.Equal(t, []string{"bash", "python"}, outline.CodeLanguages)
	assert.Equal(t, []string{"https://lhcb-davinci.docs.cern.ch"}, outline.Links)
}

func TestReadmeFormat(t *testing.T) {
	assert.Equal(t, "markdown", ReadmeFormat("README.md"))
	assert.Equal(t, "restructuredtext", ReadmeFormat("README.rst"))
	assert.Equal(t, "plaintext", ReadmeFormat("README.txt"))
	assert.Equal(t, "plaintext", ReadmeFormat("README"))
}

func TestFetchReadme_TriesCandidatesInOrder(t *testing.T) {
	repo := newMemoryRepo(map[string]string{
		"README.rst": "DaVinci\n=======\n",
		"readme.md":  "# lower",
	})
	project, err := repo.ResolveProject(context.Background(), "lhcb/DaVinci", "")
	require.NoError(t, err)

	readme, err := FetchReadme(context.Background(), repo, project)
	require.NoError(t, err)
	assert.Equal(t, "README.rst", readme.FilePath)
	assert.Equal(t, "restructuredtext", readme.Format)
	assert.Nil(t, readme.Outline)
	assert.Equal(t, []string{"README.md", "README.rst"}, repo.fetched)
}

func TestFetchReadme_NoneFound(t *testing.T) {
	repo := newMemoryRepo(map[string]string{"docs/index.md": ""})
	project, _ := repo.ResolveProject(context.Background(), "lhcb/DaVinci", "")

	_, err := FetchReadme(context.Background(), repo, project)
	var notFound *ReadmeNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, ReadmeCandidates, notFound.Tried)
}
