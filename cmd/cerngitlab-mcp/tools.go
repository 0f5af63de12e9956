package main

import (
	"github.com/mark3labs/mcp-go/mcp"
)

const (
	projectDescription = "Project identifier, either a numeric ID (e.g. '12345') or a full path (e.g. 'atlas/athena')"
	refDescription     = "Branch name, tag, or commit SHA (default: project's default branch)"
	pageDescription    = "Page number to start from (default: 1)"
)

// createTestConnectivityTool returns the test_connectivity tool definition
func createTestConnectivityTool() mcp.Tool {
	return mcp.NewTool("test_connectivity",
		mcp.WithDescription("Test connectivity to the CERN GitLab instance. Returns the GitLab version, authentication status, and connection health."),
	)
}

// createSearchRepositoriesTool returns the search_repositories tool definition
func createSearchRepositoriesTool() mcp.Tool {
	return mcp.NewTool("search_repositories",
		mcp.WithDescription("Search for public repositories on CERN GitLab by keywords, topics, or programming language. Useful for discovering HEP code, analysis frameworks, and physics tools."),
		mcp.WithString("query",
			mcp.Description("Search query string (matches project name, description, etc.)"),
		),
		mcp.WithString("language",
			mcp.Description("Filter by primary programming language (e.g. 'python', 'c++', 'java')"),
		),
		mcp.WithString("topic",
			mcp.Description("Filter by project topic/tag (e.g. 'physics', 'root', 'atlas')"),
		),
		mcp.WithString("sort_by",
			mcp.Enum("last_activity_at", "name", "created_at", "updated_at", "stars"),
			mcp.Description("Sort results by this field (default: last_activity_at)"),
		),
		mcp.WithString("order",
			mcp.Enum("desc", "asc"),
			mcp.Description("Sort order (default: desc)"),
		),
		mcp.WithNumber("per_page",
			mcp.Description("Number of results to return (default: 20, max: 100)"),
		),
	)
}

// createGetProjectInfoTool returns the get_project_info tool definition
func createGetProjectInfoTool() mcp.Tool {
	return mcp.NewTool("get_project_info",
		mcp.WithDescription("Get detailed information about a CERN GitLab project: metadata, statistics, languages and description."),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description(projectDescription),
		),
	)
}

// createListRepositoryFilesTool returns the list_repository_files tool definition
func createListRepositoryFilesTool() mcp.Tool {
	return mcp.NewTool("list_repository_files",
		mcp.WithDescription("List files and directories in a CERN GitLab repository, from the root or a subdirectory. Useful for understanding project structure before fetching specific files."),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description(projectDescription),
		),
		mcp.WithString("path",
			mcp.Description("Directory path within the repository (default: root)"),
		),
		mcp.WithString("ref",
			mcp.Description(refDescription),
		),
		mcp.WithBoolean("recursive",
			mcp.Description("If true, list files recursively (default: false)"),
		),
		mcp.WithNumber("per_page",
			mcp.Description("Number of entries to return (default: 100, max: 100)"),
		),
		mcp.WithNumber("page",
			mcp.Description(pageDescription),
		),
	)
}

// createGetFileContentTool returns the get_file_content tool definition
func createGetFileContentTool() mcp.Tool {
	return mcp.NewTool("get_file_content",
		mcp.WithDescription("Retrieve the content of a file from a CERN GitLab repository, with size, encoding and a language hint. Binary files are detected and reported without their content."),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description(projectDescription),
		),
		mcp.WithString("file_path",
			mcp.Required(),
			mcp.Description("Path to the file within the repository (e.g. 'src/main.py')"),
		),
		mcp.WithString("ref",
			mcp.Description(refDescription),
		),
	)
}

// createGetProjectReadmeTool returns the get_project_readme tool definition
func createGetProjectReadmeTool() mcp.Tool {
	return mcp.NewTool("get_project_readme",
		mcp.WithDescription("Get the README of a CERN GitLab project. Markdown READMEs include an outline of headings, code block languages and links."),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description(projectDescription),
		),
		mcp.WithString("ref",
			mcp.Description(refDescription),
		),
	)
}

// createSearchCodeTool returns the search_code tool definition
func createSearchCodeTool() mcp.Tool {
	return mcp.NewTool("search_code",
		mcp.WithDescription("Search for code across CERN GitLab, globally or within one project. Returns matching files with line-level context. Project searches fall back to scanning the repository when native search is unavailable."),
		mcp.WithString("search_term",
			mcp.Required(),
			mcp.Description("The code or text to search for"),
		),
		mcp.WithString("project",
			mcp.Description("Optional: limit the search to one project. If omitted, searches across all public projects (requires a token)."),
		),
		mcp.WithString("ref",
			mcp.Description("Branch name, tag, or commit SHA for project searches (default: project's default branch)"),
		),
		mcp.WithString("scope",
			mcp.Enum("blobs", "filenames"),
			mcp.Description("'blobs' searches file content (default), 'filenames' searches only file names"),
		),
		mcp.WithNumber("per_page",
			mcp.Description("Number of results to return (default: 20, max: 100)"),
		),
	)
}

// createSearchIssuesTool returns the search_issues tool definition
func createSearchIssuesTool() mcp.Tool {
	return mcp.NewTool("search_issues",
		mcp.WithDescription("Search issues in CERN GitLab projects. Useful for understanding how a library is used, finding solutions to common errors, or checking whether a feature is supported."),
		mcp.WithString("search_term",
			mcp.Required(),
			mcp.Description("Keywords to search for in issue titles and descriptions"),
		),
		mcp.WithString("project",
			mcp.Description("Optional: limit the search to one project"),
		),
		mcp.WithString("state",
			mcp.Enum("opened", "closed", "all"),
			mcp.Description("Filter by issue state (default: all)"),
		),
		mcp.WithNumber("per_page",
			mcp.Description("Number of results to return (default: 10, max: 100)"),
		),
	)
}

// createGetWikiPagesTool returns the get_wiki_pages tool definition
func createGetWikiPagesTool() mcp.Tool {
	return mcp.NewTool("get_wiki_pages",
		mcp.WithDescription("Access wiki pages of a CERN GitLab project. Lists all pages, or returns the content of one page when page_slug is given."),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description(projectDescription),
		),
		mcp.WithString("page_slug",
			mcp.Description("Optional: slug of a specific wiki page to retrieve"),
		),
	)
}

// createListReleasesTool returns the list_releases tool definition
func createListReleasesTool() mcp.Tool {
	return mcp.NewTool("list_releases",
		mcp.WithDescription("List releases of a CERN GitLab project, newest first, with tags, dates and descriptions."),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description(projectDescription),
		),
		mcp.WithNumber("per_page",
			mcp.Description("Number of releases to return (default: 20, max: 100)"),
		),
		mcp.WithNumber("page",
			mcp.Description(pageDescription),
		),
	)
}

// createGetReleaseTool returns the get_release tool definition
func createGetReleaseTool() mcp.Tool {
	return mcp.NewTool("get_release",
		mcp.WithDescription("Get one release of a CERN GitLab project by its tag name, including assets and links."),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description(projectDescription),
		),
		mcp.WithString("tag_name",
			mcp.Required(),
			mcp.Description("The tag name of the release (e.g. 'v1.0.0')"),
		),
	)
}

// createListTagsTool returns the list_tags tool definition
func createListTagsTool() mcp.Tool {
	return mcp.NewTool("list_tags",
		mcp.WithDescription("List tags of a CERN GitLab repository with their commits. Useful for finding version history and release points."),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description(projectDescription),
		),
		mcp.WithString("search",
			mcp.Description("Optional: filter tags by name (e.g. 'v1' to find all v1.x tags)"),
		),
		mcp.WithString("order_by",
			mcp.Enum("name", "updated", "version"),
			mcp.Description("Order tags by this field (default: updated)"),
		),
		mcp.WithString("sort",
			mcp.Enum("asc", "desc"),
			mcp.Description("Sort order (default: desc)"),
		),
		mcp.WithNumber("per_page",
			mcp.Description("Number of tags to return (default: 20, max: 100)"),
		),
		mcp.WithNumber("page",
			mcp.Description(pageDescription),
		),
	)
}

// createListBranchesTool returns the list_branches tool definition
func createListBranchesTool() mcp.Tool {
	return mcp.NewTool("list_branches",
		mcp.WithDescription("List branches of a CERN GitLab repository, marking the default and protected branches."),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description(projectDescription),
		),
		mcp.WithString("search",
			mcp.Description("Optional: filter branches by name"),
		),
		mcp.WithNumber("per_page",
			mcp.Description("Number of branches to return (default: 20, max: 100)"),
		),
		mcp.WithNumber("page",
			mcp.Description(pageDescription),
		),
	)
}

// createAnalyzeDependenciesTool returns the analyze_dependencies tool definition
func createAnalyzeDependenciesTool() mcp.Tool {
	return mcp.NewTool("analyze_dependencies",
		mcp.WithDescription("Find and parse dependency manifests of a CERN GitLab project (requirements*.txt, pyproject.toml, setup.py, setup.cfg, Pipfile, environment.yml, CMakeLists.txt, conanfile, vcpkg.json, fpm.toml). Manifests that cannot be parsed are reported, not fatal."),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description(projectDescription),
		),
		mcp.WithString("ref",
			mcp.Description(refDescription),
		),
	)
}

// createGetCIConfigTool returns the get_ci_config tool definition
func createGetCIConfigTool() mcp.Tool {
	return mcp.NewTool("get_ci_config",
		mcp.WithDescription("Get the GitLab CI/CD configuration of a project with a structural analysis: stages, jobs, includes, variables and templates."),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description(projectDescription),
		),
		mcp.WithString("ref",
			mcp.Description(refDescription),
		),
	)
}

// createGetBuildConfigTool returns the get_build_config tool definition
func createGetBuildConfigTool() mcp.Tool {
	return mcp.NewTool("get_build_config",
		mcp.WithDescription("Get the build configuration files of a project (CMakeLists.txt, Makefile, setup.py, pyproject.toml, meson.build, ...) with their contents and the detected build systems."),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description(projectDescription),
		),
		mcp.WithString("ref",
			mcp.Description(refDescription),
		),
	)
}

// createInspectProjectTool returns the inspect_project tool definition
func createInspectProjectTool() mcp.Tool {
	return mcp.NewTool("inspect_project",
		mcp.WithDescription("Inspect a CERN GitLab project in one call: ecosystems, build systems, parsed dependencies, parse failures and the CI pipeline structure."),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description(projectDescription),
		),
		mcp.WithString("ref",
			mcp.Description(refDescription),
		),
	)
}
