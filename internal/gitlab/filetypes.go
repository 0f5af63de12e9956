package gitlab

import (
	"path"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
)

var binaryExtensions = setOf(
	".png", ".jpg", ".jpeg", ".gif", ".bmp", ".ico", ".webp",
	".pdf", ".zip", ".gz", ".tar", ".bz2", ".xz", ".7z", ".rar",
	".exe", ".dll", ".so", ".dylib", ".o", ".a",
	".pyc", ".pyo", ".class", ".wasm",
	".root", ".pkl", ".pickle", ".npy", ".npz", ".h5", ".hdf5",
	".ttf", ".otf", ".woff", ".woff2",
	".mp3", ".mp4", ".wav", ".avi", ".mov",
)

var textExtensions = setOf(
	".yml", ".yaml", ".toml", ".cfg", ".ini", ".conf",
	".cmake", ".in", ".txt", ".md", ".rst", ".tex",
	".py", ".pyx", ".pxd", ".pyi",
	".cpp", ".cxx", ".cc", ".c", ".h", ".hpp", ".hxx",
	".java", ".scala", ".kt",
	".js", ".mjs", ".ts", ".tsx", ".jsx",
	".rs", ".go", ".rb", ".jl", ".r",
	".sh", ".bash", ".zsh", ".fish",
	".f", ".f90", ".f95", ".f03", ".f08",
	".json", ".xml", ".html", ".htm", ".css", ".sql", ".svg",
)

var textFilenames = setOf(
	"Makefile", "CMakeLists.txt", "Dockerfile", "Jenkinsfile",
	"README", "LICENSE", "CHANGELOG", "CONTRIBUTING",
	".gitignore", ".gitmodules", ".gitattributes",
	".gitlab-ci.yml", ".clang-format", ".clang-tidy",
)

var languageByExtension = map[string]string{
	".py":       "python",
	".pyx":      "python",
	".pyi":      "python",
	".cpp":      "cpp",
	".cxx":      "cpp",
	".cc":       "cpp",
	".C":        "cpp",
	".c":        "c",
	".h":        "cpp",
	".hpp":      "cpp",
	".hxx":      "cpp",
	".java":     "java",
	".js":       "javascript",
	".mjs":      "javascript",
	".ts":       "typescript",
	".tsx":      "typescript",
	".rs":       "rust",
	".go":       "go",
	".rb":       "ruby",
	".sh":       "bash",
	".bash":     "bash",
	".zsh":      "bash",
	".yml":      "yaml",
	".yaml":     "yaml",
	".json":     "json",
	".xml":      "xml",
	".html":     "html",
	".htm":      "html",
	".css":      "css",
	".sql":      "sql",
	".md":       "markdown",
	".markdown": "markdown",
	".tex":      "latex",
	".cmake":    "cmake",
	".toml":     "toml",
	".ini":      "ini",
	".cfg":      "ini",
	".r":        "r",
	".R":        "r",
	".jl":       "julia",
	".f":        "fortran",
	".f90":      "fortran",
	".f95":      "fortran",
	".f03":      "fortran",
	".f08":      "fortran",
}

var languageByFilename = map[string]string{
	"CMakeLists.txt": "cmake",
	"Makefile":       "makefile",
	"Dockerfile":     "dockerfile",
	"Jenkinsfile":    "groovy",
	".gitlab-ci.yml": "yaml",
	".clang-format":  "yaml",
}

func setOf(items ...string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}

// LanguageHint returns a syntax highlighting hint for filePath, or ""
func LanguageHint(filePath string) string {
	name := path.Base(filePath)
	if hint, ok := languageByFilename[name]; ok {
		return hint
	}
	ext := path.Ext(name)
	if hint, ok := languageByExtension[ext]; ok {
		return hint
	}
	return languageByExtension[strings.ToLower(ext)]
}

// classifyContent decides whether decoded file bytes are binary. Known names
// and extensions win; otherwise the bytes are sniffed.
func classifyContent(filePath string, data []byte) (mimeType string, binary bool) {
	name := path.Base(filePath)
	ext := strings.ToLower(path.Ext(name))

	detected := mimetype.Detect(data)
	mimeType = detected.String()

	switch {
	case textFilenames[name], textExtensions[ext]:
		return mimeType, false
	case binaryExtensions[ext]:
		return mimeType, true
	}

	for m := detected; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return mimeType, false
		}
	}
	return mimeType, !utf8.Valid(data)
}

// IsBinaryPath reports whether a path is binary judging by its extension alone
func IsBinaryPath(filePath string) bool {
	name := path.Base(filePath)
	if textFilenames[name] {
		return false
	}
	return binaryExtensions[strings.ToLower(path.Ext(name))]
}
