package inspect

import (
	"path"
	"sort"
	"strings"

	"github.com/MohamedElashri/cerngitlab-mcp/internal/models"
)

// recognizer matches one kind of build descriptor. Exactly one of name, glob
// or suffixes is set. suffixes are compared case-insensitively.
type recognizer struct {
	name        string
	glob        string
	suffixes    []string
	ecosystem   models.Ecosystem
	format      models.Format
	buildSystem string
}

var recognitionTable = []recognizer{
	{name: "CMakeLists.txt", ecosystem: models.EcosystemCpp, format: models.FormatCMake, buildSystem: "cmake"},
	{glob: "requirements*.txt", ecosystem: models.EcosystemPython, format: models.FormatRequirements, buildSystem: "pip"},
	{name: "pyproject.toml", ecosystem: models.EcosystemPython, format: models.FormatPyproject, buildSystem: "python-build"},
	{name: "setup.py", ecosystem: models.EcosystemPython, format: models.FormatSetupPy, buildSystem: "setuptools"},
	{name: "setup.cfg", ecosystem: models.EcosystemPython, format: models.FormatSetupCfg, buildSystem: "setuptools"},
	{name: "Pipfile", ecosystem: models.EcosystemPython, format: models.FormatPipfile, buildSystem: "pipenv"},
	{name: "conda.yaml", ecosystem: models.EcosystemPython, format: models.FormatConda, buildSystem: "conda"},
	{name: "conda.yml", ecosystem: models.EcosystemPython, format: models.FormatConda, buildSystem: "conda"},
	{name: "environment.yml", ecosystem: models.EcosystemPython, format: models.FormatConda, buildSystem: "conda"},
	{name: "environment.yaml", ecosystem: models.EcosystemPython, format: models.FormatConda, buildSystem: "conda"},
	{name: "conanfile.txt", ecosystem: models.EcosystemCpp, format: models.FormatConanTxt, buildSystem: "conan"},
	{name: "conanfile.py", ecosystem: models.EcosystemCpp, format: models.FormatConanPy, buildSystem: "conan"},
	{name: "vcpkg.json", ecosystem: models.EcosystemCpp, format: models.FormatVcpkg, buildSystem: "vcpkg"},
	{name: "meson.build", ecosystem: models.EcosystemCpp, format: models.FormatMeson, buildSystem: "meson"},
	{name: "Makefile", ecosystem: models.EcosystemOther, format: models.FormatMakefile, buildSystem: "make"},
	{name: "makefile", ecosystem: models.EcosystemOther, format: models.FormatMakefile, buildSystem: "make"},
	{name: "GNUmakefile", ecosystem: models.EcosystemOther, format: models.FormatMakefile, buildSystem: "make"},
	{glob: "Makefile.f*", ecosystem: models.EcosystemFortran, format: models.FormatMakefile, buildSystem: "make"},
	{glob: "Makefile.*", ecosystem: models.EcosystemOther, format: models.FormatMakefile, buildSystem: "make"},
	{name: "SConstruct", ecosystem: models.EcosystemOther, format: models.FormatSCons, buildSystem: "scons"},
	{name: "SConscript", ecosystem: models.EcosystemOther, format: models.FormatSCons, buildSystem: "scons"},
	{name: "wscript", ecosystem: models.EcosystemOther, format: models.FormatWaf, buildSystem: "waf"},
	{name: "Dockerfile", ecosystem: models.EcosystemOther, format: models.FormatDockerfile, buildSystem: "docker"},
	{name: "fpm.toml", ecosystem: models.EcosystemFortran, format: models.FormatFortranFpm, buildSystem: "fpm"},
	{suffixes: []string{".f", ".for", ".f77", ".f90", ".f95", ".f03", ".f08"}, ecosystem: models.EcosystemFortran, format: models.FormatFortranSrc},
	{name: ".gitlab-ci.yml", ecosystem: models.EcosystemCI, format: models.FormatGitLabCI, buildSystem: "gitlab-ci"},
}

// maxDetectionDepth is the deepest directory level inspected (0 is the root)
const maxDetectionDepth = 1

func (r recognizer) matches(base string) bool {
	switch {
	case r.name != "":
		return base == r.name
	case r.glob != "":
		ok, _ := path.Match(r.glob, base)
		return ok
	default:
		ext := strings.ToLower(path.Ext(base))
		for _, s := range r.suffixes {
			if ext == s {
				return true
			}
		}
		return false
	}
}

func recognize(base string) (recognizer, bool) {
	for _, r := range recognitionTable {
		if r.matches(base) {
			return r, true
		}
	}
	return recognizer{}, false
}

// DetectManifests classifies the blobs of the top two tree levels against the
// recognition table. Nothing matching yields an empty slice, never an error.
func DetectManifests(entries []models.TreeEntry) []models.ManifestCandidate {
	candidates := []models.ManifestCandidate{}
	seen := make(map[string]bool)
	for _, e := range entries {
		if !e.IsBlob() || seen[e.Path] {
			continue
		}
		p := strings.Trim(e.Path, "/")
		if strings.Count(p, "/") > maxDetectionDepth {
			continue
		}
		r, ok := recognize(path.Base(p))
		if !ok {
			continue
		}
		seen[e.Path] = true
		candidates = append(candidates, models.ManifestCandidate{
			Path:      p,
			Ecosystem: r.ecosystem,
			Format:    r.format,
		})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Path < candidates[j].Path })
	return candidates
}

// DetectBuildSystems groups candidates by build tool, sorted by tool name
func DetectBuildSystems(candidates []models.ManifestCandidate) []models.BuildSystem {
	files := make(map[string][]string)
	for _, c := range candidates {
		r, ok := recognize(path.Base(c.Path))
		if !ok || r.buildSystem == "" {
			continue
		}
		files[r.buildSystem] = append(files[r.buildSystem], c.Path)
	}

	systems := make([]models.BuildSystem, 0, len(files))
	for name, paths := range files {
		systems = append(systems, models.BuildSystem{Name: name, Files: paths})
	}
	sort.Slice(systems, func(i, j int) bool { return systems[i].Name < systems[j].Name })
	return systems
}

// DetectEcosystems returns the distinct ecosystems of candidates in a stable order
func DetectEcosystems(candidates []models.ManifestCandidate) []models.Ecosystem {
	seen := make(map[models.Ecosystem]bool)
	ecosystems := []models.Ecosystem{}
	for _, c := range candidates {
		if !seen[c.Ecosystem] {
			seen[c.Ecosystem] = true
			ecosystems = append(ecosystems, c.Ecosystem)
		}
	}
	sort.Slice(ecosystems, func(i, j int) bool { return ecosystems[i] < ecosystems[j] })
	return ecosystems
}

// IsManifestPath reports whether a file name is a recognised build descriptor
func IsManifestPath(p string) bool {
	_, ok := recognize(path.Base(p))
	return ok
}
