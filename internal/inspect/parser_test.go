package inspect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MohamedElashri/cerngitlab-mcp/internal/models"
)

func manifest(path string, ecosystem models.Ecosystem, format models.Format) models.ManifestCandidate {
	return models.ManifestCandidate{Path: path, Ecosystem: ecosystem, Format: format}
}

// names flattens dependencies to name and constraint pairs
func names(deps []models.Dependency) [][2]string {
	out := make([][2]string, 0, len(deps))
	for _, d := range deps {
		out = append(out, [2]string{d.Name, d.VersionConstraint})
	}
	return out
}

func TestParseRequirements(t *testing.T) {
	m := manifest("requirements.txt", models.EcosystemPython, models.FormatRequirements)

	deps, unresolved, failure := ParseManifest(m, "numpy>=1.20\n# comment\nscipy\n")
	require.Nil(t, failure)
	assert.Empty(t, unresolved)
	assert.Equal(t, [][2]string{{"numpy", ">=1.20"}, {"scipy", ""}}, names(deps))
	assert.Equal(t, "requirements.txt", deps[0].SourceManifest)
	assert.Equal(t, models.EcosystemPython, deps[0].Ecosystem)
}

func TestParseRequirements_MarkersOptionsAndExtras(t *testing.T) {
	m := manifest("requirements-dev.txt", models.EcosystemPython, models.FormatRequirements)
	content := `-r requirements.txt
--index-url https://pypi.org/simple

pytest ~= 7.4  # test runner
uproot[dev] >=5.0, <6 ; python_version >= "3.8"
awkward==2.4.2
pywin32; sys_platform == 'win32'
boost-histogram \
    >=1.3
numpy>=1.20
numpy==1.26
`
	deps, _, failure := ParseManifest(m, content)
	require.Nil(t, failure)
	assert.Equal(t, [][2]string{
		{"pytest", "~=7.4"},
		{"uproot", ">=5.0,<6"},
		{"awkward", "==2.4.2"},
		{"pywin32", ""},
		{"boost-histogram", ">=1.3"},
		{"numpy", ">=1.20"},
	}, names(deps), "duplicates keep the first declaration")
}

func TestParsePyproject(t *testing.T) {
	m := manifest("pyproject.toml", models.EcosystemPython, models.FormatPyproject)
	content := `
[build-system]
requires = ["hatchling>=1.18"]

[project]
name = "lbanalysis"
dependencies = ["numpy>=1.22", "pandas"]
dynamic = ["version", "optional-dependencies"]

[project.optional-dependencies]
plot = ["matplotlib"]
`
	deps, unresolved, failure := ParseManifest(m, content)
	require.Nil(t, failure)

	assert.Equal(t, [][2]string{
		{"numpy", ">=1.22"},
		{"pandas", ""},
		{"matplotlib", ""},
		{"hatchling", ">=1.18"},
	}, names(deps))
	assert.Equal(t, "optional:plot", deps[2].Group)
	assert.Equal(t, "build-system", deps[3].Group)

	require.Len(t, unresolved, 1)
	assert.Equal(t, "project.optional-dependencies", unresolved[0].Field)
	assert.Equal(t, "pyproject.toml", unresolved[0].SourceManifest)
}

func TestParsePyproject_Poetry(t *testing.T) {
	m := manifest("pyproject.toml", models.EcosystemPython, models.FormatPyproject)
	content := `
[tool.poetry.dependencies]
python = "^3.10"
requests = "^2.31"
uproot = { version = ">=5", extras = ["xrootd"] }

[tool.poetry.group.test.dependencies]
pytest = "*"
`
	deps, _, failure := ParseManifest(m, content)
	require.Nil(t, failure)
	assert.Equal(t, [][2]string{{"requests", "^2.31"}, {"uproot", ">=5"}, {"pytest", ""}}, names(deps))
	assert.Equal(t, "test", deps[2].Group)
}

func TestParsePyproject_MalformedIsFailure(t *testing.T) {
	m := manifest("pyproject.toml", models.EcosystemPython, models.FormatPyproject)

	deps, _, failure := ParseManifest(m, "[project\ndependencies = [")
	require.NotNil(t, failure)
	assert.Nil(t, deps)
	assert.Equal(t, "pyproject.toml", failure.Path)
	assert.Equal(t, models.FormatPyproject, failure.Format)
	assert.Contains(t, failure.Reason, "invalid TOML")
}

func TestParseSetupPy(t *testing.T) {
	m := manifest("setup.py", models.EcosystemPython, models.FormatSetupPy)

	static := `from setuptools import setup
setup(
    name="lbtools",
    install_requires=[
        "numpy>=1.20",  # arrays
        'PyYAML',
        "uproot[xrootd]>=5",
    ],
)
`
	deps, _, failure := ParseManifest(m, static)
	require.Nil(t, failure)
	assert.Equal(t, [][2]string{{"numpy", ">=1.20"}, {"PyYAML", ""}, {"uproot", ">=5"}}, names(deps))

	computed := `with open("requirements.txt") as f:
    reqs = f.read().splitlines()
setup(name="x", install_requires=reqs)
`
	_, _, failure = ParseManifest(m, computed)
	require.NotNil(t, failure)
	assert.Contains(t, failure.Reason, "not a static list")

	concatenated := `setup(install_requires=["numpy"] + extra)`
	_, _, failure = ParseManifest(m, concatenated)
	require.NotNil(t, failure)

	mixed := `setup(install_requires=["numpy", BASE_REQ])`
	_, _, failure = ParseManifest(m, mixed)
	require.NotNil(t, failure)

	deps, _, failure = ParseManifest(m, `setup(name="nodeps")`)
	require.Nil(t, failure)
	assert.Empty(t, deps)
}

func TestParseSetupCfg(t *testing.T) {
	m := manifest("setup.cfg", models.EcosystemPython, models.FormatSetupCfg)
	content := `[metadata]
name = lbtools

[options]
install_requires =
    numpy>=1.20
    scipy

[options.extras_require]
docs =
    sphinx
`
	deps, _, failure := ParseManifest(m, content)
	require.Nil(t, failure)
	assert.Equal(t, [][2]string{{"numpy", ">=1.20"}, {"scipy", ""}, {"sphinx", ""}}, names(deps))
	assert.Equal(t, "optional:docs", deps[2].Group)
}

func TestParseConda(t *testing.T) {
	m := manifest("environment.yml", models.EcosystemPython, models.FormatConda)
	content := `name: analysis
channels:
  - conda-forge
dependencies:
  - python=3.11
  - conda-forge::root>=6.28
  - numpy
  - pip:
      - lbconda>=0.4
`
	deps, _, failure := ParseManifest(m, content)
	require.Nil(t, failure)
	assert.Equal(t, [][2]string{{"python", "=3.11"}, {"root", ">=6.28"}, {"numpy", ""}, {"lbconda", ">=0.4"}}, names(deps))
	assert.Equal(t, "pip", deps[3].Group)

	_, _, failure = ParseManifest(m, "dependencies: [numpy\n")
	assert.NotNil(t, failure)
}

func TestParsePipfile(t *testing.T) {
	m := manifest("Pipfile", models.EcosystemPython, models.FormatPipfile)
	content := `[packages]
requests = "*"
numpy = {version = ">=1.20"}

[dev-packages]
pytest = ">=7"
`
	deps, _, failure := ParseManifest(m, content)
	require.Nil(t, failure)
	assert.Equal(t, [][2]string{{"numpy", ">=1.20"}, {"requests", ""}, {"pytest", ">=7"}}, names(deps))
	assert.Equal(t, "dev", deps[2].Group)
}

func TestParseCMake(t *testing.T) {
	m := manifest("CMakeLists.txt", models.EcosystemCpp, models.FormatCMake)
	content := `cmake_minimum_required(VERSION 3.15)
project(Rec LANGUAGES CXX)

# find_package(Commented)
find_package(ROOT 6.20 REQUIRED COMPONENTS Core Hist)
FIND_PACKAGE(Boost 1.70 EXACT)
find_package(Eigen3)
find_package(${EXTERNAL_PKG})
find_library(GSL_LIB NAMES gsl gslcblas HINTS /opt/gsl)
find_library(TBB_LIB tbb)
pkg_check_modules(XROOTD REQUIRED xrootd-client>=5.0)
`
	deps, _, failure := ParseManifest(m, content)
	require.Nil(t, failure)
	assert.Equal(t, [][2]string{
		{"ROOT", ">=6.20"},
		{"Boost", "==1.70"},
		{"Eigen3", ""},
		{"gsl", ""},
		{"gslcblas", ""},
		{"tbb", ""},
		{"xrootd-client", ">=5.0"},
	}, names(deps))
	assert.Equal(t, "library", deps[3].Group)
}

func TestParseCMake_UnbalancedCallIsFailure(t *testing.T) {
	m := manifest("CMakeLists.txt", models.EcosystemCpp, models.FormatCMake)

	_, _, failure := ParseManifest(m, "find_package(ROOT 6.20\n")
	require.NotNil(t, failure)
	assert.Contains(t, failure.Reason, "unbalanced")
}

func TestUsesFortran(t *testing.T) {
	assert.True(t, usesFortran("project(Solver LANGUAGES C Fortran)"))
	assert.True(t, usesFortran("enable_language(Fortran)"))
	assert.False(t, usesFortran("project(Rec LANGUAGES CXX)\n# enable_language(Fortran)"))
}

func TestParseConanTxt(t *testing.T) {
	m := manifest("conanfile.txt", models.EcosystemCpp, models.FormatConanTxt)
	content := `[requires]
zlib/1.2.13
boost/1.81.0@lhcb/stable

[tool_requires]
cmake/3.27.0

[generators]
CMakeDeps
`
	deps, _, failure := ParseManifest(m, content)
	require.Nil(t, failure)
	assert.Equal(t, [][2]string{{"zlib", "1.2.13"}, {"boost", "1.81.0"}, {"cmake", "3.27.0"}}, names(deps))
	assert.Equal(t, "tool", deps[2].Group)
}

func TestParseConanPy(t *testing.T) {
	m := manifest("conanfile.py", models.EcosystemCpp, models.FormatConanPy)
	content := `from conan import ConanFile

class Pkg(ConanFile):
    requires = "fmt/10.1.1", "spdlog/1.12.0"

    def requirements(self):
        self.requires("zlib/1.3")
        self.tool_requires("ninja/1.11.1")
`
	deps, _, failure := ParseManifest(m, content)
	require.Nil(t, failure)
	assert.Equal(t, [][2]string{{"fmt", "10.1.1"}, {"spdlog", "1.12.0"}, {"zlib", "1.3"}, {"ninja", "1.11.1"}}, names(deps))
	assert.Equal(t, "tool", deps[3].Group)
}

func TestParseVcpkg(t *testing.T) {
	m := manifest("vcpkg.json", models.EcosystemCpp, models.FormatVcpkg)
	content := `{
  "name": "tracker",
  "dependencies": [
    "fmt",
    { "name": "boost-asio", "version>=": "1.83.0" },
    { "name": "vcpkg-cmake", "host": true }
  ]
}`
	deps, _, failure := ParseManifest(m, content)
	require.Nil(t, failure)
	assert.Equal(t, [][2]string{{"fmt", ""}, {"boost-asio", ">=1.83.0"}, {"vcpkg-cmake", ""}}, names(deps))
	assert.Equal(t, "host", deps[2].Group)

	_, _, failure = ParseManifest(m, `{"dependencies": [`)
	assert.NotNil(t, failure)
}

func TestParseFpm(t *testing.T) {
	m := manifest("fpm.toml", models.EcosystemFortran, models.FormatFortranFpm)
	content := `name = "solver"

[dependencies]
stdlib = { git = "https://github.com/fortran-lang/stdlib", branch = "stdlib-fpm" }
M_CLI2 = { git = "https://github.com/urbanjost/M_CLI2.git", tag = "v3.2.0" }
`
	deps, _, failure := ParseManifest(m, content)
	require.Nil(t, failure)
	assert.Equal(t, [][2]string{{"M_CLI2", "v3.2.0"}, {"stdlib", "stdlib-fpm"}}, names(deps))
}

func TestParseManifest_UnsupportedFormat(t *testing.T) {
	m := manifest("Dockerfile", models.EcosystemOther, models.FormatDockerfile)

	assert.False(t, HasParser(models.FormatDockerfile))
	_, _, failure := ParseManifest(m, "FROM alma9")
	require.NotNil(t, failure)
	assert.Contains(t, failure.Reason, "unsupported")
}
