package inspect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MohamedElashri/cerngitlab-mcp/internal/models"
)

func blobs(paths ...string) []models.TreeEntry {
	entries := make([]models.TreeEntry, 0, len(paths))
	for _, p := range paths {
		entries = append(entries, models.TreeEntry{Type: "blob", Path: p})
	}
	return entries
}

func TestDetectManifests_RecognitionTable(t *testing.T) {
	tests := []struct {
		path      string
		ecosystem models.Ecosystem
		format    models.Format
	}{
		{"CMakeLists.txt", models.EcosystemCpp, models.FormatCMake},
		{"requirements.txt", models.EcosystemPython, models.FormatRequirements},
		{"requirements-dev.txt", models.EcosystemPython, models.FormatRequirements},
		{"pyproject.toml", models.EcosystemPython, models.FormatPyproject},
		{"setup.py", models.EcosystemPython, models.FormatSetupPy},
		{"environment.yml", models.EcosystemPython, models.FormatConda},
		{"conda.yaml", models.EcosystemPython, models.FormatConda},
		{"Makefile", models.EcosystemOther, models.FormatMakefile},
		{"Makefile.fortran", models.EcosystemFortran, models.FormatMakefile},
		{"src/solver.F90", models.EcosystemFortran, models.FormatFortranSrc},
		{"vcpkg.json", models.EcosystemCpp, models.FormatVcpkg},
		{".gitlab-ci.yml", models.EcosystemCI, models.FormatGitLabCI},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := DetectManifests(blobs(tt.path))
			require.Len(t, got, 1)
			assert.Equal(t, tt.ecosystem, got[0].Ecosystem)
			assert.Equal(t, tt.format, got[0].Format)
		})
	}
}

func TestDetectManifests_OnlyTopTwoLevels(t *testing.T) {
	got := DetectManifests(blobs(
		"CMakeLists.txt",
		"Phys/CMakeLists.txt",
		"Phys/DaVinci/CMakeLists.txt",
		"src/main.cpp",
	))

	var paths []string
	for _, c := range got {
		paths = append(paths, c.Path)
	}
	assert.Equal(t, []string{"CMakeLists.txt", "Phys/CMakeLists.txt"}, paths)
}

func TestDetectManifests_NothingMatchesIsEmpty(t *testing.T) {
	got := DetectManifests(blobs("README.md", "LICENSE", "src/a.cpp"))
	assert.NotNil(t, got)
	assert.Empty(t, got)

	entries := []models.TreeEntry{{Type: "tree", Path: "CMakeLists.txt"}}
	assert.Empty(t, DetectManifests(entries), "directories are never manifests")
}

func TestDetectBuildSystems_MultiEcosystem(t *testing.T) {
	candidates := DetectManifests(blobs(
		"CMakeLists.txt",
		"python/CMakeLists.txt",
		"pyproject.toml",
		"setup.py",
		"src/kernel.f90",
	))

	systems := DetectBuildSystems(candidates)
	require.Len(t, systems, 3)
	assert.Equal(t, "cmake", systems[0].Name)
	assert.Equal(t, []string{"CMakeLists.txt", "python/CMakeLists.txt"}, systems[0].Files)
	assert.Equal(t, "python-build", systems[1].Name)
	assert.Equal(t, "setuptools", systems[2].Name)

	assert.Equal(t, []models.Ecosystem{models.EcosystemCpp, models.EcosystemFortran, models.EcosystemPython}, DetectEcosystems(candidates))
}
