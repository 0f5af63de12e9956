package models

// Ecosystem groups manifests by language community
type Ecosystem string

const (
	EcosystemPython  Ecosystem = "python"
	EcosystemCpp     Ecosystem = "cpp"
	EcosystemFortran Ecosystem = "fortran"
	EcosystemCI      Ecosystem = "ci"
	EcosystemOther   Ecosystem = "other"
)

// Format identifies how a manifest is parsed. The set is closed; every format
// that yields dependencies has an entry in the parser table.
type Format string

const (
	FormatRequirements Format = "requirements"
	FormatPyproject    Format = "pyproject"
	FormatSetupPy      Format = "setup_py"
	FormatSetupCfg     Format = "setup_cfg"
	FormatPipfile      Format = "pipfile"
	FormatConda        Format = "conda"
	FormatCMake        Format = "cmake"
	FormatConanTxt     Format = "conanfile_txt"
	FormatConanPy      Format = "conanfile_py"
	FormatVcpkg        Format = "vcpkg"
	FormatMakefile     Format = "makefile"
	FormatFortranFpm   Format = "fpm"
	FormatFortranSrc   Format = "fortran_source"
	FormatMeson        Format = "meson"
	FormatSCons        Format = "scons"
	FormatWaf          Format = "waf"
	FormatDockerfile   Format = "dockerfile"
	FormatGitLabCI     Format = "gitlab_ci"
)

// ManifestCandidate is a file recognised by build-system detection
type ManifestCandidate struct {
	Path      string    `json:"path"`
	Ecosystem Ecosystem `json:"ecosystem"`
	Format    Format    `json:"format"`
}

// Dependency is one declared dependency. Unique by (Name, SourceManifest).
type Dependency struct {
	Name              string    `json:"name"`
	VersionConstraint string    `json:"version_constraint,omitempty"`
	Ecosystem         Ecosystem `json:"ecosystem"`
	SourceManifest    string    `json:"source_manifest"`
	Group             string    `json:"group,omitempty"`
}

// UnresolvedDependency marks a declaration that cannot be read statically,
// for example dynamic pyproject metadata.
type UnresolvedDependency struct {
	SourceManifest string `json:"source_manifest"`
	Field          string `json:"field"`
	Reason         string `json:"reason"`
}

// ParseFailure records a manifest that could not be parsed or fetched
type ParseFailure struct {
	Path   string `json:"path"`
	Format Format `json:"format,omitempty"`
	Reason string `json:"reason"`
}

// PipelineJob is one job of a CI pipeline
type PipelineJob struct {
	Name      string   `json:"name"`
	Stage     string   `json:"stage"`
	HasScript bool     `json:"has_script"`
	Rules     string   `json:"rules,omitempty"`
	Image     string   `json:"image,omitempty"`
	Extends   []string `json:"extends,omitempty"`
	Trigger   bool     `json:"trigger,omitempty"`
}

// PipelineInclude is one include directive of a CI configuration
type PipelineInclude struct {
	Kind  string `json:"kind"` // local, project, remote, template, component
	Value string `json:"value"`
	Ref   string `json:"ref,omitempty"`
}

// PipelineReport is the structural summary of a CI configuration.
// Malformed means the YAML did not parse and the rest is best effort.
type PipelineReport struct {
	Path      string            `json:"path"`
	Stages    []string          `json:"stages"`
	Jobs      []PipelineJob     `json:"jobs"`
	Templates []string          `json:"templates,omitempty"`
	Includes  []PipelineInclude `json:"includes"`
	Variables map[string]string `json:"variables"`
	Image     string            `json:"image,omitempty"`
	Malformed bool              `json:"malformed"`
	Error     string            `json:"error,omitempty"`
}

// BuildSystem is a detected build tool together with the files that gave it away
type BuildSystem struct {
	Name  string   `json:"name"`
	Files []string `json:"files"`
}

// InspectionPhase names the steps of a project inspection
type InspectionPhase string

const (
	PhaseStart              InspectionPhase = "start"
	PhaseTreeListed         InspectionPhase = "tree_listed"
	PhaseManifestsDetected  InspectionPhase = "manifests_detected"
	PhaseDependenciesParsed InspectionPhase = "dependencies_parsed"
	PhaseCIAnalyzed         InspectionPhase = "ci_analyzed"
	PhaseDone               InspectionPhase = "done"
)

// InspectionReport is the merged result of a project inspection. It is
// partial: per-manifest problems land in ParseFailures.
type InspectionReport struct {
	Project       string                 `json:"project"`
	Ref           string                 `json:"ref"`
	Phase         InspectionPhase        `json:"phase"`
	Ecosystems    []Ecosystem            `json:"ecosystems"`
	BuildSystems  []BuildSystem          `json:"build_systems"`
	Manifests     []ManifestCandidate    `json:"manifests"`
	Dependencies  []Dependency           `json:"dependencies"`
	Unresolved    []UnresolvedDependency `json:"unresolved,omitempty"`
	ParseFailures []ParseFailure         `json:"parse_failures"`
	Pipeline      *PipelineReport        `json:"pipeline,omitempty"`
	FilesAnalyzed int                    `json:"files_analyzed"`
	TreeTruncated bool                   `json:"tree_truncated,omitempty"`
}

// BuildFile is a build descriptor with its content
type BuildFile struct {
	Path        string `json:"path"`
	BuildSystem string `json:"build_system"`
	Language    string `json:"language,omitempty"`
	Size        int64  `json:"size"`
	Content     string `json:"content"`
}

// BuildConfig is the set of build descriptors found in a project
type BuildConfig struct {
	Project      string         `json:"project"`
	Ref          string         `json:"ref"`
	BuildSystems []string       `json:"build_systems"`
	Files        []BuildFile    `json:"files"`
	Failures     []ParseFailure `json:"failures,omitempty"`
}

// CIConfig is a project's pipeline definition with its analysis
type CIConfig struct {
	Project  string          `json:"project"`
	Ref      string          `json:"ref"`
	Path     string          `json:"path"`
	Found    bool            `json:"found"`
	Size     int64           `json:"size,omitempty"`
	Content  string          `json:"content,omitempty"`
	Analysis *PipelineReport `json:"analysis,omitempty"`
}
