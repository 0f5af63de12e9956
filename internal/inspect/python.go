package inspect

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/go-ini/ini"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/MohamedElashri/cerngitlab-mcp/internal/models"
)

// pyproject covers the PEP 621, build-system and Poetry tables
type pyproject struct {
	Project struct {
		Dependencies         []string            `toml:"dependencies"`
		OptionalDependencies map[string][]string `toml:"optional-dependencies"`
		Dynamic              []string            `toml:"dynamic"`
	} `toml:"project"`
	BuildSystem struct {
		Requires []string `toml:"requires"`
	} `toml:"build-system"`
	Tool struct {
		Poetry struct {
			Dependencies    map[string]interface{} `toml:"dependencies"`
			DevDependencies map[string]interface{} `toml:"dev-dependencies"`
			Group           map[string]struct {
				Dependencies map[string]interface{} `toml:"dependencies"`
			} `toml:"group"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

func parsePyproject(m models.ManifestCandidate, content string) (*parsed, error) {
	var doc pyproject
	if err := toml.Unmarshal([]byte(content), &doc); err != nil {
		return nil, fmt.Errorf("invalid TOML: %w", err)
	}

	result := &parsed{}
	addRequirements(result, m, doc.Project.Dependencies, "")
	for _, extra := range sortedKeys(doc.Project.OptionalDependencies) {
		addRequirements(result, m, doc.Project.OptionalDependencies[extra], "optional:"+extra)
	}
	addRequirements(result, m, doc.BuildSystem.Requires, "build-system")

	addPoetryTable(result, m, doc.Tool.Poetry.Dependencies, "")
	addPoetryTable(result, m, doc.Tool.Poetry.DevDependencies, "dev")
	groups := make([]string, 0, len(doc.Tool.Poetry.Group))
	for name := range doc.Tool.Poetry.Group {
		groups = append(groups, name)
	}
	sort.Strings(groups)
	for _, name := range groups {
		addPoetryTable(result, m, doc.Tool.Poetry.Group[name].Dependencies, name)
	}

	for _, field := range doc.Project.Dynamic {
		switch field {
		case "dependencies", "optional-dependencies":
			result.unresolvedField(m, "project."+field, "declared dynamic, resolved by the build backend")
		}
	}
	return result, nil
}

func addRequirements(result *parsed, m models.ManifestCandidate, specs []string, group string) {
	for _, spec := range specs {
		if name, constraint, ok := splitRequirement(spec); ok {
			result.add(m, name, constraint, group)
		}
	}
}

// addPoetryTable reads name = "^1.0" or name = { version = "^1.0", ... } entries
func addPoetryTable(result *parsed, m models.ManifestCandidate, table map[string]interface{}, group string) {
	for _, name := range sortedKeys(table) {
		if strings.EqualFold(name, "python") {
			continue
		}
		result.add(m, name, tableVersion(table[name]), group)
	}
}

// tableVersion extracts a version from a string or a {version = ...} table.
// "*" means any version.
func tableVersion(v interface{}) string {
	var version string
	switch t := v.(type) {
	case string:
		version = t
	case map[string]interface{}:
		version, _ = t["version"].(string)
	}
	if version == "*" {
		return ""
	}
	return version
}

func parsePipfile(m models.ManifestCandidate, content string) (*parsed, error) {
	var doc struct {
		Packages    map[string]interface{} `toml:"packages"`
		DevPackages map[string]interface{} `toml:"dev-packages"`
	}
	if err := toml.Unmarshal([]byte(content), &doc); err != nil {
		return nil, fmt.Errorf("invalid TOML: %w", err)
	}

	result := &parsed{}
	for _, name := range sortedKeys(doc.Packages) {
		result.add(m, name, tableVersion(doc.Packages[name]), "")
	}
	for _, name := range sortedKeys(doc.DevPackages) {
		result.add(m, name, tableVersion(doc.DevPackages[name]), "dev")
	}
	return result, nil
}

func parseSetupCfg(m models.ManifestCandidate, content string) (*parsed, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{
		AllowPythonMultilineValues: true,
		SpaceBeforeInlineComment:   true,
	}, []byte(content))
	if err != nil {
		return nil, fmt.Errorf("invalid setup.cfg: %w", err)
	}

	result := &parsed{}
	options := cfg.Section("options")
	for _, field := range []string{"install_requires", "setup_requires"} {
		group := ""
		if field == "setup_requires" {
			group = "setup"
		}
		if options.HasKey(field) {
			addRequirements(result, m, splitLines(options.Key(field).String()), group)
		}
	}

	if extras, err := cfg.GetSection("options.extras_require"); err == nil {
		for _, key := range extras.Keys() {
			addRequirements(result, m, splitLines(key.String()), "optional:"+key.Name())
		}
	}
	return result, nil
}

// condaMatchSpec splits "channel::name>=1.0" style specs
var condaMatchSpec = regexp.MustCompile(`^([A-Za-z0-9_.\-]+)\s*(.*)$`)

func parseConda(m models.ManifestCandidate, content string) (*parsed, error) {
	var env struct {
		Dependencies []interface{} `yaml:"dependencies"`
	}
	if err := yaml.Unmarshal([]byte(content), &env); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}

	result := &parsed{}
	for _, item := range env.Dependencies {
		switch dep := item.(type) {
		case string:
			spec := dep
			if i := strings.Index(spec, "::"); i >= 0 {
				spec = spec[i+2:]
			}
			match := condaMatchSpec.FindStringSubmatch(strings.TrimSpace(spec))
			if match == nil {
				continue
			}
			result.add(m, match[1], strings.Join(strings.Fields(match[2]), ""), "")
		case map[string]interface{}:
			pip, _ := dep["pip"].([]interface{})
			for _, p := range pip {
				if s, ok := p.(string); ok {
					if name, constraint, ok := splitRequirement(s); ok {
						result.add(m, name, constraint, "pip")
					}
				}
			}
		}
	}
	return result, nil
}

// parseSetupPy extracts a literal install_requires list. Anything computed at
// run time is reported as a failure rather than guessed at.
func parseSetupPy(m models.ManifestCandidate, content string) (*parsed, error) {
	result := &parsed{}
	loc := installRequiresPattern.FindStringIndex(content)
	if loc == nil {
		if strings.Contains(content, "install_requires") {
			return nil, fmt.Errorf("install_requires is not a static list")
		}
		return result, nil
	}

	specs, err := scanStringList(content[loc[1]:])
	if err != nil {
		return nil, fmt.Errorf("install_requires: %w", err)
	}
	addRequirements(result, m, specs, "")
	return result, nil
}

var installRequiresPattern = regexp.MustCompile(`install_requires\s*=\s*[\[(]`)

// scanStringList reads string literals up to the closing bracket of a list or
// tuple. Any non-literal element, or an operator applied to the list, makes it
// non-static.
func scanStringList(s string) ([]string, error) {
	var items []string
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == ']' || c == ')':
			if next := strings.TrimLeft(s[i+1:], " \t"); strings.HasPrefix(next, "+") || strings.HasPrefix(next, "*") {
				return nil, fmt.Errorf("not a static list of string literals")
			}
			return items, nil
		case c == '\'' || c == '"':
			end := strings.IndexByte(s[i+1:], c)
			if end < 0 {
				return nil, fmt.Errorf("unterminated string literal")
			}
			items = append(items, s[i+1:i+1+end])
			i += end + 1
		case c == '#':
			nl := strings.IndexByte(s[i:], '\n')
			if nl < 0 {
				return nil, fmt.Errorf("unterminated list")
			}
			i += nl
		case c == ',' || c == ' ' || c == '\t' || c == '\n' || c == '\r':
		default:
			return nil, fmt.Errorf("not a static list of string literals")
		}
	}
	return nil, fmt.Errorf("unterminated list")
}

func splitLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" && !strings.HasPrefix(line, "#") {
			lines = append(lines, line)
		}
	}
	return lines
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
