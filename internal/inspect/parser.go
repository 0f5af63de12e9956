package inspect

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/MohamedElashri/cerngitlab-mcp/internal/models"
)

// parsed is what one manifest yields
type parsed struct {
	deps       []models.Dependency
	unresolved []models.UnresolvedDependency
}

func (p *parsed) add(m models.ManifestCandidate, name, constraint, group string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	p.deps = append(p.deps, models.Dependency{
		Name:              name,
		VersionConstraint: strings.TrimSpace(constraint),
		Ecosystem:         m.Ecosystem,
		SourceManifest:    m.Path,
		Group:             group,
	})
}

func (p *parsed) unresolvedField(m models.ManifestCandidate, field, reason string) {
	p.unresolved = append(p.unresolved, models.UnresolvedDependency{
		SourceManifest: m.Path,
		Field:          field,
		Reason:         reason,
	})
}

type parserFunc func(m models.ManifestCandidate, content string) (*parsed, error)

// parsers dispatches on the closed set of manifest formats. Formats without
// an entry are detected but carry no dependency information.
var parsers = map[models.Format]parserFunc{
	models.FormatRequirements: parseRequirements,
	models.FormatPyproject:    parsePyproject,
	models.FormatSetupPy:      parseSetupPy,
	models.FormatSetupCfg:     parseSetupCfg,
	models.FormatPipfile:      parsePipfile,
	models.FormatConda:        parseConda,
	models.FormatCMake:        parseCMake,
	models.FormatConanTxt:     parseConanTxt,
	models.FormatConanPy:      parseConanPy,
	models.FormatVcpkg:        parseVcpkg,
	models.FormatFortranFpm:   parseFpm,
}

// HasParser reports whether dependencies can be extracted from format
func HasParser(format models.Format) bool {
	_, ok := parsers[format]
	return ok
}

// ParseManifest extracts the dependencies declared in one manifest. A manifest
// that cannot be interpreted yields a ParseFailure and no dependencies.
// Dependencies are unique by name within the manifest, first declaration wins.
func ParseManifest(m models.ManifestCandidate, content string) ([]models.Dependency, []models.UnresolvedDependency, *models.ParseFailure) {
	parse, ok := parsers[m.Format]
	if !ok {
		return nil, nil, &models.ParseFailure{
			Path:   m.Path,
			Format: m.Format,
			Reason: fmt.Sprintf("unsupported manifest format %q", m.Format),
		}
	}

	result, err := parse(m, content)
	if err != nil {
		return nil, nil, &models.ParseFailure{Path: m.Path, Format: m.Format, Reason: err.Error()}
	}
	return dedupe(result.deps), result.unresolved, nil
}

func dedupe(deps []models.Dependency) []models.Dependency {
	seen := make(map[string]bool, len(deps))
	out := make([]models.Dependency, 0, len(deps))
	for _, d := range deps {
		key := strings.ToLower(d.Name) + "\x00" + d.SourceManifest
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, d)
	}
	return out
}

// requirementPattern splits a PEP 508 requirement into name, extras and the rest
var requirementPattern = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9._-]*)\s*(\[[^\]]*\])?\s*(.*)$`)

// splitRequirement returns the name and version constraint of a requirement
// string with environment markers removed. ok is false for anything that is
// not a named requirement (options, paths, bare URLs).
func splitRequirement(spec string) (name, constraint string, ok bool) {
	if i := strings.Index(spec, ";"); i >= 0 {
		spec = spec[:i]
	}
	spec = strings.TrimSpace(spec)
	if spec == "" || strings.HasPrefix(spec, "-") {
		return "", "", false
	}
	m := requirementPattern.FindStringSubmatch(spec)
	if m == nil {
		return "", "", false
	}
	rest := strings.TrimSpace(m[3])
	if rest != "" && !hasComparisonPrefix(rest) && !strings.HasPrefix(rest, "@") && !strings.HasPrefix(rest, "(") {
		return "", "", false
	}
	rest = strings.TrimSuffix(strings.TrimPrefix(rest, "("), ")")
	return m[1], strings.Join(strings.Fields(rest), ""), true
}

var comparisonOperators = []string{"===", "==", ">=", "<=", "~=", "!=", ">", "<"}

func hasComparisonPrefix(s string) bool {
	for _, op := range comparisonOperators {
		if strings.HasPrefix(s, op) {
			return true
		}
	}
	return false
}

// parseRequirements reads a pip requirements file, one requirement per line
func parseRequirements(m models.ManifestCandidate, content string) (*parsed, error) {
	result := &parsed{}
	for _, line := range logicalLines(content) {
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "-") {
			continue
		}
		name, constraint, ok := splitRequirement(line)
		if !ok {
			continue
		}
		result.add(m, name, constraint, "")
	}
	return result, nil
}

// logicalLines joins backslash continuations
func logicalLines(content string) []string {
	var (
		lines   []string
		current strings.Builder
	)
	for _, raw := range strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n") {
		if strings.HasSuffix(raw, "\\") {
			current.WriteString(strings.TrimSuffix(raw, "\\"))
			current.WriteString(" ")
			continue
		}
		current.WriteString(raw)
		lines = append(lines, current.String())
		current.Reset()
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}
