package inspect

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-ini/ini"
	"github.com/pelletier/go-toml/v2"
	"github.com/tidwall/gjson"

	"github.com/MohamedElashri/cerngitlab-mcp/internal/models"
)

var (
	cmakeCallPattern    = regexp.MustCompile(`(?i)\b(find_package|find_library|pkg_check_modules)\s*\(`)
	cmakeVersionPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+)*$`)
	cmakeFortranPattern = regexp.MustCompile(`(?is)(enable_language\s*\([^)]*\bFortran\b|project\s*\([^)]*\bFortran\b)`)
)

// cmakeKeywords end the list of names in find_library and pkg_check_modules calls
var cmakeKeywords = map[string]bool{
	"NAMES": true, "NAMES_PER_DIR": true, "HINTS": true, "PATHS": true, "PATH_SUFFIXES": true,
	"DOC": true, "REQUIRED": true, "QUIET": true, "NO_DEFAULT_PATH": true, "NO_CMAKE_PATH": true,
	"NO_CMAKE_SYSTEM_PATH": true, "IMPORTED_TARGET": true, "GLOBAL": true, "NO_CMAKE_ENVIRONMENT_PATH": true,
	"NO_SYSTEM_ENVIRONMENT_PATH": true, "CMAKE_FIND_ROOT_PATH_BOTH": true, "ENV": true,
}

// parseCMake extracts find_package, find_library and pkg_check_modules calls.
// A version is only reported when the call passes one explicitly.
func parseCMake(m models.ManifestCandidate, content string) (*parsed, error) {
	source := stripCMakeComments(content)
	result := &parsed{}

	for _, loc := range cmakeCallPattern.FindAllStringSubmatchIndex(source, -1) {
		command := strings.ToLower(source[loc[2]:loc[3]])
		end := strings.IndexByte(source[loc[1]:], ')')
		if end < 0 {
			return nil, fmt.Errorf("unbalanced parenthesis in %s call", command)
		}
		args := strings.Fields(strings.ReplaceAll(source[loc[1]:loc[1]+end], `"`, ""))
		if len(args) == 0 {
			continue
		}

		switch command {
		case "find_package":
			addFindPackage(result, m, args)
		case "find_library":
			addFindLibrary(result, m, args)
		case "pkg_check_modules":
			addPkgConfigModules(result, m, args)
		}
	}
	return result, nil
}

func addFindPackage(result *parsed, m models.ManifestCandidate, args []string) {
	name := args[0]
	if isCMakeVariable(name) {
		return
	}
	var constraint string
	if len(args) > 1 && cmakeVersionPattern.MatchString(args[1]) {
		constraint = ">=" + args[1]
		for _, a := range args[2:] {
			if a == "EXACT" {
				constraint = "==" + args[1]
			}
		}
	}
	result.add(m, name, constraint, "")
}

// addFindLibrary handles find_library(<VAR> name ...) and find_library(<VAR> NAMES n1 n2 ...)
func addFindLibrary(result *parsed, m models.ManifestCandidate, args []string) {
	if len(args) < 2 {
		return
	}
	if args[1] != "NAMES" {
		if !isCMakeVariable(args[1]) {
			result.add(m, args[1], "", "library")
		}
		return
	}
	for _, a := range args[2:] {
		if cmakeKeywords[a] {
			break
		}
		if !isCMakeVariable(a) {
			result.add(m, a, "", "library")
		}
	}
}

// addPkgConfigModules handles pkg_check_modules(<PREFIX> [REQUIRED] mod>=1.0 ...)
func addPkgConfigModules(result *parsed, m models.ManifestCandidate, args []string) {
	for _, a := range args[1:] {
		if cmakeKeywords[a] || isCMakeVariable(a) {
			continue
		}
		name, constraint := a, ""
		if i := strings.IndexAny(a, "<>="); i > 0 {
			name, constraint = a[:i], a[i:]
		}
		result.add(m, name, constraint, "pkg-config")
	}
}

func isCMakeVariable(s string) bool {
	return strings.Contains(s, "${")
}

// stripCMakeComments removes line comments. Bracket comments are rare enough
// in build descriptors that they are treated as line comments.
func stripCMakeComments(content string) string {
	var b strings.Builder
	for _, line := range strings.Split(content, "\n") {
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

// usesFortran reports whether a CMake project enables the Fortran language
func usesFortran(content string) bool {
	return cmakeFortranPattern.MatchString(stripCMakeComments(content))
}

// parseConanTxt reads the [requires] and [tool_requires] sections of conanfile.txt
func parseConanTxt(m models.ManifestCandidate, content string) (*parsed, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{
		AllowBooleanKeys:    true,
		KeyValueDelimiters:  "=",
		IgnoreInlineComment: true,
	}, []byte(content))
	if err != nil {
		return nil, fmt.Errorf("invalid conanfile.txt: %w", err)
	}

	result := &parsed{}
	sections := []struct{ name, group string }{
		{"requires", ""},
		{"tool_requires", "tool"},
		{"build_requires", "tool"},
		{"test_requires", "test"},
	}
	for _, s := range sections {
		sec, err := cfg.GetSection(s.name)
		if err != nil {
			continue
		}
		for _, key := range sec.KeyStrings() {
			name, version := splitConanReference(key)
			result.add(m, name, version, s.group)
		}
	}
	return result, nil
}

var conanRequiresPattern = regexp.MustCompile(`(?m)(?:self\.(requires|tool_requires|build_requires|test_requires)\s*\(\s*|^\s*(requires|tool_requires|build_requires)\s*=\s*)`)

var conanReferencePattern = regexp.MustCompile(`["']([A-Za-z0-9_.+-]+/[^"'\s]+)["']`)

// parseConanPy picks package references out of requires attributes and
// self.requires() calls in a conanfile.py
func parseConanPy(m models.ManifestCandidate, content string) (*parsed, error) {
	result := &parsed{}
	for _, loc := range conanRequiresPattern.FindAllStringSubmatchIndex(content, -1) {
		var kind string
		if loc[2] >= 0 {
			kind = content[loc[2]:loc[3]]
		} else {
			kind = content[loc[4]:loc[5]]
		}
		group := ""
		switch kind {
		case "tool_requires", "build_requires":
			group = "tool"
		case "test_requires":
			group = "test"
		}

		rest := strings.TrimLeft(content[loc[1]:], " \t")
		stop := ")\n"
		if strings.HasPrefix(rest, "[") || strings.HasPrefix(rest, "(") {
			stop = "])"
		}
		if len(rest) > 1 {
			if end := strings.IndexAny(rest[1:], stop); end >= 0 {
				rest = rest[:end+1]
			}
		}
		for _, ref := range conanReferencePattern.FindAllStringSubmatch(rest, -1) {
			name, version := splitConanReference(ref[1])
			result.add(m, name, version, group)
		}
	}
	return result, nil
}

// splitConanReference splits name/version@user/channel#revision
func splitConanReference(ref string) (string, string) {
	ref = strings.TrimSpace(ref)
	if i := strings.IndexAny(ref, "@#"); i >= 0 {
		ref = ref[:i]
	}
	name, version, _ := strings.Cut(ref, "/")
	return name, version
}

// parseVcpkg reads the dependencies array of a vcpkg.json manifest
func parseVcpkg(m models.ManifestCandidate, content string) (*parsed, error) {
	if !gjson.Valid(content) {
		return nil, fmt.Errorf("invalid JSON")
	}

	result := &parsed{}
	gjson.Get(content, "dependencies").ForEach(func(_, dep gjson.Result) bool {
		if dep.Type == gjson.String {
			result.add(m, dep.String(), "", "")
			return true
		}
		constraint := ""
		dep.ForEach(func(key, value gjson.Result) bool {
			if key.String() == "version>=" {
				constraint = ">=" + value.String()
			}
			return true
		})
		group := ""
		if dep.Get("host").Bool() {
			group = "host"
		}
		result.add(m, dep.Get("name").String(), constraint, group)
		return true
	})
	gjson.Get(content, "overrides").ForEach(func(_, o gjson.Result) bool {
		result.add(m, o.Get("name").String(), "=="+o.Get("version").String(), "override")
		return true
	})
	return result, nil
}

// parseFpm reads [dependencies] and [dev-dependencies] of a Fortran fpm.toml
func parseFpm(m models.ManifestCandidate, content string) (*parsed, error) {
	var doc struct {
		Dependencies    map[string]interface{} `toml:"dependencies"`
		DevDependencies map[string]interface{} `toml:"dev-dependencies"`
	}
	if err := toml.Unmarshal([]byte(content), &doc); err != nil {
		return nil, fmt.Errorf("invalid TOML: %w", err)
	}

	result := &parsed{}
	for _, name := range sortedKeys(doc.Dependencies) {
		result.add(m, name, fpmVersion(doc.Dependencies[name]), "")
	}
	for _, name := range sortedKeys(doc.DevDependencies) {
		result.add(m, name, fpmVersion(doc.DevDependencies[name]), "dev")
	}
	return result, nil
}

// fpmVersion prefers an explicit tag, then a branch, of a git dependency
func fpmVersion(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]interface{}:
		for _, key := range []string{"tag", "rev", "branch", "version"} {
			if s, ok := t[key].(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}
