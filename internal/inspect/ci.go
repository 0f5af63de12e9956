package inspect

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/MohamedElashri/cerngitlab-mcp/internal/models"
)

const (
	// DefaultCIConfigPath is where GitLab looks for a pipeline unless the project overrides it
	DefaultCIConfigPath = ".gitlab-ci.yml"

	// DefaultStage is the stage of a job that does not declare one
	DefaultStage = "test"

	maxExtendsDepth = 10
)

// reservedKeys are top-level keywords that are not jobs
var reservedKeys = map[string]bool{
	"stages":        true,
	"variables":     true,
	"default":       true,
	"include":       true,
	"image":         true,
	"services":      true,
	"before_script": true,
	"after_script":  true,
	"cache":         true,
	"workflow":      true,
	"spec":          true,
	"types":         true,
}

// AnalyzePipeline summarises a GitLab CI document. It never fails: YAML that
// does not parse yields a report flagged Malformed with whatever structure a
// line based scan could recover.
func AnalyzePipeline(configPath, content string) *models.PipelineReport {
	report := &models.PipelineReport{
		Path:      configPath,
		Stages:    []string{},
		Jobs:      []models.PipelineJob{},
		Includes:  []models.PipelineInclude{},
		Variables: map[string]string{},
	}

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(content), &doc); err != nil {
		report.Malformed = true
		report.Error = err.Error()
		salvagePipeline(content, report)
		return report
	}
	if len(doc.Content) == 0 {
		return report
	}
	root := resolveAlias(doc.Content[0])
	if root.Kind != yaml.MappingNode {
		report.Malformed = true
		report.Error = "top level of the pipeline is not a mapping"
		return report
	}

	p := &pipeline{jobs: make(map[string]*yaml.Node)}
	for i := 0; i+1 < len(root.Content); i += 2 {
		p.keys = append(p.keys, root.Content[i].Value)
		p.jobs[root.Content[i].Value] = resolveAlias(root.Content[i+1])
	}

	if stages := lookup(root, "stages"); stages != nil {
		report.Stages = scalarList(stages)
	}
	if include := lookup(root, "include"); include != nil {
		report.Includes = parseIncludes(include)
	}
	if vars := lookup(root, "variables"); vars != nil {
		report.Variables = parseVariables(vars)
	}
	report.Image = imageName(lookup(root, "image"))
	if report.Image == "" {
		if def := lookup(root, "default"); def != nil {
			report.Image = imageName(lookup(def, "image"))
		}
	}

	seenStages := make(map[string]bool)
	for _, s := range report.Stages {
		seenStages[s] = true
	}
	declared := len(report.Stages) > 0

	for _, name := range p.keys {
		if reservedKeys[name] || name == "<<" {
			continue
		}
		node := p.jobs[name]
		if node.Kind != yaml.MappingNode {
			continue
		}
		if strings.HasPrefix(name, ".") {
			report.Templates = append(report.Templates, name)
			continue
		}

		job := p.job(name, node)
		report.Jobs = append(report.Jobs, job)
		if !declared && !seenStages[job.Stage] {
			seenStages[job.Stage] = true
			report.Stages = append(report.Stages, job.Stage)
		}
	}
	return report
}

// pipeline holds the top-level entries for extends resolution
type pipeline struct {
	keys []string
	jobs map[string]*yaml.Node
}

func (p *pipeline) job(name string, node *yaml.Node) models.PipelineJob {
	job := models.PipelineJob{
		Name:    name,
		Extends: scalarList(lookup(node, "extends")),
	}
	if stage := p.inherited(node, "stage", 0); stage != nil {
		job.Stage = stage.Value
	}
	if job.Stage == "" {
		job.Stage = DefaultStage
	}
	job.HasScript = p.inherited(node, "script", 0) != nil
	job.Trigger = p.inherited(node, "trigger", 0) != nil
	job.Image = imageName(p.inherited(node, "image", 0))
	job.Rules = p.conditions(node)
	return job
}

// inherited looks key up on node, its merge keys and then its extends chain
func (p *pipeline) inherited(node *yaml.Node, key string, depth int) *yaml.Node {
	if v := lookup(node, key); v != nil {
		return v
	}
	if depth >= maxExtendsDepth {
		return nil
	}
	parents := scalarList(lookup(node, "extends"))
	for i := len(parents) - 1; i >= 0; i-- {
		parent, ok := p.jobs[parents[i]]
		if !ok || parent == node {
			continue
		}
		if v := p.inherited(parent, key, depth+1); v != nil {
			return v
		}
	}
	return nil
}

// conditions summarises rules, when, only and except into one line
func (p *pipeline) conditions(node *yaml.Node) string {
	var parts []string
	if rules := p.inherited(node, "rules", 0); rules != nil && rules.Kind == yaml.SequenceNode {
		var ifs []string
		for _, r := range rules.Content {
			r = resolveAlias(r)
			if cond := lookup(r, "if"); cond != nil {
				ifs = append(ifs, cond.Value)
			} else if when := lookup(r, "when"); when != nil {
				ifs = append(ifs, "when "+when.Value)
			}
		}
		if len(ifs) > 0 {
			parts = append(parts, "rules: "+strings.Join(ifs, " | "))
		} else {
			parts = append(parts, fmt.Sprintf("rules: %d", len(rules.Content)))
		}
	}
	if when := p.inherited(node, "when", 0); when != nil && when.Kind == yaml.ScalarNode {
		parts = append(parts, "when: "+when.Value)
	}
	for _, key := range []string{"only", "except"} {
		v := p.inherited(node, key, 0)
		if v == nil {
			continue
		}
		if refs := lookup(v, "refs"); refs != nil {
			v = refs
		}
		if values := scalarList(v); len(values) > 0 {
			parts = append(parts, key+": "+strings.Join(values, ", "))
		}
	}
	return strings.Join(parts, "; ")
}

func parseIncludes(node *yaml.Node) []models.PipelineInclude {
	includes := []models.PipelineInclude{}
	var add func(n *yaml.Node)
	add = func(n *yaml.Node) {
		n = resolveAlias(n)
		switch n.Kind {
		case yaml.ScalarNode:
			kind := "local"
			if strings.HasPrefix(n.Value, "http://") || strings.HasPrefix(n.Value, "https://") {
				kind = "remote"
			}
			includes = append(includes, models.PipelineInclude{Kind: kind, Value: n.Value})
		case yaml.SequenceNode:
			for _, item := range n.Content {
				add(item)
			}
		case yaml.MappingNode:
			includes = append(includes, includeFromMapping(n)...)
		}
	}
	add(node)
	return includes
}

func includeFromMapping(n *yaml.Node) []models.PipelineInclude {
	for _, kind := range []string{"local", "remote", "template", "component"} {
		if v := lookup(n, kind); v != nil {
			return []models.PipelineInclude{{Kind: kind, Value: v.Value}}
		}
	}
	project := lookup(n, "project")
	if project == nil {
		return nil
	}
	ref := ""
	if r := lookup(n, "ref"); r != nil {
		ref = r.Value
	}
	files := scalarList(lookup(n, "file"))
	if len(files) == 0 {
		return []models.PipelineInclude{{Kind: "project", Value: project.Value, Ref: ref}}
	}
	out := make([]models.PipelineInclude, 0, len(files))
	for _, f := range files {
		out = append(out, models.PipelineInclude{Kind: "project", Value: project.Value + ":" + f, Ref: ref})
	}
	return out
}

// parseVariables accepts both KEY: value and KEY: {value: ..., description: ...}
func parseVariables(node *yaml.Node) map[string]string {
	vars := map[string]string{}
	if node.Kind != yaml.MappingNode {
		return vars
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		if key == "<<" {
			continue
		}
		value := resolveAlias(node.Content[i+1])
		switch value.Kind {
		case yaml.ScalarNode:
			vars[key] = value.Value
		case yaml.MappingNode:
			if v := lookup(value, "value"); v != nil {
				vars[key] = v.Value
			}
		}
	}
	return vars
}

func imageName(node *yaml.Node) string {
	if node == nil {
		return ""
	}
	if node.Kind == yaml.MappingNode {
		node = lookup(node, "name")
		if node == nil {
			return ""
		}
	}
	return node.Value
}

// lookup returns the value of key in a mapping, following << merge keys
func lookup(node *yaml.Node, key string) *yaml.Node {
	node = resolveAlias(node)
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	var merges []*yaml.Node
	for i := 0; i+1 < len(node.Content); i += 2 {
		k := node.Content[i].Value
		if k == key {
			return resolveAlias(node.Content[i+1])
		}
		if k == "<<" {
			merges = append(merges, resolveAlias(node.Content[i+1]))
		}
	}
	for _, m := range merges {
		if m.Kind == yaml.SequenceNode {
			for _, item := range m.Content {
				if v := lookup(item, key); v != nil {
					return v
				}
			}
			continue
		}
		if v := lookup(m, key); v != nil {
			return v
		}
	}
	return nil
}

func resolveAlias(node *yaml.Node) *yaml.Node {
	for node != nil && node.Kind == yaml.AliasNode {
		node = node.Alias
	}
	return node
}

// scalarList reads a scalar or a sequence of scalars
func scalarList(node *yaml.Node) []string {
	node = resolveAlias(node)
	if node == nil {
		return nil
	}
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Value == "" {
			return nil
		}
		return []string{node.Value}
	case yaml.SequenceNode:
		out := make([]string, 0, len(node.Content))
		for _, item := range node.Content {
			if item = resolveAlias(item); item.Kind == yaml.ScalarNode {
				out = append(out, item.Value)
			}
		}
		return out
	}
	return nil
}

var (
	salvageStagesPattern   = regexp.MustCompile(`(?m)^stages:\s*\n((?:[ \t]+-[ \t]+.+\n?)+)`)
	salvageStageItem       = regexp.MustCompile(`-\s+['"]?([^'"\s]+)`)
	salvageJobPattern      = regexp.MustCompile(`(?m)^([A-Za-z_.][A-Za-z0-9_.\- ]*):[ \t]*$`)
	salvageIncludePattern  = regexp.MustCompile(`(local|remote|template|project|component):\s*['"]?([^'"#\n]+)`)
	salvageImagePattern    = regexp.MustCompile(`(?m)^image:[ \t]+(.+)$`)
	salvageVariablePattern = regexp.MustCompile(`^[ \t]+([A-Za-z_][A-Za-z0-9_]*):[ \t]*(.+)$`)
)

// salvagePipeline recovers structure line by line from a document that is not valid YAML
func salvagePipeline(content string, report *models.PipelineReport) {
	if m := salvageStagesPattern.FindStringSubmatch(content); m != nil {
		for _, item := range salvageStageItem.FindAllStringSubmatch(m[1], -1) {
			report.Stages = append(report.Stages, item[1])
		}
	}

	for _, m := range salvageJobPattern.FindAllStringSubmatch(content, -1) {
		name := strings.TrimSpace(m[1])
		switch {
		case reservedKeys[name]:
		case strings.HasPrefix(name, "."):
			report.Templates = append(report.Templates, name)
		default:
			report.Jobs = append(report.Jobs, models.PipelineJob{Name: name, Stage: DefaultStage})
		}
	}

	for _, m := range salvageIncludePattern.FindAllStringSubmatch(content, -1) {
		report.Includes = append(report.Includes, models.PipelineInclude{
			Kind:  m[1],
			Value: strings.TrimSpace(m[2]),
		})
	}

	if m := salvageImagePattern.FindStringSubmatch(content); m != nil {
		report.Image = strings.Trim(strings.TrimSpace(m[1]), `'"`)
	}

	inVariables := false
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(line, "variables:") && strings.TrimSpace(strings.TrimPrefix(line, "variables:")) == "" {
			inVariables = true
			continue
		}
		if !inVariables {
			continue
		}
		if line != "" && line[0] != ' ' && line[0] != '\t' {
			inVariables = false
			continue
		}
		if m := salvageVariablePattern.FindStringSubmatch(line); m != nil {
			report.Variables[m[1]] = strings.Trim(strings.TrimSpace(m[2]), `'"`)
		}
	}
}
