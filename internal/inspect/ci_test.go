package inspect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MohamedElashri/cerngitlab-mcp/internal/models"
)

func TestAnalyzePipeline_DefaultStageAndOrder(t *testing.T) {
	content := `stages:
  - build
  - test

compile:
  stage: build
  script:
    - make

unit:
  stage: test
  script: ctest

lint:
  script:
    - flake8
`
	report := AnalyzePipeline(".gitlab-ci.yml", content)

	assert.False(t, report.Malformed)
	assert.Equal(t, []string{"build", "test"}, report.Stages)
	require.Len(t, report.Jobs, 3)

	assert.Equal(t, "compile", report.Jobs[0].Name)
	assert.Equal(t, "build", report.Jobs[0].Stage)
	assert.Equal(t, "unit", report.Jobs[1].Name)
	assert.Equal(t, "lint", report.Jobs[2].Name)
	assert.Equal(t, DefaultStage, report.Jobs[2].Stage)
	for _, job := range report.Jobs {
		assert.True(t, job.HasScript, job.Name)
	}
}

func TestAnalyzePipeline_IncludesVariablesAndTemplates(t *testing.T) {
	content := `include:
  - local: ci/common.yml
  - project: lhcb/ci-templates
    ref: v2
    file:
      - /build.yml
      - /test.yml
  - template: Security/SAST.gitlab-ci.yml
  - https://example.cern.ch/ci.yml

variables:
  LCG_VERSION: "104"
  BUILD_TYPE:
    value: Release
    description: CMake build type

default:
  image: gitlab-registry.cern.ch/lhcb/alma9:latest

.build_template: &build
  stage: build
  script:
    - ./build.sh
  rules:
    - if: $CI_COMMIT_BRANCH == "master"
    - when: manual

build-opt:
  extends: .build_template
  variables:
    BUILD_TYPE: Release

build-dbg:
  <<: *build
  when: manual

downstream:
  stage: deploy
  trigger:
    project: lhcb/DaVinci
`
	report := AnalyzePipeline(".gitlab-ci.yml", content)
	require.False(t, report.Malformed)

	assert.Equal(t, []models.PipelineInclude{
		{Kind: "local", Value: "ci/common.yml"},
		{Kind: "project", Value: "lhcb/ci-templates:/build.yml", Ref: "v2"},
		{Kind: "project", Value: "lhcb/ci-templates:/test.yml", Ref: "v2"},
		{Kind: "template", Value: "Security/SAST.gitlab-ci.yml"},
		{Kind: "remote", Value: "https://example.cern.ch/ci.yml"},
	}, report.Includes)

	assert.Equal(t, map[string]string{"LCG_VERSION": "104", "BUILD_TYPE": "Release"}, report.Variables)
	assert.Equal(t, "gitlab-registry.cern.ch/lhcb/alma9:latest", report.Image)
	assert.Equal(t, []string{".build_template"}, report.Templates)

	require.Len(t, report.Jobs, 3)
	opt := report.Jobs[0]
	assert.Equal(t, "build-opt", opt.Name)
	assert.Equal(t, "build", opt.Stage, "stage comes through extends")
	assert.True(t, opt.HasScript)
	assert.Equal(t, []string{".build_template"}, opt.Extends)
	assert.Equal(t, `rules: $CI_COMMIT_BRANCH == "master" | when manual`, opt.Rules)

	dbg := report.Jobs[1]
	assert.Equal(t, "build", dbg.Stage, "stage comes through the merge key")
	assert.True(t, dbg.HasScript)
	assert.Contains(t, dbg.Rules, "when: manual")

	trigger := report.Jobs[2]
	assert.True(t, trigger.Trigger)
	assert.False(t, trigger.HasScript)
	assert.Equal(t, "deploy", trigger.Stage)

	assert.Equal(t, []string{"build", "deploy"}, report.Stages, "undeclared stages follow first use")
}

func TestAnalyzePipeline_MalformedIsSalvaged(t *testing.T) {
	content := `stages:
  - build
  - test

variables:
  LCG_VERSION: 104

compile:
  stage: build
  script: [make
	bad indentation: here
test-job:
  script: ctest
`
	report := AnalyzePipeline(".gitlab-ci.yml", content)

	assert.True(t, report.Malformed)
	assert.NotEmpty(t, report.Error)
	assert.Equal(t, []string{"build", "test"}, report.Stages)
	assert.Equal(t, "104", report.Variables["LCG_VERSION"])

	var jobs []string
	for _, j := range report.Jobs {
		jobs = append(jobs, j.Name)
	}
	assert.Equal(t, []string{"compile", "test-job"}, jobs)
}

func TestAnalyzePipeline_EmptyAndNonMapping(t *testing.T) {
	report := AnalyzePipeline(".gitlab-ci.yml", "")
	assert.False(t, report.Malformed)
	assert.Empty(t, report.Jobs)

	report = AnalyzePipeline(".gitlab-ci.yml", "- just\n- a list\n")
	assert.True(t, report.Malformed)
}

func TestAnalyzePipeline_OnlyExcept(t *testing.T) {
	content := `deploy:
  stage: deploy
  script: ./deploy.sh
  only:
    refs:
      - master
      - tags
  except:
    - schedules
`
	report := AnalyzePipeline(".gitlab-ci.yml", content)
	require.Len(t, report.Jobs, 1)
	assert.Equal(t, "only: master, tags; except: schedules", report.Jobs[0].Rules)
}
