package pattern

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Library holds error patterns grouped by technology category, plus the
// indicator sets used to detect which categories apply to a failure.
type Library struct {
	patterns  map[string][]ErrorPattern
	detectors map[string][]string
}

// NewLibrary returns a Library populated with the built-in pattern
// database.
func NewLibrary() *Library {
	return &Library{
		patterns:  builtinPatterns(),
		detectors: builtinDetectors(),
	}
}

// LoadFile merges patterns from a YAML file into the library. The file
// maps category name to a list of patterns; categories not present in the
// built-ins are created.
func (l *Library) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read pattern file: %w", err)
	}

	var loaded map[string][]ErrorPattern
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("parse pattern file %s: %w", path, err)
	}

	for category, patterns := range loaded {
		for _, p := range patterns {
			if p.Name == "" || len(p.Indicators) == 0 {
				return fmt.Errorf("pattern file %s: category %s has a pattern without name or indicators", path, category)
			}
		}
		l.patterns[category] = append(l.patterns[category], patterns...)
	}
	return nil
}

// Categories returns all category names in sorted order.
func (l *Library) Categories() []string {
	cats := make([]string, 0, len(l.patterns))
	for c := range l.patterns {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	return cats
}

// Patterns returns the patterns of one category. The returned slice must
// not be modified.
func (l *Library) Patterns(category string) []ErrorPattern {
	return l.patterns[category]
}

// DetectTechnologies returns the categories whose detector indicators
// appear in the given text. Matching is case-insensitive.
func (l *Library) DetectTechnologies(text string) []string {
	lower := strings.ToLower(text)
	var detected []string
	for _, tech := range sortedKeys(l.detectors) {
		for _, indicator := range l.detectors[tech] {
			if strings.Contains(lower, strings.ToLower(indicator)) {
				detected = append(detected, tech)
				break
			}
		}
	}
	return detected
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// builtinDetectors maps technology category to the indicators that reveal
// its presence in job names or logs.
func builtinDetectors() map[string][]string {
	return map[string][]string{
		"maven":       {"pom.xml", "mvn", "maven", "surefire"},
		"python":      {"pip", "pytest", "python", "uv", ".py"},
		"docker":      {"dockerfile", "docker build", "COPY", "FROM"},
		"node":        {"npm", "yarn", "package.json", "node"},
		"workflow":    {".github", "actions", "workflow", "jobs"},
		"integration": {"integration", "aws", "s3", "dynamodb"},
	}
}

// builtinPatterns is the known-failure database. Boosts are capped at 4 by
// the matcher regardless of what is declared here.
func builtinPatterns() map[string][]ErrorPattern {
	return map[string][]ErrorPattern{
		"maven": {
			{
				Name:        "surefire_reports_missing",
				Description: "Maven Surefire plugin failed to generate test reports",
				Indicators: []string{
					"No tests were executed!",
					"surefire-reports",
					"There are test failures",
					"BUILD FAILURE.*Tests run:",
				},
				ErrorType:       "maven_test",
				ConfidenceBoost: 3,
				Solutions: []string{
					"mvn clean test -Dtest=FailingTestClass",
					"mvn surefire:test",
					"Check test dependencies in pom.xml",
				},
				VerificationSteps: []string{
					"Check target/surefire-reports/ directory",
					"Verify test classes are in correct src/test/java path",
				},
			},
			{
				Name:        "dependency_resolution_conflict",
				Description: "Maven dependency resolution conflicts or missing artifacts",
				Indicators: []string{
					"Could not resolve dependencies",
					"Failed to collect dependencies",
					"ArtifactResolutionException",
					"Non-resolvable parent POM",
				},
				ErrorType:       "maven_dependency",
				ConfidenceBoost: 4,
				Solutions: []string{
					"mvn dependency:resolve-sources",
					"mvn clean install -U",
					"Check repository configuration in pom.xml",
				},
				VerificationSteps: []string{
					"Run mvn dependency:tree to check conflicts",
					"Verify repository URLs are accessible",
				},
			},
			{
				Name:        "jdk_version_mismatch",
				Description: "JDK version compatibility issues in multi-version builds",
				Indicators: []string{
					"invalid target release:",
					"class file version",
					"UnsupportedClassVersionError",
					`JAVA_HOME.*not found`,
				},
				ErrorType:       "maven_jdk",
				ConfidenceBoost: 4,
				Solutions: []string{
					"Check maven.compiler.source and maven.compiler.target",
					"Verify JAVA_HOME points to correct JDK version",
					"Update maven-compiler-plugin configuration",
				},
				VerificationSteps: []string{
					"Run java -version and mvn -version",
					"Check pom.xml compiler plugin configuration",
				},
			},
		},
		"python": {
			{
				Name:        "pytest_not_found",
				Description: "pytest executable not available or not installed",
				Indicators: []string{
					"pytest: command not found",
					"No module named 'pytest'",
					`ModuleNotFoundError.*pytest`,
				},
				ErrorType:       "python_test",
				ConfidenceBoost: 4,
				Solutions: []string{
					"pip install pytest",
					"uv pip install --extra dev",
					"python -m pytest instead of pytest command",
				},
				VerificationSteps: []string{
					"Run pip list | grep pytest",
					"Check requirements.txt or pyproject.toml for test dependencies",
				},
			},
			{
				Name:        "uv_extra_dev_needed",
				Description: "UV project missing --extra dev flag for development dependencies",
				Indicators: []string{
					`No module named.*in test file`,
					`ImportError.*test`,
					`uv.*--extra`,
				},
				ErrorType:       "python_dependency",
				ConfidenceBoost: 3,
				Solutions: []string{
					"uv pip install --extra dev",
					"uv sync --extra dev",
					"Add dev dependencies to pyproject.toml [project.optional-dependencies]",
				},
				VerificationSteps: []string{
					"Check pyproject.toml for [project.optional-dependencies.dev]",
					"Run uv pip list to see installed packages",
				},
			},
			{
				Name:        "import_resolution_error",
				Description: "Python module import path resolution issues",
				Indicators: []string{
					"ModuleNotFoundError",
					`ImportError.*No module named`,
					"relative import with no known parent package",
				},
				ErrorType:       "python_import",
				ConfidenceBoost: 2,
				Solutions: []string{
					"Add __init__.py files to package directories",
					"Update PYTHONPATH or use pip install -e .",
					"Check import paths are relative to project root",
				},
				VerificationSteps: []string{
					"Verify package structure has __init__.py files",
					"Run python -c 'import package_name' to test imports",
				},
			},
		},
		"docker": {
			{
				Name:        "malformed_version_specifiers",
				Description: "Docker build fails due to malformed version specifiers in UV commands",
				Indicators: []string{
					`=\d+\.\d+\.\d+`,
					`Invalid requirement.*=`,
					`ERROR.*parsing.*version`,
				},
				ErrorType:       "docker_build",
				ConfidenceBoost: 4,
				Solutions: []string{
					"Quote version specifiers: '==1.0.0' not =1.0.0",
					"Use proper pip syntax for version pinning",
					"Add cache-busting layer: RUN touch /tmp/cache_bust",
				},
				VerificationSteps: []string{
					"Check Dockerfile for unquoted version specifiers",
					"Test docker build locally with --no-cache",
				},
			},
			{
				Name:        "layer_cache_invalidation",
				Description: "Docker build fails due to layer caching issues",
				Indicators: []string{
					"COPY failed",
					"ADD failed",
					`No such file or directory.*COPY`,
					`cache.*invalidated`,
				},
				ErrorType:       "docker_cache",
				ConfidenceBoost: 3,
				Solutions: []string{
					"docker build --no-cache",
					"Reorder Dockerfile to optimize layer caching",
					"Use .dockerignore to exclude changing files",
				},
				VerificationSteps: []string{
					"Check .dockerignore file exists and is properly configured",
					"Verify COPY/ADD paths are correct relative to build context",
				},
			},
		},
		"workflow": {
			{
				Name:        "semantic_version_workflow_failure",
				Description: "Semantic versioning automation workflow issues",
				Indicators: []string{
					"semantic-release",
					"conventional commits",
					"version calculation failed",
					"tag creation failed",
				},
				ErrorType:       "workflow_versioning",
				ConfidenceBoost: 3,
				Solutions: []string{
					"Check commit message follows conventional commit format",
					"Verify semantic-release configuration",
					"Ensure proper GitHub permissions for tagging",
				},
				VerificationSteps: []string{
					"Review recent commit messages for format compliance",
					"Check semantic-release logs for specific error details",
				},
			},
			{
				Name:        "github_actions_matrix_failure",
				Description: "Matrix build failures across multiple versions/platforms",
				Indicators: []string{
					`matrix.*failed`,
					`strategy.*matrix`,
					"Multiple job failures",
				},
				ErrorType:       "workflow_matrix",
				ConfidenceBoost: 2,
				Solutions: []string{
					"Review matrix configuration for version compatibility",
					"Add fail-fast: false to continue other matrix jobs",
					"Check for platform-specific issues",
				},
				VerificationSteps: []string{
					"Review individual matrix job logs",
					"Test locally with different versions/platforms",
				},
			},
		},
		"integration": {
			{
				Name:        "aws_integration_failure",
				Description: "AWS service integration test failures",
				Indicators: []string{
					`AWS.*authentication`,
					`S3.*403`,
					`DynamoDB.*AccessDenied`,
					`Integration Tests with AWS.*failed`,
				},
				ErrorType:       "integration_aws",
				ConfidenceBoost: 4,
				Solutions: []string{
					"Check AWS credentials are properly configured",
					"Verify IAM permissions for test resources",
					"Ensure test environment AWS configuration is correct",
				},
				VerificationSteps: []string{
					"Run aws sts get-caller-identity to verify credentials",
					"Check IAM policy for required service permissions",
				},
			},
		},
	}
}
