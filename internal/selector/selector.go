// Package selector decides which changed files of a pull request are worth
// reviewing, based on built-in ignore rules and an optional per-repository
// policy file.
package selector

import (
	"fmt"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// PolicyFile is the optional per-repository policy, looked up at the
// repository root.
const PolicyFile = ".reviewpolicy.yaml"

// Policy controls file selection. Include patterns, when present, act as an
// allowlist; Ignore patterns always exclude. Patterns are path.Match globs
// matched against the full path and the base name; patterns ending in "/"
// match any path under that directory.
type Policy struct {
	Include  []string `yaml:"include"`
	Ignore   []string `yaml:"ignore"`
	MaxFiles int      `yaml:"max_files"`
}

// Default returns the built-in policy: no allowlist, generated and binary
// artifacts ignored, no file cap.
func Default() *Policy {
	return &Policy{
		Ignore: []string{
			"vendor/",
			"node_modules/",
			"dist/",
			"build/",
			"*.min.js",
			"*.min.css",
			"*.pb.go",
			"*_generated.go",
			"*.lock",
			"go.sum",
			"package-lock.json",
			"yarn.lock",
			"*.svg",
			"*.png",
			"*.jpg",
			"*.gif",
			"*.ico",
			"*.pdf",
			"*.snap",
		},
	}
}

// Load reads a policy file and merges it over the defaults. A missing file
// yields the default policy; a malformed one is an error.
func Load(filePath string) (*Policy, error) {
	data, err := os.ReadFile(filePath)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read policy: %w", err)
	}

	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse policy: %w", err)
	}

	p.Ignore = append(p.Ignore, Default().Ignore...)
	return &p, nil
}

// Reviewable reports whether a changed file passes the policy.
func (p *Policy) Reviewable(filePath string) bool {
	if len(p.Include) > 0 && !matchAny(p.Include, filePath) {
		return false
	}
	return !matchAny(p.Ignore, filePath)
}

// Filter returns the reviewable subset of paths in input order, capped at
// MaxFiles when set.
func (p *Policy) Filter(paths []string) []string {
	var kept []string
	for _, fp := range paths {
		if !p.Reviewable(fp) {
			continue
		}
		kept = append(kept, fp)
		if p.MaxFiles > 0 && len(kept) == p.MaxFiles {
			break
		}
	}
	return kept
}

func matchAny(patterns []string, filePath string) bool {
	base := path.Base(filePath)
	for _, pat := range patterns {
		if strings.HasSuffix(pat, "/") {
			if strings.HasPrefix(filePath, pat) || strings.Contains(filePath, "/"+pat) {
				return true
			}
			continue
		}
		if ok, _ := path.Match(pat, filePath); ok {
			return true
		}
		if ok, _ := path.Match(pat, base); ok {
			return true
		}
	}
	return false
}
