// Copyright 2025 the gitpluck authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/rs/zerolog"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"

	"github.com/gitpluck/gitpluck/pkg/remote"
)

// 🔌 Parser is the interface for config parsers
type Parser interface {
	// 📝 Parse parses the config from bytes
	Parse(ctx context.Context, data []byte) (*Config, error)

	// 🔍 CanParse checks if this parser can handle the given file
	CanParse(filename string) bool
}

var (
	// 🗺️ parsers is a list of available parsers
	parsers []Parser
)

// 📝 Register registers a parser
func Register(p Parser) {
	parsers = append(parsers, p)
}

// 🎯 GetParser returns a parser that can handle the given file
func GetParser(filename string) Parser {
	for _, p := range parsers {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

// 📦 RepositoryArgs identifies the remote repository and target path
type RepositoryArgs struct {
	Owner string `json:"owner" yaml:"owner" hcl:"owner"`
	Name  string `json:"name" yaml:"name" hcl:"name"`
	Ref   string `json:"ref,omitempty" yaml:"ref,omitempty" hcl:"ref,optional"`
	Path  string `json:"path,omitempty" yaml:"path,omitempty" hcl:"path,optional"`
}

// 📚 Config is the complete, validated-once configuration for one
// download operation. It replaces any builder-style assembly: construct
// it, call Validate, then treat it as immutable.
type Config struct {
	Repository     RepositoryArgs `json:"repository" yaml:"repository" hcl:"repository,block"`
	Destination    string         `json:"destination,omitempty" yaml:"destination,omitempty" hcl:"destination,optional"`
	Concurrency    int            `json:"concurrency,omitempty" yaml:"concurrency,omitempty" hcl:"concurrency,optional"`
	MaxAttempts    int            `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty" hcl:"max_attempts,optional"`
	IgnorePatterns []string       `json:"ignore_patterns,omitempty" yaml:"ignore_patterns,omitempty" hcl:"ignore_patterns,optional"`
}

// 🎯 Load loads the configuration from a file
func Load(ctx context.Context, filename string) (*Config, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("path", filename).Msg("loading configuration")

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}

	p := GetParser(filename)
	if p == nil {
		return nil, errors.Errorf("no parser found for file: %s", filename)
	}

	cfg, err := p.Parse(ctx, data)
	if err != nil {
		return nil, errors.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// 🔍 Validate checks required fields, normalizes paths, and fills defaults
func (cfg *Config) Validate() error {
	if cfg.Repository.Owner == "" {
		return errors.Errorf("repository.owner is required")
	}
	if cfg.Repository.Name == "" {
		return errors.Errorf("repository.name is required")
	}

	// target path uses forward slashes regardless of platform
	cfg.Repository.Path = strings.Trim(cfg.Repository.Path, "/")
	for _, seg := range strings.Split(cfg.Repository.Path, "/") {
		if seg == ".." {
			return errors.Errorf("repository.path must not contain parent-traversal segments")
		}
	}

	if cfg.Destination == "" {
		// mirror the target directory's own name, or the repository
		// name when fetching the root
		if cfg.Repository.Path != "" {
			cfg.Destination = path.Base(cfg.Repository.Path)
		} else {
			cfg.Destination = cfg.Repository.Name
		}
	}

	if cfg.Concurrency < 0 {
		return errors.Errorf("concurrency must be at least 1")
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = 4
	}

	if cfg.MaxAttempts < 0 {
		return errors.Errorf("max_attempts must be at least 1")
	}

	return nil
}

// RepoRef returns the remote reference described by this config
func (cfg *Config) RepoRef() remote.RepositoryRef {
	return remote.RepositoryRef{
		Owner: cfg.Repository.Owner,
		Name:  cfg.Repository.Name,
		Ref:   cfg.Repository.Ref,
	}
}

// 📝 String returns a string representation of the config
func (cfg *Config) String() string {
	ref := cfg.Repository.Ref
	if ref == "" {
		ref = "default"
	}
	return fmt.Sprintf("%s/%s@%s:%s -> %s",
		cfg.Repository.Owner, cfg.Repository.Name, ref, cfg.Repository.Path, cfg.Destination)
}

// 🔧 YAMLParser implements the Parser interface for YAML files
type YAMLParser struct{}

func init() {
	Register(&YAMLParser{})
}

func (p *YAMLParser) CanParse(filename string) bool {
	return strings.HasSuffix(filename, ".yaml") || strings.HasSuffix(filename, ".yml")
}

func (p *YAMLParser) Parse(ctx context.Context, data []byte) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(strings.NewReader(string(data)))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, errors.Errorf("parsing YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// 🔧 HCLParser implements the Parser interface for HCL files
type HCLParser struct{}

func init() {
	Register(&HCLParser{})
}

func (p *HCLParser) CanParse(filename string) bool {
	return strings.HasSuffix(filename, ".hcl")
}

func (p *HCLParser) Parse(ctx context.Context, data []byte) (*Config, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(data, "config.hcl")
	if diags.HasErrors() {
		return nil, errors.Errorf("parsing HCL: %s", diags.Error())
	}

	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{},
	}

	var cfg Config
	diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &cfg)
	if diags.HasErrors() {
		return nil, errors.Errorf("decoding HCL: %s", diags.Error())
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}
