// Package config loads xh settings from YAML files and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/goccy/go-yaml"
	"github.com/signadot/xmlh/encode"
	"github.com/signadot/xmlh/format"
	"github.com/signadot/xmlh/parse"
	"github.com/signadot/xmlh/tree"
)

var ErrConfig = errors.New("config error")

type Config struct {
	// GuardThreshold is the number of aliases a node may have and still
	// be mutated.
	GuardThreshold int          `yaml:"guardThreshold"`
	Workers        int          `yaml:"workers"`
	Parse          ParseConfig  `yaml:"parse"`
	Encode         EncodeConfig `yaml:"encode"`
}

type ParseConfig struct {
	Format    *format.Format `yaml:"format,omitempty"`
	Recover   bool           `yaml:"recover"`
	NoBlanks  bool           `yaml:"noBlanks"`
	Huge      bool           `yaml:"huge"`
	Verbose   bool           `yaml:"verbose"`
	NodeLimit int            `yaml:"nodeLimit"`
}

type EncodeConfig struct {
	Indent        bool  `yaml:"indent"`
	NoDeclaration bool  `yaml:"noDeclaration"`
	NoEmptyTags   bool  `yaml:"noEmptyTags"`
	Color         *bool `yaml:"color,omitempty"`
}

func Default() *Config {
	return &Config{GuardThreshold: 1, Workers: 4}
}

// Load reads the file at path over the defaults and applies environment
// overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		d, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(d, c); err != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrConfig, path, err)
			}
		}
	}
	if err := c.FromEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return c, c.Validate()
}

// FromEnv applies XH_GUARD_THRESHOLD and XH_WORKERS.
func (c *Config) FromEnv(lookup func(string) (string, bool)) error {
	for name, dst := range map[string]*int{
		"XH_GUARD_THRESHOLD": &c.GuardThreshold,
		"XH_WORKERS":         &c.Workers,
	} {
		v, ok := lookup(name)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrConfig, name, err)
		}
		*dst = n
	}
	return nil
}

func (c *Config) Validate() error {
	if c.GuardThreshold < 1 {
		return fmt.Errorf("%w: guardThreshold must be at least 1, got %d", ErrConfig, c.GuardThreshold)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative, got %d", ErrConfig, c.Workers)
	}
	return nil
}

// Apply installs the guard threshold and returns the previous one.
func (c *Config) Apply() int {
	return tree.SetMutationThreshold(c.GuardThreshold)
}

func (c *Config) ParseOptions() []parse.ParseOption {
	p := c.Parse
	res := []parse.ParseOption{
		parse.Recover(p.Recover),
		parse.NoBlanks(p.NoBlanks),
		parse.Huge(p.Huge),
		parse.Verbose(p.Verbose),
		parse.ParseNodeLimit(p.NodeLimit),
	}
	if p.Format != nil {
		res = append(res, parse.ParseFormat(*p.Format))
	}
	return res
}

// EncodeOptions does not decide on colors, see Encode.Color.
func (c *Config) EncodeOptions() []encode.EncodeOption {
	e := c.Encode
	return []encode.EncodeOption{
		encode.Indent(e.Indent),
		encode.NoDeclaration(e.NoDeclaration),
		encode.NoEmptyTags(e.NoEmptyTags),
	}
}

// Marshal renders c as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
