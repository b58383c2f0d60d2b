// Package config loads the waterpistol configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultFile is the configuration file looked up in the working directory.
const DefaultFile = "waterpistol.yml"

const (
	defaultCommand    = "mvn"
	defaultSubcommand = "gatling:test"
	defaultAddr       = ":8080"
	defaultTestsuite  = "main"
)

type Config struct {
	// Directory holding the test suite, results live below it
	DataDir    string     `yaml:"data_dir"`
	Simulation Simulation `yaml:"simulation"`
	Tool       Tool       `yaml:"tool"`
	Results    Results    `yaml:"results"`
	Server     Server     `yaml:"server"`
}

// Simulation describes what a run executes and which parameters it takes.
type Simulation struct {
	SimulationClass string  `yaml:"simulation_class" json:"simulation_class"`
	Params          []Param `yaml:"params" json:"params"`
}

// Param is a simulation parameter with its default value.
type Param struct {
	Name  string `yaml:"name" json:"name"`
	Value string `yaml:"value" json:"value"`
}

type Tool struct {
	Command    string `yaml:"command"`
	Subcommand string `yaml:"subcommand"`
	// Working directory of the tool, defaults to <data_dir>/main
	Dir string `yaml:"dir"`
}

type Results struct {
	// Defaults to <tool dir>/target/gatling
	Dir string `yaml:"dir"`
}

type Server struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	if err := validate(cfg); err != nil {
		panic(err)
	}
	return cfg
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.DataDir == "" {
		cfg.DataDir = "."
	}
	if cfg.Tool.Command == "" {
		cfg.Tool.Command = defaultCommand
	}
	if cfg.Tool.Subcommand == "" {
		cfg.Tool.Subcommand = defaultSubcommand
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultAddr
	}

	seen := make(map[string]bool, len(cfg.Simulation.Params))
	for i, p := range cfg.Simulation.Params {
		if p.Name == "" {
			return fmt.Errorf("simulation param %d: name is required", i)
		}
		if seen[p.Name] {
			return fmt.Errorf("simulation param %q: defined more than once", p.Name)
		}
		seen[p.Name] = true
	}
	if cfg.Simulation.Params == nil {
		cfg.Simulation.Params = []Param{}
	}
	return nil
}

// ToolDir returns the working directory of the simulation tool.
func (c *Config) ToolDir() string {
	if c.Tool.Dir != "" {
		return c.Tool.Dir
	}
	return filepath.Join(c.DataDir, defaultTestsuite)
}

// ResultsDir returns the directory holding the run history.
func (c *Config) ResultsDir() string {
	if c.Results.Dir != "" {
		return c.Results.Dir
	}
	return filepath.Join(c.ToolDir(), "target", "gatling")
}

// Names returns the parameter names in declaration order.
func (s Simulation) Names() []string {
	names := make([]string, 0, len(s.Params))
	for _, p := range s.Params {
		names = append(names, p.Name)
	}
	return names
}

// Defaults returns the default value of every parameter.
func (s Simulation) Defaults() map[string]string {
	defaults := make(map[string]string, len(s.Params))
	for _, p := range s.Params {
		defaults[p.Name] = p.Value
	}
	return defaults
}
