package runner

// command.go contains utilities for building the command line of the
// simulation tool.

import (
	"fmt"
	"strings"

	"al.essio.dev/pkg/shellescape"
)

const (
	propSimulationClass = "gatling.simulationClass"
	propRunDescription  = "gatling.runDescription"
	propResultsFolder   = "gatling.resultsFolder"
)

// ToolOptions describes how the simulation tool is invoked.
type ToolOptions struct {
	Command         string   // Executable, e.g. mvn
	Subcommand      string   // Fixed first argument, e.g. gatling:test
	Dir             string   // Working directory, the test suite
	SimulationClass string   // Simulation to run
	Params          []string // Names of the parameters the simulation accepts
}

// Command is a fully resolved invocation of the tool.
type Command struct {
	Path string
	Args []string
	Dir  string
}

// String returns the command line with proper shell escaping.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, shellescape.Quote(c.Path))
	for _, arg := range c.Args {
		parts = append(parts, shellescape.Quote(arg))
	}
	return strings.Join(parts, " ")
}

// BuildArgs builds the tool arguments for one run. Only parameters listed
// in opts.Params are forwarded, in the order they are declared.
func BuildArgs(opts ToolOptions, resultsDir, description string, params map[string]string) []string {
	args := []string{}
	if opts.Subcommand != "" {
		args = append(args, opts.Subcommand)
	}

	args = append(args,
		property(propSimulationClass, opts.SimulationClass),
		property(propRunDescription, description),
		property(propResultsFolder, resultsDir),
	)

	for _, name := range opts.Params {
		if v, ok := params[name]; ok {
			args = append(args, property(name, v))
		}
	}

	return args
}

// BuildCommand resolves the command for a run writing into resultsDir.
func BuildCommand(opts ToolOptions, resultsDir, description string, params map[string]string) Command {
	return Command{
		Path: opts.Command,
		Args: BuildArgs(opts, resultsDir, description, params),
		Dir:  opts.Dir,
	}
}

func property(key, value string) string {
	return fmt.Sprintf("-D%s=%s", key, value)
}
