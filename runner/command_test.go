package runner

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildArgs(t *testing.T) {
	tests := []struct {
		name   string
		opts   ToolOptions
		params map[string]string
		want   []string
	}{
		{
			name: "schema order, unknown params dropped",
			opts: ToolOptions{
				Subcommand:      "gatling:test",
				SimulationClass: "sim.Basic",
				Params:          []string{"duration", "users"},
			},
			params: map[string]string{"users": "5", "duration": "60", "other": "x"},
			want: []string{
				"gatling:test",
				"-Dgatling.simulationClass=sim.Basic",
				"-Dgatling.runDescription=desc",
				"-Dgatling.resultsFolder=/results/running-t",
				"-Dduration=60",
				"-Dusers=5",
			},
		},
		{
			name: "no subcommand, missing params skipped",
			opts: ToolOptions{
				SimulationClass: "sim.Basic",
				Params:          []string{"users"},
			},
			params: nil,
			want: []string{
				"-Dgatling.simulationClass=sim.Basic",
				"-Dgatling.runDescription=desc",
				"-Dgatling.resultsFolder=/results/running-t",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildArgs(tt.opts, "/results/running-t", "desc", tt.params)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestCommandString(t *testing.T) {
	cmd := BuildCommand(ToolOptions{
		Command:         "mvn",
		Subcommand:      "gatling:test",
		SimulationClass: "sim.Basic",
	}, "/results/running-t", "nightly run; 10 users", nil)

	require.Equal(t,
		"mvn gatling:test -Dgatling.simulationClass=sim.Basic "+
			"'-Dgatling.runDescription=nightly run; 10 users' "+
			"-Dgatling.resultsFolder=/results/running-t",
		cmd.String())
}
