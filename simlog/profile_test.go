package simlog

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/pprof/profile"
	"github.com/stretchr/testify/require"
)

func TestBuildProfile(t *testing.T) {
	log := "RUN\tSimulation\tsimulation\t1680605882911\tfoobar\t3.9.2\n" +
		"USER\tVisit Homepage\tSTART\t1680605883404\n" +
		"REQUEST\t\thome_page\t1680605883428\t1680605883518\tOK\t \n" +
		"REQUEST\t\thome_page\t1680605883400\t1680605883512\tKO\n" +
		"REQUEST\tshop,cart\tadd_item\t1680605883600\t1680605883650\tOK\n"

	prof, err := BuildProfile(strings.NewReader(log))
	require.NoError(t, err)
	require.NoError(t, prof.CheckValid())

	require.Len(t, prof.SampleType, 3)
	require.Equal(t, "latency", prof.DefaultSampleType)
	require.Len(t, prof.Sample, 2)

	home := prof.Sample[0]
	require.Equal(t, []int64{2, 202, 1}, home.Value)
	require.Equal(t, []string{"home_page", "foobar"}, frameNames(home))

	cart := prof.Sample[1]
	require.Equal(t, []int64{1, 50, 0}, cart.Value)
	require.Equal(t, []string{"add_item", "cart", "shop", "foobar"}, frameNames(cart))

	// one function per distinct frame name
	require.Len(t, prof.Function, 5)
	require.Equal(t, int64(1680605882911)*1e6, prof.TimeNanos)
	require.Equal(t, int64(739)*1e6, prof.DurationNanos)

	// the profile survives a write/parse cycle through the pprof encoder
	var buf bytes.Buffer
	require.NoError(t, prof.Write(&buf))
	parsed, err := profile.Parse(&buf)
	require.NoError(t, err)
	require.Len(t, parsed.Sample, 2)
}

func TestBuildProfile_Empty(t *testing.T) {
	prof, err := BuildProfile(strings.NewReader("RUN\tSim\tsim\t0\tfoo\t3.9.2\n"))
	require.NoError(t, err)
	require.Empty(t, prof.Sample)
	require.Empty(t, prof.Function)
}

func TestBuildProfile_MalformedRequest(t *testing.T) {
	_, err := BuildProfile(strings.NewReader("RUN\tSim\tsim\t0\tfoo\t3.9.2\nREQUEST\t\thome\t5\n"))
	require.ErrorIs(t, err, ErrMissingField)
}

func frameNames(s *profile.Sample) []string {
	names := make([]string, 0, len(s.Location))
	for _, loc := range s.Location {
		names = append(names, loc.Line[0].Function.Name)
	}
	return names
}
