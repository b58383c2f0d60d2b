package simlog

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCountStartedUsers(t *testing.T) {
	tests := []struct {
		name string
		log  string
		want uint64
	}{
		{name: "empty", log: "", want: 0},
		{name: "header only", log: "RUN\tSim\tsim\t0\tfoo\t3.9.2\n", want: 0},
		{
			name: "starts and stops",
			log: "RUN\tSim\tsim\t0\tfoo\t3.9.2\n" +
				"USER\tVisit Homepage\tSTART\t1\n" +
				"USER\tVisit Homepage\tSTART\t2\n" +
				"USER\tVisit Homepage\tEND\t3\n" +
				"USER\tCheckout\tSTART\t4\n",
			want: 3,
		},
		{
			name: "partial trailing line",
			log: "RUN\tSim\tsim\t0\tfoo\t3.9.2\n" +
				"USER\tVisit Homepage\tSTART\t1\n" +
				"REQUEST\t\thome\t1\t2\tOK\n" +
				"USER\tVisit Home",
			want: 1,
		},
		{
			name: "malformed lines are not validated",
			log:  "garbage\nUSER START\n",
			want: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CountStartedUsers(strings.NewReader(tt.log))
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("device gone")
}

func TestCountStartedUsers_ReadError(t *testing.T) {
	_, err := CountStartedUsers(failingReader{})
	require.ErrorContains(t, err, "device gone")
}

func TestCountStartedUsers_LongLine(t *testing.T) {
	log := "RUN\tSim\tsim\t0\tfoo\t3.9.2\n" +
		"REQUEST\t\thome\t1\t2\tKO\t" + strings.Repeat("x", 2*1024*1024) + "\n" +
		"USER\tVisit Homepage\tSTART\t3\n"

	got, err := CountStartedUsers(strings.NewReader(log))
	require.NoError(t, err)
	require.Equal(t, uint64(1), got)
}
