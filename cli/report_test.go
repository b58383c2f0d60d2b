package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/waterpistol/waterpistol/model"
)

func TestSelectRun(t *testing.T) {
	created := time.Date(2024, 4, 4, 10, 0, 0, 0, time.UTC)
	runs := []model.RunSummary{
		{Name: "staged", Data: model.NewRunningRecord(nil)},
		{Name: "3f1c2a9e", CreationDate: &created, Data: model.DefaultRecord()},
		{Name: "ab12cd34", CreationDate: &created, Data: model.DefaultRecord()},
		{Name: "3f99aaaa", CreationDate: &created, Data: model.DefaultRecord()},
	}

	tests := []struct {
		arg     string
		want    string
		wantErr string
	}{
		{arg: "0", want: "3f1c2a9e"},
		{arg: "-1", want: "ab12cd34"},
		{arg: "-2", want: "3f99aaaa"},
		{arg: "-3", wantErr: "out of range"},
		{arg: "1", wantErr: "invalid index"},
		{arg: "AB12", want: "ab12cd34"},
		{arg: "3f", want: "3f1c2a9e"},
		{arg: "staged", wantErr: "no run found matching ID: staged"},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			got, err := selectRun(runs, tt.arg)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got.Name)
		})
	}

	_, err := selectRun(runs[:1], "0")
	require.ErrorContains(t, err, "no completed runs found")
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	printReport(&buf, &model.Report{
		Name:        "foobar",
		Version:     "3.9.2",
		RequestsOK:  1,
		RequestsNOK: 1,
		RequestStats: []model.RequestStat{{
			Name: "home_page", Count: 2, Min: 90, Avg: 101, P95: 112, Max: 112,
			Errors: []model.ErrorStat{{Name: "BLAH", Count: 1}},
		}},
		UserStats: []model.UserStat{{Name: "Visit Homepage", Count: 3}},
	})

	want := "Simulation: foobar (gatling 3.9.2)\n" +
		"Requests: 1 ok, 1 failed\n" +
		"\n" +
		"REQUEST    COUNT  MIN  AVG  P95  MAX  ERRORS\n" +
		"home_page  2      90   101  112  112  1\n" +
		"  BLAH     1                          \n" +
		"\n" +
		"SCENARIO        USERS\n" +
		"Visit Homepage  3\n"
	require.Equal(t, want, buf.String())
}

func TestPrintRecordWithoutStatistics(t *testing.T) {
	var buf bytes.Buffer
	printRecord(&buf, "abc", &model.RunRecord{
		Status:       model.StatusUnknown,
		CustomParams: map[string]string{"users": "10", "duration": "60"},
	})

	require.Equal(t, "=== Run: abc ===\n"+
		"Status: Unknown\n"+
		"Params: duration=60 users=10\n"+
		"\n"+
		"No statistics available\n", buf.String())
}
