package simlog

import (
	"io"
	"sort"

	"github.com/waterpistol/waterpistol/model"
)

// aggregator collects per request samples while the log is scanned.
type aggregator struct {
	requestsOK  uint64
	requestsNOK uint64
	samples     map[string][]uint64
	errors      map[string]map[string]uint64
	users       map[string]uint64
}

func newAggregator() *aggregator {
	return &aggregator{
		samples: make(map[string][]uint64),
		errors:  make(map[string]map[string]uint64),
		users:   make(map[string]uint64),
	}
}

func (a *aggregator) add(rec record) error {
	switch rec.action() {
	case actionRequest:
		req, err := rec.request()
		if err != nil {
			return err
		}
		if req.result == resultOK {
			a.requestsOK++
		} else {
			a.requestsNOK++
			byResult, ok := a.errors[req.name]
			if !ok {
				byResult = make(map[string]uint64)
				a.errors[req.name] = byResult
			}
			byResult[req.result]++
		}
		a.samples[req.name] = append(a.samples[req.name], req.duration)

	case actionUser:
		journey, err := rec.field(1, "journey")
		if err != nil {
			return err
		}
		status, err := rec.field(2, "status")
		if err != nil {
			return err
		}
		if status == userStart {
			a.users[journey]++
		}
	}
	return nil
}

// ParseReport aggregates a complete simulation log into a report.
// Any malformed line fails the whole parse.
func ParseReport(r io.Reader) (*model.Report, error) {
	agg := newAggregator()
	h, err := scan(r, agg.add)
	if err != nil {
		return nil, err
	}

	report := &model.Report{
		Name:         h.name,
		Version:      h.version,
		RequestsOK:   agg.requestsOK,
		RequestsNOK:  agg.requestsNOK,
		RequestStats: make([]model.RequestStat, 0, len(agg.samples)),
		UserStats:    make([]model.UserStat, 0, len(agg.users)),
	}

	for name, samples := range agg.samples {
		stat := requestStat(name, samples)
		stat.Errors = errorStats(agg.errors[name])
		report.RequestStats = append(report.RequestStats, stat)
	}
	sort.Slice(report.RequestStats, func(i, j int) bool {
		return report.RequestStats[i].Name < report.RequestStats[j].Name
	})

	for name, count := range agg.users {
		report.UserStats = append(report.UserStats, model.UserStat{Name: name, Count: count})
	}
	sort.Slice(report.UserStats, func(i, j int) bool {
		return report.UserStats[i].Name < report.UserStats[j].Name
	})

	return report, nil
}

// requestStat computes the latency statistics of one request name.
// samples must not be empty; it is sorted in place.
func requestStat(name string, samples []uint64) model.RequestStat {
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })

	var sum uint64
	for _, s := range samples {
		sum += s
	}
	count := uint64(len(samples))

	return model.RequestStat{
		Name:  name,
		Min:   samples[0],
		Max:   samples[len(samples)-1],
		Avg:   sum / count,
		P95:   p95(samples),
		Count: count,
	}
}

// p95 picks the zero indexed nearest rank floor(n*95/100) without interpolation.
func p95(sorted []uint64) uint64 {
	idx := len(sorted) * 95 / 100
	if idx < len(sorted) {
		return sorted[idx]
	}
	return 0
}

func errorStats(byResult map[string]uint64) []model.ErrorStat {
	stats := make([]model.ErrorStat, 0, len(byResult))
	for name, count := range byResult {
		stats = append(stats, model.ErrorStat{Name: name, Count: count})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })
	return stats
}
