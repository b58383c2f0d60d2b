package model

// Report contains the statistics aggregated from one simulation log.
type Report struct {
	// Simulation name from the log header
	Name string `json:"name"`
	// Version of the tool that wrote the log
	Version string `json:"version"`
	// Number of successful requests
	RequestsOK uint64 `json:"requests_ok"`
	// Number of failed requests
	RequestsNOK uint64 `json:"requests_nok"`
	// One entry per distinct request name
	RequestStats []RequestStat `json:"request_stats"`
	// One entry per distinct journey name
	UserStats []UserStat `json:"user_stats"`
}

// RequestStat holds latency statistics in milliseconds for one request name.
type RequestStat struct {
	Name   string      `json:"name"`
	Avg    uint64      `json:"avg"`
	Max    uint64      `json:"max"`
	Min    uint64      `json:"min"`
	P95    uint64      `json:"p95"`
	Count  uint64      `json:"count"`
	Errors []ErrorStat `json:"errors"`
}

// ErrorStat counts the occurrences of one non-OK result for a request.
type ErrorStat struct {
	Name  string `json:"name"`
	Count uint64 `json:"count"`
}

// UserStat counts the START events of one journey. Repeated starts accumulate.
type UserStat struct {
	Name  string `json:"name"`
	Count uint64 `json:"count"`
}
