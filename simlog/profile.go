package simlog

// profile.go converts the REQUEST events of a simulation log into a pprof
// profile, so latency can be explored with go tool pprof.

import (
	"io"
	"strconv"
	"strings"

	"github.com/google/pprof/profile"
)

// ProfileFile is the file name of an exported profile.
const ProfileFile = "latency.pb.gz"

const (
	sampleRequests = iota
	sampleLatency
	sampleErrors
)

// profileBuilder holds the state for building the profile
type profileBuilder struct {
	profile   *profile.Profile
	functions map[string]*profile.Function
	locations map[string]*profile.Location
	samples   map[string]*profile.Sample
	lastEnd   uint64
}

func newProfileBuilder() *profileBuilder {
	return &profileBuilder{
		profile: &profile.Profile{
			SampleType: []*profile.ValueType{
				{Type: "requests", Unit: "count"},
				{Type: "latency", Unit: "milliseconds"},
				{Type: "errors", Unit: "count"},
			},
			DefaultSampleType: "latency",
			PeriodType:        &profile.ValueType{Type: "latency", Unit: "milliseconds"},
			Period:            1,
		},
		functions: make(map[string]*profile.Function),
		locations: make(map[string]*profile.Location),
		samples:   make(map[string]*profile.Sample),
	}
}

// BuildProfile parses a simulation log and returns a profile with one stack
// per request: request name, then its groups from innermost to outermost.
func BuildProfile(r io.Reader) (*profile.Profile, error) {
	b := newProfileBuilder()
	var pending []request

	h, err := scan(r, func(rec record) error {
		if rec.action() != actionRequest {
			return nil
		}
		req, err := rec.request()
		if err != nil {
			return err
		}
		pending = append(pending, req)
		return nil
	})
	if err != nil {
		return nil, err
	}

	// the simulation name is only known once the header is parsed
	for _, req := range pending {
		b.addRequest(h.name, req)
	}

	if h.start > 0 {
		b.profile.TimeNanos = int64(h.start) * 1e6
		if b.lastEnd > h.start {
			b.profile.DurationNanos = int64(b.lastEnd-h.start) * 1e6
		}
	}

	return b.profile, nil
}

func (b *profileBuilder) addRequest(simulation string, req request) {
	frames := []string{req.name}
	if req.group != "" {
		groups := strings.Split(req.group, ",")
		for i := len(groups) - 1; i >= 0; i-- {
			frames = append(frames, strings.TrimSpace(groups[i]))
		}
	}
	frames = append(frames, simulation)

	stack := make([]*profile.Location, 0, len(frames))
	ids := make([]string, 0, len(frames))
	for _, frame := range frames {
		loc := b.getOrCreateLocation(frame)
		stack = append(stack, loc)
		ids = append(ids, strconv.FormatUint(loc.ID, 10))
	}

	var errCount int64
	if req.result != resultOK {
		errCount = 1
	}

	key := strings.Join(ids, ";")
	sample, exists := b.samples[key]
	if !exists {
		sample = &profile.Sample{
			Location: stack,
			Value:    make([]int64, len(b.profile.SampleType)),
		}
		b.samples[key] = sample
		b.profile.Sample = append(b.profile.Sample, sample)
	}
	sample.Value[sampleRequests]++
	sample.Value[sampleLatency] += int64(req.duration)
	sample.Value[sampleErrors] += errCount

	if end := req.start + req.duration; end > b.lastEnd {
		b.lastEnd = end
	}
}

// getOrCreateLocation gets or creates a location with a single line for name
func (b *profileBuilder) getOrCreateLocation(name string) *profile.Location {
	if loc, exists := b.locations[name]; exists {
		return loc
	}

	loc := &profile.Location{
		ID: uint64(len(b.profile.Location) + 1),
		Line: []profile.Line{
			{Function: b.getOrCreateFunction(name)},
		},
	}
	b.locations[name] = loc
	b.profile.Location = append(b.profile.Location, loc)
	return loc
}

// getOrCreateFunction gets or creates a function
func (b *profileBuilder) getOrCreateFunction(name string) *profile.Function {
	if fn, exists := b.functions[name]; exists {
		return fn
	}

	fn := &profile.Function{
		ID:         uint64(len(b.profile.Function) + 1),
		Name:       name,
		SystemName: name,
	}
	b.functions[name] = fn
	b.profile.Function = append(b.profile.Function, fn)
	return fn
}
