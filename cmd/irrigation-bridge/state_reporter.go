package main

import (
	"sort"
	"time"

	"github.com/barkimedes/go-deepcopy"
	"github.com/jbuck2005/irrigation-ha/internal/irrigation"
)

// ZoneReport is what the bridge exposes for a zone: its last known state
// plus a short run history. Times are RFC 3339 strings.
type ZoneReport struct {
	Zone                      int    `json:"zone"`
	Name                      string `json:"name"`
	Running                   bool   `json:"running"`
	RemainingSeconds          int    `json:"remaining_seconds"`
	ConfiguredDurationSeconds int    `json:"configured_duration_seconds"`
	DefaultDurationSeconds    int    `json:"default_duration_seconds"`
	Level                     uint8  `json:"level"`
	UpdatedAt                 string `json:"updated_at"`
	LastStartedAt             string `json:"last_started_at,omitempty"`
	Runs                      int    `json:"runs"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func (r *ZoneReport) update(s irrigation.ZoneState) {
	r.Running = s.Running
	r.RemainingSeconds = s.RemainingSeconds
	r.ConfiguredDurationSeconds = s.ConfiguredDurationSeconds
	r.Level = s.Level()
	r.UpdatedAt = formatTime(s.UpdatedAt)
	r.Runs = s.Starts
	r.LastStartedAt = formatTime(s.StartedAt)
}

type stateReporter struct {
	requests chan chan map[int]*ZoneReport
	updates  <-chan irrigation.ZoneState
	done     chan struct{}
	registry *irrigation.Registry

	last map[int]*ZoneReport
}

func newStateReporter(config Config, registry *irrigation.Registry) *stateReporter {
	r := &stateReporter{
		requests: make(chan chan map[int]*ZoneReport),
		updates:  registry.Subscribe(),
		done:     make(chan struct{}),
		registry: registry,
		last:     make(map[int]*ZoneReport),
	}
	for _, zc := range config.ZoneConfigs() {
		r.last[zc.Zone] = &ZoneReport{
			Zone:                   zc.Zone,
			Name:                   config.ZoneName(zc.Zone),
			DefaultDurationSeconds: zc.DefaultDuration,
		}
	}
	r.refresh()
	return r
}

// refresh reads every zone from the registry. The subscription may drop
// states under load, the registry never does.
func (r *stateReporter) refresh() {
	for _, s := range r.registry.States() {
		if report, ok := r.last[s.Zone]; ok == true {
			report.update(s)
		}
	}
}

// Report runs until the registry closes its subscription.
func (r *stateReporter) Report(ready chan<- struct{}) {
	defer close(r.done)
	close(ready)
	for {
		select {
		case s, ok := <-r.updates:
			if ok == false {
				return
			}
			if report, ok := r.last[s.Zone]; ok == true {
				report.update(s)
			}
		case req := <-r.requests:
			r.refresh()
			req <- deepcopy.MustAnything(r.last).(map[int]*ZoneReport)
		}
	}
}

func (r *stateReporter) snapshot() map[int]*ZoneReport {
	resChannel := make(chan map[int]*ZoneReport, 1)
	select {
	case r.requests <- resChannel:
	case <-r.done:
		return nil
	}
	// an accepted request is always answered
	return <-resChannel
}

// Last returns the report of every zone, sorted by zone, or nil once the
// reporter has stopped.
func (r *stateReporter) Last() []*ZoneReport {
	last := r.snapshot()
	if last == nil {
		return nil
	}
	res := make([]*ZoneReport, 0, len(last))
	for _, report := range last {
		res = append(res, report)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Zone < res[j].Zone })
	return res
}

func (r *stateReporter) LastZone(zone int) *ZoneReport {
	last := r.snapshot()
	if last == nil {
		return nil
	}
	return last[zone]
}
