// Package report builds the end-of-run summary.
//
// Every candidate lands in exactly one bucket: Bundled, RefreshedNotBundled
// or Failed. Candidates without a recorded outcome count as failed.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/bundlegrid/internal/model"
)

// ReasonNoOutcome marks a candidate the run never finished.
const ReasonNoOutcome = "no outcome recorded"

// Candidate is an artifact submitted to the run.
type Candidate struct {
	Seq        int
	Key        string
	Name       string
	SourcePath string
}

// Entry is one candidate's line in a bucket.
type Entry struct {
	Key        string `json:"key"`
	Name       string `json:"name"`
	SourcePath string `json:"source_path,omitempty"`
	State      string `json:"state"`
	Reason     string `json:"reason,omitempty"`
	BundlePath string `json:"bundle_path,omitempty"`
}

// DiagnosticSummary counts the diagnostics of the artifacts built on one
// primary library.
type DiagnosticSummary struct {
	Library  string   `json:"library"`
	Info     int      `json:"info"`
	Warning  int      `json:"warning"`
	Error    int      `json:"error"`
	Messages []string `json:"messages,omitempty"`
}

// RunReport summarises one orchestrator invocation.
type RunReport struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Total      int       `json:"total"`

	Bundled             []Entry `json:"bundled"`
	RefreshedNotBundled []Entry `json:"refreshed_not_bundled"`
	Failed              []Entry `json:"failed"`
	// DeliveryFailures lists bundled artifacts whose transmission failed.
	DeliveryFailures []Entry `json:"delivery_failures,omitempty"`

	Diagnostics map[string]*DiagnosticSummary `json:"diagnostics,omitempty"`
}

// HasFailures reports whether any candidate failed.
func (r *RunReport) HasFailures() bool {
	return len(r.Failed) > 0
}

// Duration is the wall time of the run.
func (r *RunReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Build partitions the outcomes. Outcomes are matched to candidates by Seq;
// an outcome for an unknown Seq is ignored.
func Build(candidates []Candidate, outcomes []model.Outcome, start, end time.Time) *RunReport {
	r := &RunReport{
		RunID:               uuid.NewString(),
		StartedAt:           start,
		FinishedAt:          end,
		Total:               len(candidates),
		Bundled:             []Entry{},
		RefreshedNotBundled: []Entry{},
		Failed:              []Entry{},
		Diagnostics:         make(map[string]*DiagnosticSummary),
	}

	bySeq := make(map[int]model.Outcome, len(outcomes))
	for _, o := range outcomes {
		bySeq[o.Seq] = o
	}

	ordered := append([]Candidate(nil), candidates...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Seq < ordered[j].Seq })

	for _, c := range ordered {
		o, ok := bySeq[c.Seq]
		if !ok {
			r.Failed = append(r.Failed, Entry{
				Key: c.Key, Name: c.Name, SourcePath: c.SourcePath,
				State: model.StateFailed.String(), Reason: ReasonNoOutcome,
			})
			continue
		}

		e := Entry{
			Key:        c.Key,
			Name:       c.Name,
			SourcePath: c.SourcePath,
			State:      o.State.String(),
			Reason:     reason(o),
			BundlePath: o.BundlePath,
		}
		switch o.State {
		case model.StatePersisted:
			r.Bundled = append(r.Bundled, e)
			if o.DeliveryErr != nil {
				d := e
				d.Reason = o.DeliveryErr.Error()
				r.DeliveryFailures = append(r.DeliveryFailures, d)
			}
		case model.StateSkipped, model.StateResolved:
			r.RefreshedNotBundled = append(r.RefreshedNotBundled, e)
		default:
			r.Failed = append(r.Failed, e)
		}

		r.addDiagnostics(o)
	}
	return r
}

func reason(o model.Outcome) string {
	if o.Err != nil {
		return o.Err.Error()
	}
	return o.Reason
}

// addDiagnostics files an outcome's diagnostics under its primary library,
// or the artifact name when it has none. Messages keep the emitting library.
func (r *RunReport) addDiagnostics(o model.Outcome) {
	lib := o.Library
	if lib == "" {
		lib = o.Name
	}
	for _, d := range o.Diagnostics {
		s, ok := r.Diagnostics[lib]
		if !ok {
			s = &DiagnosticSummary{Library: lib}
			r.Diagnostics[lib] = s
		}
		switch d.Severity {
		case model.SeverityInfo:
			s.Info++
		case model.SeverityWarning:
			s.Warning++
		default:
			s.Error++
		}
		if d.Severity != model.SeverityInfo {
			s.Messages = append(s.Messages, d.String())
		}
	}
}

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, r *RunReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode run report: %w", err)
	}
	return nil
}
