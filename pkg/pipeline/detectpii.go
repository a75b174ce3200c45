package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"sort"

	"github.com/datasmith-io/datasmith/pkg/domain"
)

// detector is one named PII pattern.
type detector struct {
	kind    string
	pattern *regexp.Regexp
}

// The built-in detector set, most specific first: a span claimed by an
// earlier detector is not re-counted by a broader one, so an SSN is not
// also tallied as a phone number. Pluggable per source via custom
// detectors; detection quality beyond these patterns is out of scope here.
var builtinDetectors = []detector{
	{"ssn", regexp.MustCompile(`\b[0-9]{3}-[0-9]{2}-[0-9]{4}\b`)},
	{"credit_card", regexp.MustCompile(`\b(?:[0-9][ \-]?){13,16}\b`)},
	{"email", regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)},
	{"phone", regexp.MustCompile(`\+?[0-9][0-9() .\-]{7,}[0-9]`)},
}

// ReportSink persists a source's detected-PII report.
type ReportSink interface {
	PutReport(ctx context.Context, sourceId string, report []domain.PIIFinding) error
}

type detectStage struct {
	sink ReportSink
}

// NewDetectPII scans string fields with the built-in detectors plus each
// source's custom patterns, tallies findings, and replaces every
// source's detected-PII report.
func NewDetectPII(sink ReportSink) Stage {
	return &detectStage{sink: sink}
}

func (*detectStage) Name() string {
	return "detectpii"
}

func (d *detectStage) Run(ctx context.Context, ws *Workspace) error {
	detectors := map[string][]detector{} // per source id
	for _, in := range ws.Inputs {
		ds := append([]detector{}, builtinDetectors...)
		for _, custom := range in.Deident.Detectors {
			pattern, err := regexp.Compile(custom.Pattern)
			if err != nil {
				return fmt.Errorf("custom detector %s of source %s: %w", custom.Name, in.SourceName, err)
			}
			ds = append(ds, detector{kind: custom.Name, pattern: pattern})
		}
		detectors[in.SourceId] = ds
	}

	// tally[sourceId][field][kind]
	tally := map[string]map[string]map[string]int{}
	total := 0
	for _, r := range ws.Records {
		for field, value := range r.Fields {
			text, ok := value.(string)
			if !ok || text == "" {
				continue
			}
			claimed := [][]int{}
			for _, det := range detectors[r.SourceId] {
				n := 0
				for _, span := range det.pattern.FindAllStringIndex(text, -1) {
					if overlapsAny(claimed, span) {
						continue
					}
					claimed = append(claimed, span)
					n++
				}
				if n == 0 {
					continue
				}
				perSource, ok := tally[r.SourceId]
				if !ok {
					perSource = map[string]map[string]int{}
					tally[r.SourceId] = perSource
				}
				perField, ok := perSource[field]
				if !ok {
					perField = map[string]int{}
					perSource[field] = perField
				}
				perField[det.kind] += n
				total += n
			}
		}
	}

	ws.Findings = map[string][]domain.PIIFinding{}
	for _, in := range ws.Inputs {
		findings := []domain.PIIFinding{}
		for field, kinds := range tally[in.SourceId] {
			for kind, count := range kinds {
				findings = append(findings, domain.PIIFinding{
					Field: field, Kind: kind, Count: count,
				})
			}
		}
		sort.Slice(findings, func(i, j int) bool {
			if findings[i].Field != findings[j].Field {
				return findings[i].Field < findings[j].Field
			}
			return findings[i].Kind < findings[j].Kind
		})
		ws.Findings[in.SourceId] = findings

		if err := d.sink.PutReport(ctx, in.SourceId, findings); err != nil {
			return err
		}
	}

	ws.Stats.PIIDetected = total
	if total != 0 {
		ws.log(domain.LogInfo, "detected %d PII occurrences", total)
	}
	return nil
}

func overlapsAny(claimed [][]int, span []int) bool {
	for _, c := range claimed {
		if span[0] < c[1] && c[0] < span[1] {
			return true
		}
	}
	return false
}
