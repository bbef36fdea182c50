package seeding

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrBatchFailed is returned by Report.Err when any owner task failed.
var ErrBatchFailed = errors.New("seed run had failures")

// Report collects the results of one Run.
type Report struct {
	Requested   int
	Concurrency int
	Duration    time.Duration
	Results     []Result
}

// Count returns how many results have the given outcome.
func (r *Report) Count(o Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == o {
			n++
		}
	}
	return n
}

// Failures counts failed owners. With strict set, partial successes count too.
func (r *Report) Failures(strict bool) int {
	n := r.Count(Failed)
	if strict {
		n += r.Count(PartialSuccess)
	}
	return n
}

// Err is nil when the run should exit zero.
func (r *Report) Err(strict bool) error {
	if n := r.Failures(strict); n > 0 {
		return fmt.Errorf("%w: %d of %d owner(s) failed", ErrBatchFailed, n, r.Requested)
	}
	return nil
}

type reportTotals struct {
	Properties       int `yaml:"properties"`
	PropertiesFailed int `yaml:"propertiesfailed"`
	Images           int `yaml:"images"`
	ImagesFailed     int `yaml:"imagesfailed"`
	Photos           int `yaml:"photos"`
}

func (r *Report) totals() reportTotals {
	var t reportTotals
	for _, res := range r.Results {
		t.Properties += res.PropertiesCreated
		t.PropertiesFailed += res.PropertiesFailed
		t.Images += res.ImagesUploaded
		t.ImagesFailed += res.ImagesFailed
		if res.PhotoUploaded {
			t.Photos++
		}
	}
	return t
}

type yamlResult struct {
	Index             int    `yaml:"index"`
	Outcome           string `yaml:"outcome"`
	OwnerID           string `yaml:"ownerid,omitempty"`
	PhotoUploaded     bool   `yaml:"photouploaded"`
	PropertiesCreated int    `yaml:"propertiescreated"`
	PropertiesFailed  int    `yaml:"propertiesfailed"`
	ImagesUploaded    int    `yaml:"imagesuploaded"`
	ImagesFailed      int    `yaml:"imagesfailed"`
	Error             string `yaml:"error,omitempty"`
}

type yamlReport struct {
	Requested   int          `yaml:"requested"`
	Concurrency int          `yaml:"concurrency"`
	Duration    string       `yaml:"duration"`
	Succeeded   int          `yaml:"succeeded"`
	Partial     int          `yaml:"partial"`
	Failed      int          `yaml:"failed"`
	Totals      reportTotals `yaml:"totals"`
	Results     []yamlResult `yaml:"results"`
}

// MarshalYAML renders the report with results sorted by owner index.
func (r *Report) MarshalYAML() (any, error) {
	out := yamlReport{
		Requested:   r.Requested,
		Concurrency: r.Concurrency,
		Duration:    r.Duration.Round(time.Millisecond).String(),
		Succeeded:   r.Count(Success),
		Partial:     r.Count(PartialSuccess),
		Failed:      r.Count(Failed),
		Totals:      r.totals(),
		Results:     make([]yamlResult, 0, len(r.Results)),
	}
	for _, res := range r.Results {
		yr := yamlResult{
			Index:             res.Index,
			Outcome:           string(res.Outcome),
			OwnerID:           string(res.OwnerID),
			PhotoUploaded:     res.PhotoUploaded,
			PropertiesCreated: res.PropertiesCreated,
			PropertiesFailed:  res.PropertiesFailed,
			ImagesUploaded:    res.ImagesUploaded,
			ImagesFailed:      res.ImagesFailed,
		}
		if res.Err != nil {
			yr.Error = res.Err.Error()
		}
		out.Results = append(out.Results, yr)
	}
	sort.Slice(out.Results, func(i, j int) bool { return out.Results[i].Index < out.Results[j].Index })
	return out, nil
}

// WriteYAML saves the report to path, creating parent directories.
func (r *Report) WriteYAML(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write YAML file: %w", err)
	}
	return nil
}

// PrintSummary writes a human readable summary.
func (r *Report) PrintSummary(w io.Writer) {
	t := r.totals()
	fmt.Fprintln(w, "\n========================================")
	fmt.Fprintln(w, "Seed Summary")
	fmt.Fprintln(w, "========================================")
	fmt.Fprintf(w, "Owners requested:   %d\n", r.Requested)
	fmt.Fprintf(w, "Succeeded:          %d\n", r.Count(Success))
	fmt.Fprintf(w, "Partial:            %d\n", r.Count(PartialSuccess))
	fmt.Fprintf(w, "Failed:             %d\n", r.Count(Failed))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Owner photos:       %d\n", t.Photos)
	fmt.Fprintf(w, "Properties:         %d (failed %d)\n", t.Properties, t.PropertiesFailed)
	fmt.Fprintf(w, "Images:             %d (failed %d)\n", t.Images, t.ImagesFailed)
	fmt.Fprintf(w, "Duration:           %s\n", r.Duration.Round(time.Millisecond))
	fmt.Fprintln(w, "========================================")
}
