package ending

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/mensylisir/xmsync/common"
	xmtime "github.com/mensylisir/xmsync/time"
)

// StepResult holds the outcome of one step.
type StepResult struct {
	Name     string
	Status   common.OperationState
	Message  string
	Duration time.Duration
	Err      error
	// Tolerated marks a failure the error policy let the run continue past.
	Tolerated bool
}

// NewStepResult creates a pending result for the named step.
func NewStepResult(name string) *StepResult {
	return &StepResult{Name: name, Status: common.StatePending}
}

// IsFailed reports whether the step failed, tolerated or not.
func (r *StepResult) IsFailed() bool {
	return r.Status == common.StateFailed
}

// SetError marks the result failed.
func (r *StepResult) SetError(err error, message string) {
	r.Status = common.StateFailed
	r.Err = err
	if message != "" {
		r.Message = message
	}
}

// SetSuccess marks the result successful.
func (r *StepResult) SetSuccess(message string) {
	r.Status = common.StateSuccess
	r.Message = message
}

// SetSkipped marks a step that never ran.
func (r *StepResult) SetSkipped(reason string) {
	r.Status = common.StateSkipped
	r.Message = reason
}

// Summary is the ordered list of step results of one run.
type Summary struct {
	Results []*StepResult
}

func (s *Summary) Add(r *StepResult) {
	s.Results = append(s.Results, r)
}

// Failed reports whether any step failed.
func (s *Summary) Failed() bool {
	for _, r := range s.Results {
		if r.IsFailed() {
			return true
		}
	}
	return false
}

// CombinedError aggregates the errors of every failed step. Returns nil if
// there are none.
func (s *Summary) CombinedError() error {
	var result *multierror.Error
	for _, r := range s.Results {
		if r.Err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", r.Name, r.Err))
		}
	}
	return result.ErrorOrNil()
}

// Render writes the summary as an aligned table.
func (s *Summary) Render(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STEP\tSTATUS\tDURATION\tDETAIL")
	for _, r := range s.Results {
		status := strings.ToUpper(r.Status.String())
		if r.Tolerated {
			status += " (continued)"
		}
		detail := r.Message
		if r.Err != nil {
			detail = r.Err.Error()
		}
		duration := "-"
		if r.Status != common.StateSkipped && r.Status != common.StatePending {
			duration = xmtime.ShortDur(xmtime.Round(r.Duration))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Name, status, duration, firstLine(detail))
	}
	return tw.Flush()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}
