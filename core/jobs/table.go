// Package jobs tracks background pipelines and moves them between the
// foreground and background.
package jobs

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"syscall"
	"unicode/utf8"

	"github.com/fatih/color"
	"golang.org/x/sys/unix"
)

// DefaultCapacity is the job limit used by the shell's default configuration.
const DefaultCapacity = 64

// maxTextLength bounds the command text kept for display.
const maxTextLength = 255

var (
	ErrTableFull     = errors.New("job table full")
	ErrNoSuchJob     = errors.New("no such job")
	ErrNoCurrentJob  = errors.New("no current job")
	ErrInvalidJobRef = errors.New("invalid job reference")
)

// State of a job.
type State int

const (
	Running State = iota
	Done
)

func (s State) String() string {
	if s == Done {
		return "Done"
	}
	return "Running"
}

// Job is a pipeline launched in the background.
type Job struct {
	ID int
	// Pgid is the process group of the external stages, 0 if there are none.
	Pgid  int
	Procs []Process
	Text  string
	State State
}

// Pid is the process id of the last stage.
func (j *Job) Pid() int {
	for i := len(j.Procs) - 1; i >= 0; i-- {
		if pid := j.Procs[i].Pid(); pid != 0 {
			return pid
		}
	}
	return 0
}

// Exited reports whether every process of the job finished.
func (j *Job) Exited() bool {
	for _, p := range j.Procs {
		if !Exited(p) {
			return false
		}
	}
	return true
}

// Wait blocks until every process exits and returns the last stage's status.
func (j *Job) Wait() int {
	code := 0
	for _, p := range j.Procs {
		code = Wait(p)
	}
	j.State = Done
	return code
}

// Continue resumes a stopped job.
func (j *Job) Continue() error {
	if j.Pgid > 0 {
		return signalGroup(j.Pgid, unix.SIGCONT)
	}

	var errs []error
	for _, p := range j.Procs {
		errs = append(errs, p.Signal(syscall.SIGCONT))
	}
	return errors.Join(errs...)
}

// Table holds the live jobs in launch order.
type Table struct {
	jobs     []*Job
	lastID   int
	capacity int

	// OnDone is called for every job Poll reaps.
	OnDone func(*Job)
}

// NewTable creates a table that holds at most capacity jobs, 0 means no
// limit.
func NewTable(capacity int) *Table {
	return &Table{capacity: capacity}
}

// Full reports whether Add would fail.
func (t *Table) Full() bool {
	return t.capacity > 0 && len(t.jobs) >= t.capacity
}

// Len is the number of live jobs.
func (t *Table) Len() int {
	return len(t.jobs)
}

// Jobs returns the live jobs, oldest first.
func (t *Table) Jobs() []*Job {
	return append([]*Job(nil), t.jobs...)
}

// Add registers a running pipeline. The process group is taken from the
// first stage with a real pid.
func (t *Table) Add(procs []Process, text string) (*Job, error) {
	if t.Full() {
		return nil, ErrTableFull
	}

	text = truncateText(text)

	t.lastID++
	job := &Job{
		ID:    t.lastID,
		Procs: procs,
		Text:  text,
		State: Running,
	}
	for _, p := range procs {
		if pid := p.Pid(); pid != 0 {
			job.Pgid = pid
			break
		}
	}
	t.jobs = append(t.jobs, job)
	return job, nil
}

// Get resolves a job reference. An empty reference means the most recent
// job, otherwise "N" and "%N" select job N.
func (t *Table) Get(ref string) (*Job, error) {
	if ref == "" || ref == "%" || ref == "%%" || ref == "%+" {
		if len(t.jobs) == 0 {
			return nil, ErrNoCurrentJob
		}
		return t.jobs[len(t.jobs)-1], nil
	}

	id, err := strconv.Atoi(strings.TrimPrefix(ref, "%"))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ref, ErrInvalidJobRef)
	}
	for _, job := range t.jobs {
		if job.ID == id {
			return job, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", ref, ErrNoSuchJob)
}

func (t *Table) remove(job *Job) {
	for i, j := range t.jobs {
		if j == job {
			t.jobs = append(t.jobs[:i], t.jobs[i+1:]...)
			return
		}
	}
}

// Poll reaps finished jobs without blocking, reporting each one to w.
func (t *Table) Poll(w io.Writer) []*Job {
	var done []*Job
	live := t.jobs[:0]
	for _, job := range t.jobs {
		if job.Exited() {
			job.State = Done
			done = append(done, job)
			continue
		}
		live = append(live, job)
	}
	for i := len(live); i < len(t.jobs); i++ {
		t.jobs[i] = nil
	}
	t.jobs = live

	for _, job := range done {
		fmt.Fprintf(w, "%s  %-8s  %s\n", jobLabel(job), job.State, job.Text)
		if t.OnDone != nil {
			t.OnDone(job)
		}
	}
	return done
}

// List reaps finished jobs then prints the ones still running.
func (t *Table) List(w io.Writer, showPids bool) {
	t.Poll(w)
	for _, job := range t.jobs {
		if showPids {
			fmt.Fprintf(w, "%s  %d  %-8s  %s\n", jobLabel(job), job.Pid(), job.State, job.Text)
			continue
		}
		fmt.Fprintf(w, "%s  %-8s  %s\n", jobLabel(job), job.State, job.Text)
	}
}

// Foreground resumes a job, hands it the terminal when tty is non-nil and
// waits for it to finish. The job is removed and its status returned.
func (t *Table) Foreground(ref string, tty Terminal) (int, error) {
	job, err := t.Get(ref)
	if err != nil {
		return 1, err
	}

	if tty != nil && job.Pgid > 0 {
		if shellPgid, err := tty.Foreground(); err == nil {
			if err := tty.SetForeground(job.Pgid); err == nil {
				defer tty.SetForeground(shellPgid)
			}
		}
	}

	// Jobs that already exited can't be signalled, that's fine.
	_ = job.Continue()
	code := job.Wait()
	t.remove(job)
	return code, nil
}

// Background resumes a stopped job without waiting for it.
func (t *Table) Background(ref string, w io.Writer) error {
	job, err := t.Get(ref)
	if err != nil {
		return err
	}
	if err := job.Continue(); err != nil && !job.Exited() {
		return err
	}
	job.State = Running
	fmt.Fprintf(w, "%s %d %s\n", jobLabel(job), job.Pid(), job.Text)
	return nil
}

func jobLabel(job *Job) string {
	return color.CyanString("[%d]", job.ID)
}

// truncateText cuts text to at most maxTextLength bytes without splitting a
// UTF-8 sequence.
func truncateText(text string) string {
	if len(text) <= maxTextLength {
		return text
	}
	n := maxTextLength
	for n > 0 && !utf8.RuneStart(text[n]) {
		n--
	}
	return text[:n]
}
