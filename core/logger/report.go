package logger

import (
	"encoding/json"
	"io"
	"sort"
)

// Entry is one decoded line of the event log. Fields an event doesn't
// carry are left empty.
type Entry struct {
	Level     string `json:"level"`
	Timestamp string `json:"timestamp"`
	Msg       string `json:"msg"`
	SessionID string `json:"session_id"`

	Command             []string `json:"command"`
	ResolvedCommandPath string   `json:"resolved_command_path"`
	Line                string   `json:"line"`
	Status              int      `json:"status"`
	Job                 int      `json:"job"`
	Text                string   `json:"text"`
	Error               string   `json:"error"`
}

// ReadJSONLinesLog parses a newline delimited JSON log.
func ReadJSONLinesLog(r io.Reader, handler func(le *Entry)) error {
	decoder := json.NewDecoder(r)
	for decoder.More() {
		var logEntry Entry
		if err := decoder.Decode(&logEntry); err != nil {
			return err
		}

		handler(&logEntry)
	}
	return nil
}

// Report holds statistics about the logged events.
type Report struct {
	LogEntries     int        `json:"log_entries"`
	Sessions       int        `json:"sessions"`
	InvalidEntries StrCounter `json:"unknown_log_entries,omitempty"`

	RunCommand        RunCommandReport        `json:"run_command_report"`
	CommandExit       CommandExitReport       `json:"command_exit_report"`
	UnknownCommand    UnknownCommandReport    `json:"unknown_command_report"`
	InvalidInvocation InvalidInvocationReport `json:"invalid_invocation_report"`
	Job               JobReport               `json:"job_report"`
	Errors            ErrorReport             `json:"error_report"`

	sessions map[string]bool
}

func (r *Report) Update(le *Entry) {
	r.LogEntries++

	if le.SessionID != "" && !r.sessions[le.SessionID] {
		if r.sessions == nil {
			r.sessions = make(map[string]bool)
		}
		r.sessions[le.SessionID] = true
		r.Sessions++
	}

	switch le.Msg {
	case EventRunCommand:
		r.RunCommand.update(le)
	case EventCommandExit:
		r.CommandExit.update(le)
	case EventUnknownCommand:
		r.UnknownCommand.update(le)
	case EventInvalidInvocation:
		r.InvalidInvocation.update(le)
	case EventJobStarted, EventJobDone:
		r.Job.update(le)
	default:
		if le.Level == "error" {
			r.Errors.update(le)
			return
		}
		r.InvalidEntries.Increment(le.Msg)
	}
}

type RunCommandReport struct {
	// Name of the resolved command, empty for builtins.
	ResolvedCommandPaths StrCounter `json:"resolved_command_paths"`
	// Name of the command
	CommandNames StrCounter `json:"command_names"`
}

func (r *RunCommandReport) update(le *Entry) {
	r.ResolvedCommandPaths.Increment(le.ResolvedCommandPath)
	if len(le.Command) > 0 {
		r.CommandNames.Increment(le.Command[0])
	}
}

type CommandExitReport struct {
	Count    int `json:"count"`
	Failures int `json:"failures"`
}

func (r *CommandExitReport) update(le *Entry) {
	r.Count++
	if le.Status != 0 {
		r.Failures++
	}
}

type UnknownCommandReport struct {
	CommandNames StrCounter   `json:"command_names"`
	Errors       *PathCounter `json:"errors"`
}

func (r *UnknownCommandReport) update(le *Entry) {
	if r.Errors == nil {
		r.Errors = NewPathCounter("command", "error")
	}
	if len(le.Command) > 0 {
		r.CommandNames.Increment(le.Command[0])
		r.Errors.Increment(le.Command[0], le.Error)
	}
}

type InvalidInvocationReport struct {
	CommandNames StrCounter `json:"command_counts"`
}

func (r *InvalidInvocationReport) update(le *Entry) {
	if len(le.Command) > 0 {
		r.CommandNames.Increment(le.Command[0])
	}
}

type JobReport struct {
	Started  int        `json:"started"`
	Finished int        `json:"finished"`
	Statuses IntCounter `json:"statuses"`
}

func (r *JobReport) update(le *Entry) {
	if le.Msg == EventJobStarted {
		r.Started++
		return
	}
	r.Finished++
	r.Statuses.Increment(le.Status)
}

type ErrorReport struct {
	Messages StrCounter `json:"messages"`
}

func (r *ErrorReport) update(le *Entry) {
	r.Messages.Increment(le.Msg)
}

// StrCounter counts the number of strings seen.
type StrCounter struct {
	internal map[string]int
}

// Increment adds one to the given key.
func (s *StrCounter) Increment(toAdd string) {
	if s.internal == nil {
		s.internal = make(map[string]int)
	}

	s.internal[toAdd]++
}

// Count returns how many times key was seen.
func (s *StrCounter) Count(key string) int {
	return s.internal[key]
}

// MarshalJSON implements a custom JSON marshaler.
func (s StrCounter) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.internal)
}

// IntCounter counts the number of ints seen.
type IntCounter struct {
	internal map[int]int
}

// Increment adds one to the given key.
func (c *IntCounter) Increment(toAdd int) {
	if c.internal == nil {
		c.internal = make(map[int]int)
	}
	c.internal[toAdd]++
}

// Count returns how many times key was seen.
func (c *IntCounter) Count(key int) int {
	return c.internal[key]
}

// MarshalJSON implements a custom JSON marshaler.
func (c IntCounter) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.internal)
}

func NewPathCounter(cols ...string) *PathCounter {
	return &PathCounter{
		cols:     cols,
		internal: make(map[string]int),
	}
}

// PathCounter counts tuples of strings, one per column.
type PathCounter struct {
	cols     []string
	internal map[string]int
}

// Increment adds one to the given key.
func (ctr *PathCounter) Increment(toAdd ...string) {
	if len(toAdd) != len(ctr.cols) {
		panic("wrong number of columns to add")
	}

	ctr.internal[toKey(toAdd...)]++
}

// MarshalJSON implements a custom JSON marshaler. The most frequent tuples
// come first.
func (ctr *PathCounter) MarshalJSON() ([]byte, error) {
	type Count struct {
		Count  int               `json:"count"`
		Fields map[string]string `json:"event"`
		Path   string            `json:"-"`
	}

	out := []Count{}
	for k, v := range ctr.internal {
		count := Count{
			Count:  v,
			Path:   k,
			Fields: make(map[string]string),
		}

		splitPath := fromKey(k)
		for colNum, colVal := range ctr.cols {
			count.Fields[colVal] = splitPath[colNum]
		}

		out = append(out, count)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Path < out[j].Path
		}
		return out[i].Count > out[j].Count
	})

	return json.Marshal(out)
}

func toKey(vals ...string) string {
	key, _ := json.Marshal(vals)
	return string(key)
}

func fromKey(key string) (out []string) {
	json.Unmarshal([]byte(key), &out)
	return
}
