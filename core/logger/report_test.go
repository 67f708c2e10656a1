package logger

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"sigs.k8s.io/yaml"
)

func TestReport(t *testing.T) {
	var buf bytes.Buffer
	l := NewJSONLinesLogger(&buf)

	first := l.NewSession()
	first.RunCommand([]string{"ls", "-l"}, "/bin/ls")
	first.RunCommand([]string{"ls"}, "/bin/ls")
	first.RunCommand([]string{"cd", "/tmp"}, "")
	first.CommandExit("ls -l", 0)
	first.CommandExit("nope", 127)
	first.UnknownCommand([]string{"nope"}, errors.New("executable file not found in $PATH"))

	second := l.NewSession()
	second.InvalidInvocation([]string{"history", "--bogus"}, errors.New("unknown option: --bogus"))
	second.JobStarted(1, 42, "sleep 1")
	second.JobDone(1, "sleep 1", 0)
	second.Error("save history", errors.New("read-only file system"))
	assert.Nil(t, l.Sync())

	var report Report
	assert.Nil(t, ReadJSONLinesLog(&buf, report.Update))

	assert.Equal(t, 10, report.LogEntries)
	assert.Equal(t, 2, report.Sessions)
	assert.Equal(t, 2, report.RunCommand.CommandNames.Count("ls"))
	assert.Equal(t, 1, report.RunCommand.ResolvedCommandPaths.Count(""))
	assert.Equal(t, 2, report.CommandExit.Count)
	assert.Equal(t, 1, report.CommandExit.Failures)
	assert.Equal(t, 1, report.UnknownCommand.CommandNames.Count("nope"))
	assert.Equal(t, 1, report.InvalidInvocation.CommandNames.Count("history"))
	assert.Equal(t, 1, report.Job.Started)
	assert.Equal(t, 1, report.Job.Statuses.Count(0))
	assert.Equal(t, 1, report.Errors.Messages.Count("save_history"))

	out, err := yaml.Marshal(&report)
	assert.Nil(t, err)
	assert.Contains(t, string(out), "log_entries: 10")
	assert.Contains(t, string(out), "error: executable file not found in $PATH")
}

func TestReadJSONLinesLogInvalid(t *testing.T) {
	err := ReadJSONLinesLog(strings.NewReader(`{"msg": "run_command"} {not json`), func(*Entry) {})
	assert.NotNil(t, err)
}

func TestReportUnknownEvents(t *testing.T) {
	var report Report
	report.Update(&Entry{Level: "info", Msg: "mystery"})

	assert.Equal(t, 1, report.InvalidEntries.Count("mystery"))
	assert.Equal(t, 0, report.Sessions)
}

func TestPathCounter(t *testing.T) {
	ctr := NewPathCounter("command", "error")
	ctr.Increment("a", "x")
	ctr.Increment("b", "y")
	ctr.Increment("b", "y")

	out, err := ctr.MarshalJSON()
	assert.Nil(t, err)
	assert.JSONEq(t, `[
		{"count": 2, "event": {"command": "b", "error": "y"}},
		{"count": 1, "event": {"command": "a", "error": "x"}}
	]`, string(out))

	assert.Panics(t, func() { ctr.Increment("only one") })
}
