package logger

import (
	"io"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Event names, the msg field of each log line.
const (
	EventRunCommand        = "run_command"
	EventCommandExit       = "command_exit"
	EventUnknownCommand    = "unknown_command"
	EventInvalidInvocation = "invalid_invocation"
	EventJobStarted        = "job_started"
	EventJobDone           = "job_done"
)

// Logger captures shell events.
type Logger struct {
	z *zap.Logger
}

// NewJSONLinesLogger creates a Logger that writes newline delimited JSON
// objects to w.
func NewJSONLinesLogger(w io.Writer) *Logger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.AddSync(w),
		zap.DebugLevel,
	)
	return New(zap.New(core))
}

// New wraps an existing zap logger.
func New(z *zap.Logger) *Logger {
	return &Logger{z: z}
}

// Nop discards every event.
func Nop() *Logger {
	return New(zap.NewNop())
}

// NewSession creates a logger with an attached session ID.
func (l *Logger) NewSession() *SessionLogger {
	id := uuid.NewString()
	return &SessionLogger{z: l.z.With(zap.String("session_id", id)), sessionID: id}
}

// Sessionless creates a logger for events outside a session.
func (l *Logger) Sessionless() *SessionLogger {
	return &SessionLogger{z: l.z}
}

// Sync flushes buffered events.
func (l *Logger) Sync() error {
	return l.z.Sync()
}

// SessionLogger logs events with a shared session ID.
type SessionLogger struct {
	z         *zap.Logger
	sessionID string
}

// SessionID is the identifier attached to every event.
func (l *SessionLogger) SessionID() string {
	return l.sessionID
}

// RunCommand records a command that was found and started.
func (l *SessionLogger) RunCommand(args []string, resolvedPath string) {
	l.z.Info(EventRunCommand,
		zap.Strings("command", args),
		zap.String("resolved_command_path", resolvedPath),
	)
}

// CommandExit records the status of a finished foreground command.
func (l *SessionLogger) CommandExit(line string, status int) {
	l.z.Debug(EventCommandExit, zap.String("line", line), zap.Int("status", status))
}

// UnknownCommand records a command that could not be resolved.
func (l *SessionLogger) UnknownCommand(args []string, err error) {
	l.z.Warn(EventUnknownCommand,
		zap.Strings("command", args),
		zap.String("name", firstArg(args)),
		zap.Error(err),
	)
}

// InvalidInvocation records a builtin called with bad arguments.
func (l *SessionLogger) InvalidInvocation(args []string, err error) {
	l.z.Warn(EventInvalidInvocation, zap.Strings("command", args), zap.Error(err))
}

// JobStarted records a background launch.
func (l *SessionLogger) JobStarted(id, pid int, text string) {
	l.z.Info(EventJobStarted, zap.Int("job", id), zap.Int("pid", pid), zap.String("text", text))
}

// JobDone records a reaped background job.
func (l *SessionLogger) JobDone(id int, text string, status int) {
	l.z.Info(EventJobDone, zap.Int("job", id), zap.String("text", text), zap.Int("status", status))
}

// Error records an operational failure.
func (l *SessionLogger) Error(msg string, err error) {
	l.z.Error(strings.ReplaceAll(msg, " ", "_"), zap.Error(err))
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
