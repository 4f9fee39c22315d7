package audit

// EventKind names an audited event. The value is written verbatim to the log line.
type EventKind string

// Access channel events.
const (
	AuthSuccess EventKind = "AUTH_SUCCESS"
	AuthFailed  EventKind = "AUTH_FAILED"
	AuthError   EventKind = "AUTH_ERROR"
	AppStart    EventKind = "APP_START"
	AppStop     EventKind = "APP_STOP"
)

// Application channel events.
const (
	AppLaunched       EventKind = "APP_LAUNCHED"
	ExecStart         EventKind = "EXEC_START"
	ExecSuccess       EventKind = "EXEC_SUCCESS"
	ExecFailure       EventKind = "EXEC_FAILURE"
	HelpRequested     EventKind = "HELP_REQUESTED"
	HelpChunk         EventKind = "HELP_CHUNK"
	HelpCompleted     EventKind = "HELP_COMPLETED"
	HelpFailed        EventKind = "HELP_FAILED"
	EvalStarted       EventKind = "EVAL_STARTED"
	EvalChunk         EventKind = "EVAL_CHUNK"
	EvalCompleted     EventKind = "EVAL_COMPLETED"
	EvalFallback      EventKind = "EVAL_FALLBACK"
	EvalFallbackError EventKind = "EVAL_FALLBACK_FAILED"
	EvalFailed        EventKind = "EVAL_FAILED"
)

// UnknownIdentity is recorded when no identity is associated with an access event.
const UnknownIdentity = "unknown"
