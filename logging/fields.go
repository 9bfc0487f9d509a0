package logging

// Common field names for structured logging
const (
	FieldComponent    = "component"
	FieldRequestID    = "request_id"
	FieldMethod       = "method"
	FieldPath         = "path"
	FieldStatusCode   = "status_code"
	FieldDuration     = "duration_ms"
	FieldBytes        = "bytes"
	FieldError        = "error"
	FieldOperation    = "operation"
	FieldYear         = "year"
	FieldMonth        = "month"
	FieldRunID        = "run_id"
	FieldJurisdiction = "jurisdiction"
	FieldOutcome      = "outcome"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentClosing   = "closing"
	ComponentScheduler = "scheduler"
	ComponentHolidays  = "holidays"
	ComponentAMQP      = "amqp"
	ComponentStorage   = "storage"
	ComponentCLI       = "cli"
)

// Operations defines standard operation names
const (
	OpClose    = "close"
	OpRefresh  = "refresh"
	OpSetup    = "setup"
	OpWithdraw = "withdraw"
	OpPublish  = "publish"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)
