package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Tracing fields, carried on the context logger through a call chain.
const (
	// FieldRequestID is the HTTP request ID (UUID)
	FieldRequestID = "request_id"

	// FieldScanID is the menu scan being analyzed
	FieldScanID = "scan_id"

	// FieldBatchID identifies one run of the batch analyzer
	FieldBatchID = "batch_id"

	// FieldComponent is the component/module name
	FieldComponent = "component"

	// FieldImage is the file name or storage key of the menu photo
	FieldImage = "image"
)

// Metric fields, attached per entry for aggregation.
const (
	FieldDurationMs = "duration_ms"
	FieldCount      = "count"
	FieldSize       = "size"
	FieldStatus     = "status"
)
