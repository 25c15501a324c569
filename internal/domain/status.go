package domain

// StatusKind classifies a status message for the presentation layer.
type StatusKind string

const (
	StatusIdle     StatusKind = "idle"
	StatusScanning StatusKind = "scanning"
	StatusPaused   StatusKind = "paused"
	StatusDone     StatusKind = "done"
	StatusError    StatusKind = "error"
	// StatusWarning non-fatal notice, e.g. a failed persist.
	StatusWarning StatusKind = "warning"
)

// ScanOutcome tells how a scan cycle ended.
type ScanOutcome string

const (
	ScanCompleted ScanOutcome = "completed"
	ScanStopped   ScanOutcome = "stopped"
)

// ScanState lifecycle state of a scan session.
type ScanState string

const (
	ScanStateIdle     ScanState = "idle"
	ScanStateScanning ScanState = "scanning"
	ScanStatePaused   ScanState = "paused"
)
