package domain

// FetchState is the state of a list page's data load.
type FetchState int

const (
	StateIdle FetchState = iota
	StateLoading
	StateSuccess
	StateError
)

var fetchStateLabels = map[FetchState]string{
	StateIdle:    "idle",
	StateLoading: "loading",
	StateSuccess: "success",
	StateError:   "error",
}

func (s FetchState) String() string {
	if label, ok := fetchStateLabels[s]; ok {
		return label
	}
	return "unknown"
}

// ExportStatus tracks a recorded export run.
type ExportStatus string

const (
	ExportPending    ExportStatus = "pending"
	ExportProcessing ExportStatus = "processing"
	ExportCompleted  ExportStatus = "completed"
	ExportFailed     ExportStatus = "failed"
)
