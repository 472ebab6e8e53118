package responses

import (
	"github.com/duetapp/duet-server/internal/domain/media"
	"github.com/duetapp/duet-server/internal/domain/moment"
)

// FileOutcome is the per-file result of a single-shot multipart ingest.
// Outcome is "stored", "duplicate" or "error"; exactly one of Asset or
// Error accompanies it (duplicates carry the previously stored asset).
type FileOutcome struct {
	Filename string       `json:"filename"`
	Outcome  string       `json:"outcome"`
	Asset    *media.Asset `json:"asset,omitempty"`
	Error    string       `json:"error,omitempty"`
}

// IngestResponse lists one outcome per submitted file, in request order.
type IngestResponse struct {
	Results []FileOutcome `json:"results"`
}

// BuildFileOutcome maps a pipeline result onto its wire form.
func BuildFileOutcome(filename string, res media.Result) FileOutcome {
	out := FileOutcome{Filename: filename, Outcome: string(res.Outcome)}
	switch res.Outcome {
	case media.OutcomeStored:
		out.Asset = res.Asset
	case media.OutcomeDuplicate:
		out.Asset = res.Existing
	case media.OutcomeFailed:
		if res.Err != nil {
			out.Error = res.Err.Error()
		}
	}
	return out
}

// MomentResponse wraps a moment for the wire.
type MomentResponse struct {
	Moment *moment.Moment `json:"moment"`
}

// SubmitPhotoResponse reports which side of the capture the submission
// landed on and the moment's post-state.
type SubmitPhotoResponse struct {
	Role   moment.Role    `json:"role"`
	Moment *moment.Moment `json:"moment"`
}

// UploadCompleteResponse is returned by the chunk append that finishes an
// upload. For plain media uploads Result is set; for moment captures the
// submission role and moment post-state are reported instead.
type UploadCompleteResponse struct {
	Offset    int64          `json:"offset"`
	Completed bool           `json:"completed"`
	Result    *FileOutcome   `json:"result,omitempty"`
	Role      moment.Role    `json:"role,omitempty"`
	Moment    *moment.Moment `json:"moment,omitempty"`
}

// SyncResponse acknowledges an outbox batch.
type SyncResponse struct {
	Applied int `json:"applied"`
}
