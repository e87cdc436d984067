package export

import (
	"encoding/json"
	"io"
	"time"

	"github.com/dusk-indust/codescope/internal/engine"
)

// ScanExport is the top-level JSON export structure. It wraps a scan result
// with export metadata so consumers can tell dumps apart.
type ScanExport struct {
	Tool       string         `json:"tool"`
	ExportedAt string         `json:"exportedAt"`
	Result     *engine.Result `json:"result"`
}

// WriteJSON serializes a scan result to w as indented JSON.
func WriteJSON(w io.Writer, res *engine.Result) error {
	export := &ScanExport{
		Tool:       "codescope",
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Result:     res,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(export)
}
