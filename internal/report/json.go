package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/rachealIC/infra-review-cli/internal/result"
)

// JSONSchema tags the JSON envelope so consumers can detect the shape.
const JSONSchema = "infra-review/v1"

// JSONReporter writes the scan result as indented JSON.
type JSONReporter struct {
	Writer io.Writer
}

type jsonEnvelope struct {
	Schema string `json:"$schema"`
	Tool   string `json:"tool"`
	*result.ScanResult
}

// Generate writes the JSON report. Result fields sit at the top level next to
// the schema tag.
func (r *JSONReporter) Generate(res *result.ScanResult) error {
	enc := json.NewEncoder(r.Writer)
	enc.SetIndent("", "  ")
	if err := enc.Encode(jsonEnvelope{Schema: JSONSchema, Tool: Tool, ScanResult: res}); err != nil {
		return fmt.Errorf("encode JSON report: %w", err)
	}
	return nil
}
