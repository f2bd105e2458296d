package report

import (
	"encoding/json"
	"fmt"

	"gitlab.com/tozd/go/errors"

	"github.com/paulschiretz/pgl-ingest/pkg/util"
)

// Format is the on-disk encoding of a report.
type Format string

const (
	JSON    Format = "json"
	JSONGz  Format = "json.gz"
	JSONZst Format = "json.zst"
)

var formatToString = map[Format]string{
	JSON:    "json",
	JSONGz:  "json.gz",
	JSONZst: "json.zst",
}

var stringToFormat map[string]Format

func init() {
	stringToFormat = util.InvertMap(formatToString)
}

func (f Format) String() string {
	if str, ok := formatToString[f]; ok {
		return str
	}
	return fmt.Sprintf("unknown_report_format(%s)", string(f))
}

// ParseFormat parses a report format. The empty string means plain JSON.
func ParseFormat(s string) (Format, error) {
	if s == "" {
		return JSON, nil
	}
	if format, ok := stringToFormat[s]; ok {
		return format, nil
	}
	return "", errors.Errorf("invalid report format: %q. Must be 'json', 'json.gz', or 'json.zst'", s)
}

// Ext is the file name suffix for reports in this format, leading dot included.
func (f Format) Ext() string {
	return "." + f.String()
}

func (f Format) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.String())
}

func (f *Format) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.Errorf("report format should be a string, got %s", data)
	}
	format, err := ParseFormat(s)
	if err != nil {
		return err
	}
	*f = format
	return nil
}
