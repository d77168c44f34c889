package rule

import (
	"strconv"
	"strings"
	"time"

	"github.com/policycow/cowmcp/engine/core"
)

// DataType is the closed set of input/output data types a task may declare.
// Each variant carries its own validation semantics; free-form strings from
// the catalog are normalized through ParseDataType.
type DataType string

const (
	TypeString     DataType = "STRING"
	TypeInt        DataType = "INT"
	TypeFloat      DataType = "FLOAT"
	TypeBoolean    DataType = "BOOLEAN"
	TypeDate       DataType = "DATE"
	TypeDateTime   DataType = "DATETIME"
	TypeFile       DataType = "FILE"
	TypeHTTPConfig DataType = "HTTP_CONFIG"
)

const dateLayout = "2006-01-02"

// ParseDataType normalizes a catalog data-type string. Unknown values map
// to STRING, matching the backend's behavior of treating undeclared types
// as free text.
func ParseDataType(s string) DataType {
	switch DataType(strings.ToUpper(strings.TrimSpace(s))) {
	case TypeInt:
		return TypeInt
	case TypeFloat:
		return TypeFloat
	case TypeBoolean:
		return TypeBoolean
	case TypeDate:
		return TypeDate
	case TypeDateTime:
		return TypeDateTime
	case TypeFile:
		return TypeFile
	case TypeHTTPConfig:
		return TypeHTTPConfig
	default:
		return TypeString
	}
}

// IsFileType reports whether values of this type are stored as uploaded
// files rather than in memory.
func (d DataType) IsFileType() bool {
	return d == TypeFile || d == TypeHTTPConfig
}

// booleanVocabulary is the accepted case-insensitive boolean spellings.
var booleanVocabulary = map[string]bool{
	"true":  true,
	"yes":   true,
	"1":     true,
	"false": false,
	"no":    false,
	"0":     false,
}

// Validate checks a raw string value against the data type and returns the
// converted value. INT rejects non-integer strings, FLOAT accepts
// integer-looking strings, BOOLEAN normalizes a fixed vocabulary, and
// DATE/DATETIME require strict ISO formats.
func (d DataType) Validate(value string) (any, error) {
	switch d {
	case TypeInt:
		parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return nil, core.Validationf("'%s' is not a valid INT value", value)
		}
		return parsed, nil
	case TypeFloat:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, core.Validationf("'%s' is not a valid FLOAT value", value)
		}
		return parsed, nil
	case TypeBoolean:
		parsed, ok := booleanVocabulary[strings.ToLower(strings.TrimSpace(value))]
		if !ok {
			return nil, core.Validationf("'%s' is not a valid BOOLEAN value (expected true/false, yes/no, or 1/0)", value)
		}
		return parsed, nil
	case TypeDate:
		if _, err := time.Parse(dateLayout, strings.TrimSpace(value)); err != nil {
			return nil, core.Validationf("'%s' is not a valid DATE value (expected YYYY-MM-DD)", value)
		}
		return strings.TrimSpace(value), nil
	case TypeDateTime:
		if _, err := time.Parse(time.RFC3339, strings.TrimSpace(value)); err != nil {
			return nil, core.Validationf("'%s' is not a valid DATETIME value (expected ISO 8601)", value)
		}
		return strings.TrimSpace(value), nil
	default:
		// STRING, FILE and HTTP_CONFIG accept any text; file-typed values
		// are URLs produced by the upload stage.
		return value, nil
	}
}
