package export

import (
	"fmt"
	"time"
)

type Format string

const (
	CSV Format = "csv"
	PNG Format = "png"
)

// ParseFormat accepts "csv" and "png".
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case CSV, PNG:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

func (f Format) ContentType() string {
	if f == PNG {
		return "image/png"
	}
	return "text/csv; charset=utf-8"
}

// Filename names an export of page taken at now.
func Filename(page string, f Format, now time.Time) string {
	return fmt.Sprintf("meteopl-%s-%s.%s", page, now.UTC().Format("20060102-150405"), f)
}
