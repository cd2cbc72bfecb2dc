package table

import (
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const dateTimeLayout = "Jan 2, 03:04:05 PM"

// Formatter turns raw aircraft values into display strings
type Formatter struct {
	loc     *time.Location
	printer *message.Printer
}

// NewFormatter formats timestamps in loc (time.Local when nil)
func NewFormatter(loc *time.Location) Formatter {
	if loc == nil {
		loc = time.Local
	}
	return Formatter{
		loc:     loc,
		printer: message.NewPrinter(language.English),
	}
}

// Count renders n with thousands separators
func (f Formatter) Count(n int64) string {
	return f.printer.Sprintf("%d", n)
}

// DateTime renders t as e.g. "Nov 8, 02:45:00 PM"
func (f Formatter) DateTime(t time.Time) string {
	return t.In(f.loc).Format(dateTimeLayout)
}
