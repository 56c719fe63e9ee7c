// Package logformat implements the directive mini-language used to render
// audit log index lines. A format string mixes literal text with
// percent-directives, each expanding to one attribute of a completed audit
// record.
package logformat

import (
	"fmt"
	"strings"
)

// DefaultFormat is the index line format used when no format directive is
// configured: timestamp, hostname, remote address, site ID, sensor ID,
// transaction ID and the record's relative file path.
const DefaultFormat = "%T %h %a %S %s %t %f"

// MaxLineLength is the upper bound on a rendered index line, excluding the
// trailing newline. Longer lines are truncated, not dropped.
const MaxLineLength = 8192

// Directive characters.
const (
	fieldTimestamp  = 'T'
	fieldHostname   = 'h'
	fieldRemoteAddr = 'a'
	fieldLocalAddr  = 'A'
	fieldSiteID     = 'S'
	fieldSensorID   = 's'
	fieldTxID       = 't'
	fieldLogFile    = 'f'
)

// Entry carries the attribute values for one index line.
type Entry struct {
	Timestamp  string
	Hostname   string
	RemoteAddr string
	LocalAddr  string
	SiteID     string
	SensorID   string
	TxID       string

	// LogFile is the record's file path relative to the audit base
	// directory.
	LogFile string
}

type itemKind int

const (
	itemLiteral itemKind = iota
	itemField
)

type item struct {
	kind    itemKind
	literal string
	field   byte
}

// Format is a parsed format string, ready to render entries.
type Format struct {
	orig  string
	items []item
}

// Parse compiles a format string. Literal text is kept verbatim; "%x"
// selects field x; "%%" is a literal percent; "\t", "\n" and "\\" are the
// usual escapes. Unknown directives or trailing "%"/"\" are errors.
func Parse(format string) (*Format, error) {
	f := &Format{orig: format}
	var literal strings.Builder

	flushLiteral := func() {
		if literal.Len() > 0 {
			f.items = append(f.items, item{kind: itemLiteral, literal: literal.String()})
			literal.Reset()
		}
	}

	for i := 0; i < len(format); i++ {
		switch format[i] {
		case '%':
			i++
			if i == len(format) {
				return nil, fmt.Errorf("logformat: dangling %% at end of format %q", format)
			}
			c := format[i]
			if c == '%' {
				literal.WriteByte('%')
				continue
			}
			switch c {
			case fieldTimestamp, fieldHostname, fieldRemoteAddr, fieldLocalAddr,
				fieldSiteID, fieldSensorID, fieldTxID, fieldLogFile:
				flushLiteral()
				f.items = append(f.items, item{kind: itemField, field: c})
			default:
				return nil, fmt.Errorf("logformat: unknown directive %%%c in format %q", c, format)
			}
		case '\\':
			i++
			if i == len(format) {
				return nil, fmt.Errorf("logformat: dangling \\ at end of format %q", format)
			}
			switch format[i] {
			case 't':
				literal.WriteByte('\t')
			case 'n':
				literal.WriteByte('\n')
			case '\\':
				literal.WriteByte('\\')
			default:
				return nil, fmt.Errorf("logformat: unknown escape \\%c in format %q", format[i], format)
			}
		default:
			literal.WriteByte(format[i])
		}
	}
	flushLiteral()

	return f, nil
}

// String returns the original format string.
func (f *Format) String() string {
	return f.orig
}

// Render expands the format against an entry. The result is capped at
// MaxLineLength bytes; a line hitting the cap is truncated and returned
// anyway.
func (f *Format) Render(e Entry) string {
	var b strings.Builder

	for _, it := range f.items {
		if b.Len() >= MaxLineLength {
			break
		}
		switch it.kind {
		case itemLiteral:
			b.WriteString(it.literal)
		case itemField:
			b.WriteString(f.fieldValue(it.field, e))
		}
	}

	line := b.String()
	if len(line) > MaxLineLength {
		line = line[:MaxLineLength]
	}
	return line
}

func (f *Format) fieldValue(field byte, e Entry) string {
	var v string
	switch field {
	case fieldTimestamp:
		v = e.Timestamp
	case fieldHostname:
		v = e.Hostname
	case fieldRemoteAddr:
		v = e.RemoteAddr
	case fieldLocalAddr:
		v = e.LocalAddr
	case fieldSiteID:
		v = e.SiteID
	case fieldSensorID:
		v = e.SensorID
	case fieldTxID:
		v = e.TxID
	case fieldLogFile:
		v = e.LogFile
	}
	if v == "" {
		return "-"
	}
	return v
}
