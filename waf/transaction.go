// Package waf holds the domain types shared between the audit log subsystem
// and its external collaborators (the rule engine, the HTTP parser and the
// configuration layer). The audit packages consume these types but never
// produce them.
package waf

import (
	"time"

	"github.com/google/uuid"
)

// Sensor identifies the engine instance writing audit records.
type Sensor struct {
	ID       string
	Name     string
	Version  string
	Hostname string
}

// Site is the configuration context a transaction was matched to. A nil
// *Site means no site was selected for the transaction.
type Site struct {
	ID   string
	Name string
}

// Transaction carries everything about one HTTP transaction that the audit
// log subsystem may record. All slices and streams are borrowed from the
// transaction owner; the audit writer never mutates them.
type Transaction struct {
	ID     string
	ConnID string

	// TxNum is the ordinal of this transaction on its connection.
	TxNum int

	RemoteAddr string
	RemotePort int
	LocalAddr  string
	LocalPort  int
	Hostname   string

	Method   string
	Path     string
	Protocol string

	// RequestLine and ResponseLine are the raw start lines as seen on the
	// wire, without the trailing CRLF.
	RequestLine  string
	ResponseLine string

	ResponseStatus string

	RequestHeaders  []Field
	ResponseHeaders []Field

	RequestBody  *Stream
	ResponseBody *Stream

	Events []*LogEvent

	Created          time.Time
	RequestStarted   time.Time
	ResponseFinished time.Time

	// LogTime is set by the post-processing hook just before the audit
	// record is assembled.
	LogTime time.Time
}

// NewTransactionID returns a globally unique transaction ID. The ID doubles
// as the basis for the MIME boundary of the transaction's audit record, so
// uniqueness matters beyond log correlation.
func NewTransactionID() string {
	return uuid.New().String()
}
