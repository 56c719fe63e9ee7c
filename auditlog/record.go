// Package auditlog assembles per-transaction audit records, writes them as
// MIME multipart files with an atomic temp-then-rename commit, and appends
// one line per record to a shared, lock-protected index.
package auditlog

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"ibaudit/waf"

	"github.com/rs/zerolog"
)

// auditLogFormatVersion identifies the record layout to downstream
// collectors. It appears in the MIME header block and the header part.
const auditLogFormatVersion = "http-message/1"

// timestampLayout is the timestamp format used in part bodies and index
// lines.
const timestampLayout = "2006-01-02T15:04:05.0000-0700"

// ErrRecordSealed is returned by AddPart once a writer has consumed the
// record.
var ErrRecordSealed = errors.New("audit record already written")

// Generator produces the body of one audit log part as a sequence of byte
// chunks. The writer calls it repeatedly until it returns nil; nil
// terminates the part and the generator is not called again for that pass.
// A non-nil empty chunk is allowed and writes nothing.
type Generator func(part *Part) []byte

// Part is one named, typed segment of an audit record's body. The source
// is borrowed from the transaction; the generator walks it without copying
// where possible.
type Part struct {
	Name        string
	ContentType string

	rec    *Record
	source interface{}
	gen    Generator
	state  generatorState
}

func (p *Part) produce() []byte {
	return p.gen(p)
}

// Record is one transaction's audit log: an ordered list of parts plus the
// identity needed to name and index the resulting file. Insertion order is
// emission order.
type Record struct {
	logger zerolog.Logger

	tx     *waf.Transaction
	site   *waf.Site
	sensor *waf.Sensor

	boundary string
	parts    []*Part
	sealed   bool
}

// NewRecord creates an empty audit record for a transaction. The MIME
// boundary is derived from the transaction ID with a random prefix so that
// it is unique per record.
func NewRecord(logger zerolog.Logger, tx *waf.Transaction, site *waf.Site, sensor *waf.Sensor) *Record {
	return &Record{
		logger:   logger.With().Str("txid", tx.ID).Logger(),
		tx:       tx,
		site:     site,
		sensor:   sensor,
		boundary: fmt.Sprintf("%08x-%s", rand.Uint32(), tx.ID),
	}
}

// Boundary returns the record's MIME boundary token.
func (r *Record) Boundary() string {
	return r.boundary
}

// AddPart appends a part to the record. Parts cannot be added once a
// writer has consumed the record.
func (r *Record) AddPart(name, contentType string, source interface{}, gen Generator) error {
	if r.sealed {
		return ErrRecordSealed
	}
	r.parts = append(r.parts, &Part{
		Name:        name,
		ContentType: contentType,
		rec:         r,
		source:      source,
		gen:         gen,
	})
	return nil
}

// AddConfiguredParts adds the standard parts selected by the configured
// bitmask, in the conventional order.
func (r *Record) AddConfiguredParts(parts waf.AuditParts) error {
	type builder struct {
		mask waf.AuditParts
		add  func() error
	}
	builders := []builder{
		{waf.AuditPartHeader, r.addPartHeader},
		{waf.AuditPartEvents, r.addPartEvents},
		{waf.AuditPartRequestMetadata, r.addPartRequestMeta},
		{waf.AuditPartResponseMetadata, r.addPartResponseMeta},
		{waf.AuditPartRequestHeader, r.addPartRequestHead},
		{waf.AuditPartRequestBody, r.addPartRequestBody},
		{waf.AuditPartResponseHeader, r.addPartResponseHead},
		{waf.AuditPartResponseBody, r.addPartResponseBody},
	}
	for _, b := range builders {
		if parts&b.mask == 0 {
			continue
		}
		if err := b.add(); err != nil {
			return err
		}
	}
	return nil
}

func (r *Record) addPartHeader() error {
	tx := r.tx

	txTime := tx.ResponseFinished.Sub(tx.RequestStarted) / time.Millisecond
	fields := []waf.Field{
		waf.NewIntField("tx-time", int64(txTime)),
		waf.NewStringField("log-timestamp", tx.LogTime.Format(timestampLayout)),
		waf.NewStringField("log-format", auditLogFormatVersion),
		waf.NewStringField("log-id", r.boundary),
	}
	if r.sensor != nil {
		fields = append(fields,
			waf.NewStringField("sensor-id", r.sensor.ID),
			waf.NewStringField("sensor-name", r.sensor.Name),
			waf.NewStringField("sensor-version", r.sensor.Version),
			waf.NewStringField("sensor-hostname", r.sensor.Hostname),
		)
	}
	if r.site != nil {
		fields = append(fields,
			waf.NewStringField("site-id", r.site.ID),
			waf.NewStringField("site-name", r.site.Name),
		)
	}

	return r.AddPart("header", "application/json", fields, genJSONFields)
}

func (r *Record) addPartEvents() error {
	return r.AddPart("events", "application/json", r.tx.Events, genJSONEvents)
}

func (r *Record) addPartRequestMeta() error {
	tx := r.tx

	fields := []waf.Field{
		waf.NewIntField("tx-num", int64(tx.TxNum)),
		waf.NewStringField("request-timestamp", tx.RequestStarted.Format(timestampLayout)),
		waf.NewStringField("tx-id", tx.ID),
		waf.NewStringField("remote-addr", tx.RemoteAddr),
		waf.NewIntField("remote-port", int64(tx.RemotePort)),
		waf.NewStringField("local-addr", tx.LocalAddr),
		waf.NewIntField("local-port", int64(tx.LocalPort)),
	}
	if tx.Path != "" {
		fields = append(fields, waf.NewStringField("request-uri-path", tx.Path))
	}
	if tx.Protocol != "" {
		fields = append(fields, waf.NewStringField("request-protocol", tx.Protocol))
	}
	if tx.Method != "" {
		fields = append(fields, waf.NewStringField("request-method", tx.Method))
	}
	if tx.Hostname != "" {
		fields = append(fields, waf.NewStringField("request-hostname", tx.Hostname))
	}

	return r.AddPart("http-request-metadata", "application/json", fields, genJSONFields)
}

func (r *Record) addPartResponseMeta() error {
	tx := r.tx

	fields := []waf.Field{
		waf.NewStringField("response-timestamp", tx.ResponseFinished.Format(timestampLayout)),
	}
	if tx.ResponseStatus != "" {
		fields = append(fields, waf.NewStringField("response-status", tx.ResponseStatus))
	}
	if tx.Protocol != "" {
		fields = append(fields, waf.NewStringField("response-protocol", tx.Protocol))
	}

	return r.AddPart("http-response-metadata", "application/json", fields, genJSONFields)
}

func (r *Record) addPartRequestHead() error {
	tx := r.tx

	var fields []waf.Field
	if tx.RequestLine != "" {
		fields = append(fields, waf.NewBytesField("request-line", []byte(tx.RequestLine)))
	}
	fields = append(fields, tx.RequestHeaders...)

	return r.AddPart("http-request-header", "application/octet-stream", fields, genHeaderLines)
}

func (r *Record) addPartResponseHead() error {
	tx := r.tx

	var fields []waf.Field
	if tx.ResponseLine != "" {
		fields = append(fields, waf.NewBytesField("response-line", []byte(tx.ResponseLine)))
	}
	fields = append(fields, tx.ResponseHeaders...)

	return r.AddPart("http-response-header", "application/octet-stream", fields, genHeaderLines)
}

func (r *Record) addPartRequestBody() error {
	return r.AddPart("http-request-body", "application/octet-stream", r.tx.RequestBody, genRawStream)
}

func (r *Record) addPartResponseBody() error {
	return r.AddPart("http-response-body", "application/octet-stream", r.tx.ResponseBody, genRawStream)
}
