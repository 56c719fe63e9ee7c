package auditlog

import (
	"errors"
	"time"

	"ibaudit/logformat"
	"ibaudit/waf"

	"github.com/rs/zerolog"
)

// ErrNoParts is returned when a record with an empty part list is written.
var ErrNoParts = errors.New("no parts to write to audit log")

// Writer commits audit records for one configuration context. A single
// writer may be used concurrently from many transaction workers; each
// record gets its own content file and only the index sink is shared.
type Writer interface {
	// WriteRecord writes one record: content file, atomic rename, index
	// line. The returned error is a status for the caller to log; it must
	// never be allowed to fail the transaction being instrumented.
	WriteRecord(rec *Record) error

	// LogTransaction applies the audit mode policy to a completed
	// transaction and, if it should be logged, assembles the configured
	// parts and writes the record. Failures are logged, never returned.
	LogTransaction(tx *waf.Transaction, site *waf.Site)
}

// NewWriter creates an audit log writer for one configuration context.
func NewWriter(logger zerolog.Logger, fs FileSystem, cfg *waf.AuditConfig, sensor *waf.Sensor) (Writer, error) {
	sink, err := NewIndexSink(logger, fs, cfg)
	if err != nil {
		return nil, err
	}
	return &writerImpl{
		logger: logger,
		fs:     fs,
		cfg:    cfg,
		sensor: sensor,
		sink:   sink,
	}, nil
}

type writerImpl struct {
	logger zerolog.Logger
	fs     FileSystem
	cfg    *waf.AuditConfig
	sensor *waf.Sensor
	sink   *IndexSink
}

func (w *writerImpl) WriteRecord(rec *Record) error {
	if len(rec.parts) == 0 {
		return ErrNoParts
	}
	rec.sealed = true

	logger := w.logger.With().Str("txid", rec.tx.ID).Logger()

	commit, err := openContentFile(w.fs, w.cfg, rec.tx, rec.site)
	if err != nil {
		return err
	}

	mw := newMIMEWriter(commit.file, rec.boundary)

	if err := mw.writeHeader(); err != nil {
		commit.discard()
		return err
	}
	for _, p := range rec.parts {
		if err := mw.writePart(p); err != nil {
			logger.Error().Err(err).Str("part", p.Name).Msg("Failed to write audit log part")
			commit.discard()
			return err
		}
	}
	if err := mw.writeFooter(); err != nil {
		commit.discard()
		return err
	}

	if err := commit.commit(); err != nil {
		return err
	}
	logger.Info().Str("path", commit.fullPath).Msg("Wrote audit log")

	if mw.partsWritten > 0 {
		return w.sink.Append(w.indexEntry(rec, commit.relPath))
	}
	return nil
}

func (w *writerImpl) LogTransaction(tx *waf.Transaction, site *waf.Site) {
	switch w.cfg.Mode {
	case waf.AuditModeOn:
	case waf.AuditModeRelevantOnly:
		if len(tx.Events) == 0 {
			return
		}
	default:
		return
	}

	if tx.LogTime.IsZero() {
		tx.LogTime = time.Now()
	}

	logger := w.logger.With().Str("txid", tx.ID).Logger()

	rec := NewRecord(w.logger, tx, site, w.sensor)
	if err := rec.AddConfiguredParts(w.cfg.Parts); err != nil {
		logger.Error().Err(err).Msg("Failed to assemble audit log record")
		return
	}
	if err := w.WriteRecord(rec); err != nil {
		logger.Error().Err(err).Msg("Failed to write audit log")
	}
}

func (w *writerImpl) indexEntry(rec *Record, relPath string) logformat.Entry {
	e := logformat.Entry{
		Timestamp:  rec.tx.Created.Format(timestampLayout),
		Hostname:   rec.tx.Hostname,
		RemoteAddr: rec.tx.RemoteAddr,
		LocalAddr:  rec.tx.LocalAddr,
		TxID:       rec.tx.ID,
		LogFile:    relPath,
	}
	if rec.site != nil {
		e.SiteID = rec.site.ID
	}
	if rec.sensor != nil {
		e.SensorID = rec.sensor.ID
	}
	return e
}
