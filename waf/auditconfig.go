package waf

import "os"

// AuditMode controls whether a transaction is audit logged at all.
type AuditMode int

// Audit engine modes.
const (
	// AuditModeOff disables audit logging.
	AuditModeOff AuditMode = iota

	// AuditModeOn logs every transaction.
	AuditModeOn

	// AuditModeRelevantOnly logs only transactions that triggered at least
	// one event.
	AuditModeRelevantOnly
)

// AuditParts is a bitmask selecting which logical parts go into an audit
// record.
type AuditParts uint32

// Individual audit log parts.
const (
	AuditPartHeader AuditParts = 1 << iota
	AuditPartEvents
	AuditPartRequestMetadata
	AuditPartRequestHeader
	AuditPartRequestBody
	AuditPartRequestTrailer
	AuditPartResponseMetadata
	AuditPartResponseHeader
	AuditPartResponseBody
	AuditPartResponseTrailer
	AuditPartDebugFields
)

// Composite part selections.
const (
	AuditPartsRequest = AuditPartRequestMetadata | AuditPartRequestHeader |
		AuditPartRequestBody | AuditPartRequestTrailer

	AuditPartsResponse = AuditPartResponseMetadata | AuditPartResponseHeader |
		AuditPartResponseBody | AuditPartResponseTrailer

	AuditPartsAll = AuditPartHeader | AuditPartEvents |
		AuditPartsRequest | AuditPartsResponse | AuditPartDebugFields

	// AuditPartsDefault is everything except the raw bodies and debug
	// fields.
	AuditPartsDefault = AuditPartHeader | AuditPartEvents |
		AuditPartRequestMetadata | AuditPartRequestHeader |
		AuditPartRequestTrailer | AuditPartResponseMetadata |
		AuditPartResponseHeader | AuditPartResponseTrailer
)

// AuditConfig is the audit logging configuration of one configuration
// context. One index sink is shared by all transactions in the context.
type AuditConfig struct {
	Mode AuditMode

	// BaseDir is the directory audit record files are written under.
	BaseDir string

	// SubdirFormat is an optional strftime format rendered from the
	// record's log time (UTC) and joined under BaseDir. Empty means no
	// subdirectory.
	SubdirFormat string

	DirMode  os.FileMode
	FileMode os.FileMode

	// Index selects the index sink: empty for none, an absolute path for a
	// file, a "|command" for a subprocess pipe, anything else for a path
	// relative to BaseDir.
	Index string

	// IndexFormat is the logformat directive string for index lines. Empty
	// selects the default format.
	IndexFormat string

	Parts AuditParts
}

// DefaultAuditConfig returns the audit configuration defaults applied
// before any directives.
func DefaultAuditConfig() AuditConfig {
	return AuditConfig{
		Mode:     AuditModeOff,
		BaseDir:  "/var/log/ironbee",
		DirMode:  0700,
		FileMode: 0600,
		Parts:    AuditPartsDefault,
	}
}
