package auditlog

import (
	"fmt"
	"io"
)

// mimeWriter emits one audit record as a MIME multipart/mixed document.
// It moves through header, parts and footer exactly once; the first
// unrecoverable write error ends the record.
type mimeWriter struct {
	w        io.Writer
	boundary string

	// partsWritten counts non-empty chunks written across all parts. The
	// closing boundary is only emitted when at least one chunk was
	// written; an all-empty record is a valid header-only file.
	partsWritten int
}

func newMIMEWriter(w io.Writer, boundary string) *mimeWriter {
	return &mimeWriter{w: w, boundary: boundary}
}

func (m *mimeWriter) writeHeader() error {
	header := "MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/mixed; boundary=" + m.boundary + "\r\n" +
		"X-IronBee-AuditLog: " + auditLogFormatVersion + "\r\n" +
		"\r\n" +
		"This is a multi-part message in MIME format.\r\n" +
		"\r\n"
	if _, err := io.WriteString(m.w, header); err != nil {
		return fmt.Errorf("failed to write audit log header: %v", err)
	}
	return nil
}

func (m *mimeWriter) writePart(p *Part) error {
	head := fmt.Sprintf(
		"\r\n--%s"+
			"\r\nContent-Disposition: audit-log-part; name=%q"+
			"\r\nContent-Transfer-Encoding: binary"+
			"\r\nContent-Type: %s"+
			"\r\n\r\n",
		m.boundary, p.Name, p.ContentType)
	if _, err := io.WriteString(m.w, head); err != nil {
		return fmt.Errorf("failed to write audit log part %q: %v", p.Name, err)
	}

	for {
		chunk := p.produce()
		if chunk == nil {
			return nil
		}
		if len(chunk) == 0 {
			continue
		}
		if _, err := m.w.Write(chunk); err != nil {
			return fmt.Errorf("failed to write audit log part %q: %v", p.Name, err)
		}
		m.partsWritten++
	}
}

func (m *mimeWriter) writeFooter() error {
	if m.partsWritten == 0 {
		return nil
	}
	if _, err := io.WriteString(m.w, "\r\n--"+m.boundary+"--\r\n"); err != nil {
		return fmt.Errorf("failed to write audit log footer: %v", err)
	}
	return nil
}
