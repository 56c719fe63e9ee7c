package auditlog

import (
	"bytes"
	"encoding/json"
	"strconv"

	"ibaudit/waf"
)

// maxHeaderLineLength bounds one rendered header line. An overlong line is
// replaced with a bare CRLF and logged, not treated as fatal.
const maxHeaderLineLength = 8192

// generatorPhase tags the pull cursor of a part. A generator starts in
// notStarted, may hold a cursor into its source between calls, and resets
// to notStarted on the call that returns nil.
type generatorPhase int

const (
	genNotStarted generatorPhase = iota
	genCursor
	genFinished
)

type generatorState struct {
	phase  generatorPhase
	cursor int
}

// genRawStream emits one underlying stream chunk per call, in arrival
// order. An empty or nil stream terminates immediately with no chunks.
func genRawStream(p *Part) []byte {
	stream, _ := p.source.(*waf.Stream)
	var chunks [][]byte
	if stream != nil {
		chunks = stream.Chunks()
	}

	switch p.state.phase {
	case genNotStarted:
		if len(chunks) == 0 {
			return nil
		}
		p.state = generatorState{phase: genCursor, cursor: 0}
		return p.nextStreamChunk(chunks)
	case genCursor:
		return p.nextStreamChunk(chunks)
	default:
		p.state = generatorState{}
		return nil
	}
}

func (p *Part) nextStreamChunk(chunks [][]byte) []byte {
	chunk := chunks[p.state.cursor]
	if p.state.cursor+1 < len(chunks) {
		p.state.cursor++
	} else {
		p.state = generatorState{phase: genFinished}
	}
	if chunk == nil {
		// Preserve the non-terminating meaning of an empty chunk.
		chunk = []byte{}
	}
	return chunk
}

// genJSONFields serializes the whole field list to one JSON object chunk
// on the first call and terminates on the second. JSON encoding is not
// incrementally resumable, so whole-buffer emission is used. An empty list
// yields the literal "{}".
func genJSONFields(p *Part) []byte {
	if p.state.phase != genNotStarted {
		p.state = generatorState{}
		return nil
	}
	p.state = generatorState{phase: genFinished}

	fields, _ := p.source.([]waf.Field)
	return encodeFieldsJSON(fields)
}

func encodeFieldsJSON(fields []waf.Field) []byte {
	if len(fields) == 0 {
		return []byte("{}")
	}

	var b bytes.Buffer
	b.WriteString("{\r\n")
	for i, f := range fields {
		b.WriteString("  ")
		b.Write(jsonString(f.Name))
		b.WriteString(": ")
		b.Write(jsonFieldValue(f))
		if i+1 < len(fields) {
			b.WriteString(",")
		}
		b.WriteString("\r\n")
	}
	b.WriteString("}")
	return b.Bytes()
}

func jsonFieldValue(f waf.Field) []byte {
	switch f.Kind {
	case waf.FieldString:
		return jsonString(f.Str)
	case waf.FieldBytes:
		return jsonString(string(f.Bytes))
	case waf.FieldInt:
		return []byte(strconv.FormatInt(f.Int, 10))
	case waf.FieldUint:
		return []byte(strconv.FormatUint(f.Uint, 10))
	case waf.FieldList:
		var b bytes.Buffer
		b.WriteString("[ ")
		for i, sub := range f.List {
			if i > 0 {
				b.WriteString(", ")
			}
			b.Write(jsonFieldValue(sub))
		}
		b.WriteString(" ]")
		return b.Bytes()
	default:
		return jsonString("-")
	}
}

// jsonString encodes s as a JSON string literal. encoding/json cannot fail
// on a plain string, so errors are ignored.
func jsonString(s string) []byte {
	b, _ := json.Marshal(s)
	return b
}

// genHeaderLines emits one formatted "Name: Value" CRLF line per call. A
// leading raw-bytes field is a request/response start line and is written
// bare, without a name.
func genHeaderLines(p *Part) []byte {
	fields, _ := p.source.([]waf.Field)

	switch p.state.phase {
	case genNotStarted:
		if len(fields) == 0 {
			return nil
		}
		p.advanceHeaderCursor(fields, 0)
		if fields[0].Kind == waf.FieldBytes {
			return p.boundHeaderLine(append(append([]byte{}, fields[0].Bytes...), "\r\n"...))
		}
		return p.headerLine(fields[0])
	case genCursor:
		i := p.state.cursor
		p.advanceHeaderCursor(fields, i)
		return p.headerLine(fields[i])
	default:
		p.state = generatorState{}
		return nil
	}
}

func (p *Part) advanceHeaderCursor(fields []waf.Field, i int) {
	if i+1 < len(fields) {
		p.state = generatorState{phase: genCursor, cursor: i + 1}
	} else {
		p.state = generatorState{phase: genFinished}
	}
}

func (p *Part) headerLine(f waf.Field) []byte {
	line := make([]byte, 0, len(f.Name)+4)
	line = append(line, f.Name...)
	line = append(line, ": "...)
	line = append(line, fieldText(f)...)
	line = append(line, "\r\n"...)
	return p.boundHeaderLine(line)
}

func (p *Part) boundHeaderLine(line []byte) []byte {
	if len(line) > maxHeaderLineLength {
		p.rec.logger.Warn().Str("part", p.Name).Int("length", len(line)).
			Msg("Header line too large to log, replaced with empty line")
		return []byte("\r\n")
	}
	return line
}

func fieldText(f waf.Field) string {
	switch f.Kind {
	case waf.FieldString:
		return f.Str
	case waf.FieldBytes:
		return string(f.Bytes)
	case waf.FieldInt:
		return strconv.FormatInt(f.Int, 10)
	case waf.FieldUint:
		return strconv.FormatUint(f.Uint, 10)
	default:
		return "-"
	}
}

type auditEventEntry struct {
	EventID    uint32   `json:"event-id"`
	RuleID     string   `json:"rule-id"`
	Type       string   `json:"type"`
	RecAction  string   `json:"rec-action"`
	Action     string   `json:"action"`
	Suppress   string   `json:"suppress"`
	Confidence uint8    `json:"confidence"`
	Severity   uint8    `json:"severity"`
	Tags       []string `json:"tags"`
	Fields     []string `json:"fields"`
	Msg        string   `json:"msg"`
	Data       string   `json:"data"`
}

type auditEventList struct {
	Events []auditEventEntry `json:"events"`
}

// genJSONEvents serializes the whole event list to one JSON chunk on the
// first call and terminates on the second. An encoder failure degrades to
// an empty part body rather than aborting the record.
func genJSONEvents(p *Part) []byte {
	if p.state.phase != genNotStarted {
		p.state = generatorState{}
		return nil
	}
	p.state = generatorState{phase: genFinished}

	events, _ := p.source.([]*waf.LogEvent)
	if len(events) == 0 {
		return []byte("{}")
	}

	doc := auditEventList{Events: make([]auditEventEntry, 0, len(events))}
	for _, e := range events {
		entry := auditEventEntry{
			EventID:    e.ID,
			RuleID:     e.RuleID,
			Type:       e.Type.String(),
			RecAction:  e.RecAction.String(),
			Action:     e.Action.String(),
			Suppress:   e.Suppress.String(),
			Confidence: e.Confidence,
			Severity:   e.Severity,
			Tags:       e.Tags,
			Fields:     e.FieldNames,
			Msg:        e.Msg,
			Data:       string(e.Data),
		}
		if entry.RuleID == "" {
			entry.RuleID = "-"
		}
		if entry.Msg == "" {
			entry.Msg = "-"
		}
		if entry.Tags == nil {
			entry.Tags = []string{}
		}
		if entry.Fields == nil {
			entry.Fields = []string{}
		}
		doc.Events = append(doc.Events, entry)
	}

	bb, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		p.rec.logger.Error().Err(err).Str("part", p.Name).
			Msg("Error while marshaling JSON events part")
		p.state = generatorState{}
		return nil
	}
	return bb
}
