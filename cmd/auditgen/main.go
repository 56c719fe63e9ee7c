package main

import (
	"flag"
	"fmt"
	"io/ioutil"
	"math/rand"
	"os"
	"time"

	"ibaudit/auditlog"
	"ibaudit/config"
	"ibaudit/waf"

	"github.com/rs/zerolog"
	yaml "gopkg.in/yaml.v3"
)

type headerDoc struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

type eventDoc struct {
	ID         uint32   `yaml:"id"`
	RuleID     string   `yaml:"rule_id"`
	Type       string   `yaml:"type"`
	Action     string   `yaml:"action"`
	Confidence uint8    `yaml:"confidence"`
	Severity   uint8    `yaml:"severity"`
	Tags       []string `yaml:"tags"`
	Msg        string   `yaml:"msg"`
}

type messageDoc struct {
	Line    string      `yaml:"line"`
	Headers []headerDoc `yaml:"headers"`
	Body    string      `yaml:"body"`
}

type txDoc struct {
	ID         string     `yaml:"id"`
	RemoteAddr string     `yaml:"remote_addr"`
	RemotePort int        `yaml:"remote_port"`
	LocalAddr  string     `yaml:"local_addr"`
	LocalPort  int        `yaml:"local_port"`
	Hostname   string     `yaml:"hostname"`
	Method     string     `yaml:"method"`
	Path       string     `yaml:"path"`
	Protocol   string     `yaml:"protocol"`
	Request    messageDoc `yaml:"request"`
	Response   messageDoc `yaml:"response"`
	Events     []eventDoc `yaml:"events"`
}

// Dependency injection composition root
func main() {
	logLevel := flag.String("loglevel", "info", "sets log level. Can be one of: debug, info, warn, error, fatal, panic.")
	configFile := flag.String("config", "", "audit configuration YAML file")
	txFile := flag.String("tx", "", "transaction fixture YAML file to audit log")
	flag.Parse()

	loglevel, _ := zerolog.ParseLevel(*logLevel)
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).Level(loglevel).With().Timestamp().Caller().Logger()

	rand.Seed(time.Now().UnixNano())

	if *configFile == "" || *txFile == "" {
		logger.Fatal().Msg("Both -config and -tx are required")
	}

	cfg, err := config.LoadAuditConfig(*configFile)
	if err != nil {
		logger.Fatal().Err(err).Str("file", *configFile).Msg("Failed to load audit config")
	}

	tx, err := loadTransaction(*txFile)
	if err != nil {
		logger.Fatal().Err(err).Str("file", *txFile).Msg("Failed to load transaction fixture")
	}

	hostname, _ := os.Hostname()
	sensor := &waf.Sensor{
		ID:       "auditgen",
		Name:     "auditgen",
		Version:  "1.0",
		Hostname: hostname,
	}

	writer, err := auditlog.NewWriter(logger, &auditlog.OSFileSystem{}, &cfg, sensor)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create audit log writer")
	}

	writer.LogTransaction(tx, nil)
}

func loadTransaction(filename string) (*waf.Transaction, error) {
	bb, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	var doc txDoc
	if err := yaml.Unmarshal(bb, &doc); err != nil {
		return nil, fmt.Errorf("invalid transaction fixture: %v", err)
	}

	now := time.Now()
	tx := &waf.Transaction{
		ID:               doc.ID,
		TxNum:            1,
		RemoteAddr:       doc.RemoteAddr,
		RemotePort:       doc.RemotePort,
		LocalAddr:        doc.LocalAddr,
		LocalPort:        doc.LocalPort,
		Hostname:         doc.Hostname,
		Method:           doc.Method,
		Path:             doc.Path,
		Protocol:         doc.Protocol,
		RequestLine:      doc.Request.Line,
		ResponseLine:     doc.Response.Line,
		Created:          now,
		RequestStarted:   now,
		ResponseFinished: now,
	}
	if tx.ID == "" {
		tx.ID = waf.NewTransactionID()
	}

	for _, h := range doc.Request.Headers {
		tx.RequestHeaders = append(tx.RequestHeaders, waf.NewStringField(h.Name, h.Value))
	}
	for _, h := range doc.Response.Headers {
		tx.ResponseHeaders = append(tx.ResponseHeaders, waf.NewStringField(h.Name, h.Value))
	}

	if doc.Request.Body != "" {
		tx.RequestBody = &waf.Stream{}
		tx.RequestBody.Append([]byte(doc.Request.Body))
	}
	if doc.Response.Body != "" {
		tx.ResponseBody = &waf.Stream{}
		tx.ResponseBody.Append([]byte(doc.Response.Body))
	}

	for _, e := range doc.Events {
		tx.Events = append(tx.Events, &waf.LogEvent{
			ID:         e.ID,
			RuleID:     e.RuleID,
			Type:       parseEventType(e.Type),
			RecAction:  parseEventAction(e.Action),
			Action:     parseEventAction(e.Action),
			Confidence: e.Confidence,
			Severity:   e.Severity,
			Tags:       e.Tags,
			Msg:        e.Msg,
		})
	}

	return tx, nil
}

func parseEventType(s string) waf.EventType {
	switch s {
	case "Observation":
		return waf.EventTypeObservation
	case "Alert":
		return waf.EventTypeAlert
	default:
		return waf.EventTypeUnknown
	}
}

func parseEventAction(s string) waf.EventAction {
	switch s {
	case "Log":
		return waf.EventActionLog
	case "Block":
		return waf.EventActionBlock
	case "Ignore":
		return waf.EventActionIgnore
	case "Allow":
		return waf.EventActionAllow
	default:
		return waf.EventActionUnknown
	}
}
