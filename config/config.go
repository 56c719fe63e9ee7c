// Package config loads audit logging configuration from YAML documents and
// maps it onto the waf.AuditConfig consumed by the audit writer.
package config

import (
	"fmt"
	"io/ioutil"
	"os"
	"strconv"
	"strings"

	"ibaudit/waf"

	yaml "gopkg.in/yaml.v3"
)

// auditDoc is the YAML shape of the audit section.
type auditDoc struct {
	Mode         string   `yaml:"mode"`
	BaseDir      string   `yaml:"base_dir"`
	SubdirFormat string   `yaml:"subdir_format"`
	DirMode      string   `yaml:"dir_mode"`
	FileMode     string   `yaml:"file_mode"`
	Index        string   `yaml:"index"`
	IndexFormat  string   `yaml:"index_format"`
	Parts        []string `yaml:"parts"`
}

var partNames = map[string]waf.AuditParts{
	"header":           waf.AuditPartHeader,
	"events":           waf.AuditPartEvents,
	"requestmetadata":  waf.AuditPartRequestMetadata,
	"requestheader":    waf.AuditPartRequestHeader,
	"requestbody":      waf.AuditPartRequestBody,
	"requesttrailer":   waf.AuditPartRequestTrailer,
	"responsemetadata": waf.AuditPartResponseMetadata,
	"responseheader":   waf.AuditPartResponseHeader,
	"responsebody":     waf.AuditPartResponseBody,
	"responsetrailer":  waf.AuditPartResponseTrailer,
	"debugfields":      waf.AuditPartDebugFields,
	"default":          waf.AuditPartsDefault,
	"all":              waf.AuditPartsAll,
	"request":          waf.AuditPartsRequest,
	"response":         waf.AuditPartsResponse,
}

// LoadAuditConfig reads a YAML audit configuration file. Absent keys keep
// their defaults.
func LoadAuditConfig(filename string) (waf.AuditConfig, error) {
	cfg := waf.DefaultAuditConfig()

	bb, err := ioutil.ReadFile(filename)
	if err != nil {
		return cfg, err
	}
	return ParseAuditConfig(bb)
}

// ParseAuditConfig parses a YAML audit configuration document.
func ParseAuditConfig(bb []byte) (waf.AuditConfig, error) {
	cfg := waf.DefaultAuditConfig()

	var doc auditDoc
	if err := yaml.Unmarshal(bb, &doc); err != nil {
		return cfg, fmt.Errorf("invalid audit config: %v", err)
	}

	if doc.Mode != "" {
		mode, err := parseMode(doc.Mode)
		if err != nil {
			return cfg, err
		}
		cfg.Mode = mode
	}
	if doc.BaseDir != "" {
		cfg.BaseDir = doc.BaseDir
	}
	cfg.SubdirFormat = doc.SubdirFormat
	if doc.DirMode != "" {
		mode, err := parseFileMode(doc.DirMode)
		if err != nil {
			return cfg, err
		}
		cfg.DirMode = mode
	}
	if doc.FileMode != "" {
		mode, err := parseFileMode(doc.FileMode)
		if err != nil {
			return cfg, err
		}
		cfg.FileMode = mode
	}
	cfg.Index = doc.Index
	cfg.IndexFormat = doc.IndexFormat
	if len(doc.Parts) > 0 {
		parts, err := parseParts(doc.Parts)
		if err != nil {
			return cfg, err
		}
		cfg.Parts = parts
	}

	return cfg, nil
}

func parseMode(s string) (waf.AuditMode, error) {
	switch strings.ToLower(s) {
	case "off":
		return waf.AuditModeOff, nil
	case "on":
		return waf.AuditModeOn, nil
	case "relevantonly":
		return waf.AuditModeRelevantOnly, nil
	default:
		return waf.AuditModeOff, fmt.Errorf("invalid audit mode %q", s)
	}
}

func parseFileMode(s string) (os.FileMode, error) {
	n, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid mode bits %q", s)
	}
	return os.FileMode(n), nil
}

func parseParts(names []string) (waf.AuditParts, error) {
	var parts waf.AuditParts
	for _, name := range names {
		p, ok := partNames[strings.ToLower(name)]
		if !ok {
			return 0, fmt.Errorf("invalid audit log part %q", name)
		}
		parts |= p
	}
	return parts, nil
}
