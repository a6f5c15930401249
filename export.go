package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// exportDocument is the on-disk form of a compiled session
type exportDocument struct {
	Script   []ModelTimeline `json:"script"`
	Excluded []string        `json:"excluded"`
	Digest   string          `json:"digest"`
}

// cborEncMode uses Core Deterministic Encoding so identical sessions
// produce identical bytes
var cborEncMode = func() cbor.EncMode {
	mode, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("cbor: encoder initialization failed: " + err.Error())
	}
	return mode
}()

// exportFormat picks the encoding from the output file extension
func exportFormat(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".cbor") {
		return "cbor"
	}
	return "json"
}

// ExportSession writes the compiled script and excluded set to w in the
// given format ("json" or "cbor") and returns the script digest.
func ExportSession(w io.Writer, session *Session, format string) (string, error) {
	digest, err := session.Script.Digest()
	if err != nil {
		return "", err
	}

	doc := exportDocument{
		Script:   session.Script.Models,
		Excluded: session.Excluded,
		Digest:   digest,
	}
	if doc.Excluded == nil {
		doc.Excluded = []string{}
	}

	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(doc); err != nil {
			return "", fmt.Errorf("failed to encode JSON: %w", err)
		}
	case "cbor":
		data, err := cborEncMode.Marshal(doc)
		if err != nil {
			return "", fmt.Errorf("failed to encode CBOR: %w", err)
		}
		if _, err := w.Write(data); err != nil {
			return "", fmt.Errorf("failed to write CBOR: %w", err)
		}
	default:
		return "", fmt.Errorf("unknown export format %q", format)
	}
	return digest, nil
}
