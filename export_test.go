package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSession(t *testing.T) *Session {
	t.Helper()
	schedule := twoStepSchedule()
	script, excluded, err := Compile(schedule, []string{"E1", "E2", "E3"}, DefaultStatusColors)
	require.NoError(t, err)
	return &Session{Schedule: schedule, Index: NewStepIndex(schedule), Script: script, Excluded: excluded}
}

func TestExportFormat(t *testing.T) {
	assert.Equal(t, "cbor", exportFormat("out/script.cbor"))
	assert.Equal(t, "cbor", exportFormat("SCRIPT.CBOR"))
	assert.Equal(t, "json", exportFormat("script.json"))
	assert.Equal(t, "json", exportFormat("script"))
}

func TestExportSessionJSON(t *testing.T) {
	session := testSession(t)

	var buf bytes.Buffer
	digest, err := ExportSession(&buf, session, "json")
	require.NoError(t, err)

	want, err := session.Script.Digest()
	require.NoError(t, err)
	assert.Equal(t, want, digest)

	var doc exportDocument
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, session.Script.Models, doc.Script)
	assert.Equal(t, []string{"E3"}, doc.Excluded)
	assert.Equal(t, digest, doc.Digest)
}

func TestExportSessionCBORIsDeterministic(t *testing.T) {
	var first, second bytes.Buffer
	_, err := ExportSession(&first, testSession(t), "cbor")
	require.NoError(t, err)
	_, err = ExportSession(&second, testSession(t), "cbor")
	require.NoError(t, err)
	assert.Equal(t, first.Bytes(), second.Bytes())

	var doc exportDocument
	require.NoError(t, cbor.Unmarshal(first.Bytes(), &doc))
	require.Len(t, doc.Script, 1)
	assert.Equal(t, "M1", doc.Script[0].ModelID)
	assert.Equal(t, []string{"E3"}, doc.Excluded)
}

func TestExportSessionEmptyExcluded(t *testing.T) {
	session := testSession(t)
	session.Excluded = nil

	var buf bytes.Buffer
	_, err := ExportSession(&buf, session, "json")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"excluded": []`)
}

func TestExportSessionUnknownFormat(t *testing.T) {
	_, err := ExportSession(&bytes.Buffer{}, testSession(t), "xml")
	assert.Error(t, err)
}
