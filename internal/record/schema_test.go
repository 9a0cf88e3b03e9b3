package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const auditSchema = `{
	"type": "object",
	"required": ["score", "flags", "summary"],
	"properties": {
		"score":   {"type": "integer", "minimum": 1, "maximum": 100},
		"flags":   {"type": "array", "items": {"type": "string"}},
		"summary": {"type": "string"}
	}
}`

func TestSchema_ValidRecord(t *testing.T) {
	s, err := CompileSchema(auditSchema)
	require.NoError(t, err)

	err = s.Validate(Record{
		"score":   72,
		"flags":   []any{"low_revenue"},
		"summary": "Audit score: 72/100",
	})
	assert.NoError(t, err)
}

func TestSchema_MissingRequiredKey(t *testing.T) {
	s := MustCompileSchema(auditSchema)

	err := s.Validate(Record{"score": 72, "flags": []any{}})
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Failures, 1)
	assert.Contains(t, verr.Error(), "summary")
}

func TestSchema_OutOfRangeScore(t *testing.T) {
	s := MustCompileSchema(auditSchema)

	err := s.Validate(Record{"score": 140, "flags": []any{}, "summary": "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "score")
}

func TestCompileSchema_BadDocument(t *testing.T) {
	_, err := CompileSchema(`{"type": ["not", 42]}`)
	assert.Error(t, err)
}
