package shellseq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectExtractor() (*Extractor, *[]string, *[]byte) {
	var payloads []string
	var output []byte
	e := NewExtractor(
		func(p string) { payloads = append(payloads, p) },
		func(b []byte) { output = append(output, b...) },
	)
	return e, &payloads, &output
}

func osc(payload string) []byte {
	return append(append([]byte{byteESC, ']'}, []byte("633;"+payload)...), byteBEL)
}

func TestExtractorIsolatesPayload(t *testing.T) {
	e, payloads, output := collectExtractor()

	e.Feed([]byte("hello "))
	e.Feed(osc("A"))
	e.Feed([]byte("world"))

	require.Equal(t, []string{"A"}, *payloads)
	assert.Equal(t, "hello world", string(*output))
}

func TestExtractorStTerminator(t *testing.T) {
	e, payloads, _ := collectExtractor()

	seq := append([]byte{byteESC, ']'}, []byte("633;D;0")...)
	seq = append(seq, byteESC, '\\')
	e.Feed(seq)

	assert.Equal(t, []string{"D;0"}, *payloads)
}

func TestExtractorSequenceSplitAcrossReads(t *testing.T) {
	e, payloads, output := collectExtractor()

	full := append([]byte("a"), osc("E;echo hi")...)
	full = append(full, 'b')

	// Feed one byte at a time to exercise every split point.
	for _, b := range full {
		e.Feed([]byte{b})
	}

	require.Equal(t, []string{"E;echo hi"}, *payloads)
	assert.Equal(t, "ab", string(*output))
}

func TestExtractorForeignOSCPassesThrough(t *testing.T) {
	e, payloads, output := collectExtractor()

	title := append(append([]byte{byteESC, ']'}, []byte("0;my title")...), byteBEL)
	e.Feed(title)

	assert.Empty(t, *payloads)
	assert.Equal(t, string(title), string(*output))
}

func TestExtractorNonOSCEscapePassesThrough(t *testing.T) {
	e, payloads, output := collectExtractor()

	// CSI color sequence, common in shell output.
	csi := []byte{byteESC, '[', '3', '1', 'm'}
	e.Feed(csi)

	assert.Empty(t, *payloads)
	assert.Equal(t, string(csi), string(*output))
}

func TestExtractorBackToBackSequences(t *testing.T) {
	e, payloads, _ := collectExtractor()

	stream := append(osc("A"), osc("B")...)
	stream = append(stream, osc("E;ls")...)
	e.Feed(stream)

	assert.Equal(t, []string{"A", "B", "E;ls"}, *payloads)
}

func TestExtractorUnterminatedSequenceFlushes(t *testing.T) {
	e, payloads, output := collectExtractor()

	junk := append([]byte{byteESC, ']'}, []byte("633;")...)
	for len(junk) < maxSequenceLen+10 {
		junk = append(junk, 'x')
	}
	e.Feed(junk)

	assert.Empty(t, *payloads)
	assert.NotEmpty(t, *output, "overlong candidate should be released raw")
}

func TestExtractorDoubleEscape(t *testing.T) {
	e, payloads, output := collectExtractor()

	stream := []byte{byteESC, byteESC, ']'}
	stream = append(stream, []byte("633;A")...)
	stream = append(stream, byteBEL)
	e.Feed(stream)

	require.Equal(t, []string{"A"}, *payloads)
	assert.Equal(t, string([]byte{byteESC}), string(*output))
}
