package shellseq

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitPayload(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    []string
	}{
		{"opcode only", "A", []string{"A"}},
		{"opcode with field", "D;0", []string{"D", "0"}},
		{"command with semicolons", "E;echo a; echo b", []string{"E", "echo a", " echo b"}},
		{"empty", "", []string{""}},
		{"trailing delimiter", "D;", []string{"D", ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitPayload(tt.payload))
		})
	}
}

func TestParseProperty(t *testing.T) {
	key, value := ParseProperty("Cwd=/tmp/build")
	assert.Equal(t, "Cwd", key)
	assert.Equal(t, "/tmp/build", value)

	key, value = ParseProperty("Cwd=/with=equals")
	assert.Equal(t, "Cwd", key)
	assert.Equal(t, "/with=equals", value)

	key, value = ParseProperty("no-equals")
	assert.Empty(t, key)
	assert.Empty(t, value)
}
