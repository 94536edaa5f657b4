package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePair(t *testing.T) {
	tests := []struct {
		name   string
		a, b   string
		wantLo string
		wantHi string
	}{
		{"already ordered", "alice", "bob", "alice", "bob"},
		{"reversed", "bob", "alice", "alice", "bob"},
		{"numeric ids", "42", "17", "17", "42"},
		{"hex object ids", "66f0a1", "65e9b2", "65e9b2", "66f0a1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lo, hi := NormalizePair(tt.a, tt.b)
			assert.Equal(t, tt.wantLo, lo)
			assert.Equal(t, tt.wantHi, hi)

			// symmetry: argument order never matters
			lo2, hi2 := NormalizePair(tt.b, tt.a)
			assert.Equal(t, lo, lo2)
			assert.Equal(t, hi, hi2)
		})
	}
}

func TestConversationCounterpart(t *testing.T) {
	conv := Conversation{ParticipantA: "1", ParticipantB: "2"}

	assert.Equal(t, "2", conv.Counterpart("1"))
	assert.Equal(t, "1", conv.Counterpart("2"))

	assert.True(t, conv.HasParticipant("1"))
	assert.True(t, conv.HasParticipant("2"))
	assert.False(t, conv.HasParticipant("3"))
}

func TestMessagePreview(t *testing.T) {
	text := Message{Type: MessageTypeText, Body: "results are in"}
	assert.Equal(t, "results are in", text.Preview())

	image := Message{Type: MessageTypeImage}
	assert.Equal(t, "[image]", image.Preview())

	file := Message{Type: MessageTypeFile, File: &FileInfo{FileName: "report.pdf"}}
	assert.Equal(t, "report.pdf", file.Preview())

	fileNoInfo := Message{Type: MessageTypeFile}
	assert.Equal(t, "[file]", fileNoInfo.Preview())
}

func TestValidType(t *testing.T) {
	assert.True(t, ValidType(MessageTypeText))
	assert.True(t, ValidType(MessageTypeImage))
	assert.True(t, ValidType(MessageTypeFile))
	assert.False(t, ValidType("video"))
	assert.False(t, ValidType(""))
}
