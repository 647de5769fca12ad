package pipeline

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChoose(t *testing.T) {
	files := []string{"a.mp4", "b.mp4", "c.mp4"}

	tests := []struct {
		answer string
		want   []string
	}{
		{"0,2\n", []string{"a.mp4", "c.mp4"}},
		{" 1 , x, 7,-1\n", []string{"b.mp4"}},
		{"2,0", []string{"c.mp4", "a.mp4"}},
		{"\n", nil},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		got, err := Choose(strings.NewReader(tt.answer), &out, files, "Select videos to clip:")
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "answer %q", tt.answer)
		assert.Contains(t, out.String(), "1: b.mp4\n")
		assert.Contains(t, out.String(), "Select videos to clip: ")
	}
}

func TestChooseNoFiles(t *testing.T) {
	var out bytes.Buffer
	got, err := Choose(strings.NewReader("0\n"), &out, nil, "Select:")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, "No files found.\n", out.String())
}
