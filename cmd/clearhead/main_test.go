package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCmd  string
		wantArgs []string
	}{
		{"run", []string{"run", "in.json", "out.json"}, "run", []string{"in.json", "out.json"}},
		{"positional shorthand", []string{"in.json", "out.json"}, "run", []string{"in.json", "out.json"}},
		{"train", []string{"train"}, "train", nil},
		{"serve", []string{"serve"}, "serve", nil},
		{"no args", nil, "", nil},
		{"run missing output", []string{"run", "in.json"}, "", nil},
		{"train extra arg", []string{"train", "now"}, "", nil},
		{"single path", []string{"in.json"}, "", nil},
		{"too many paths", []string{"a", "b", "c"}, "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, args := parseCommand(tt.args)
			assert.Equal(t, tt.wantCmd, cmd)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}
