package voxagent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommandParserKeywords(t *testing.T) {
	parser := NewCommandParser()
	ctx := context.Background()

	cases := []struct {
		utterance string
		want      Command
	}{
		{"yes", CommandAffirm},
		{"Yes!", CommandAffirm},
		{"that's all", CommandAffirm},
		{"place the order", CommandAffirm},
		{"no", CommandDeny},
		{"not quite", CommandDeny},
		{"cancel", CommandCancel},
		{"never mind", CommandCancel},
		{"goodbye", CommandCancel},
		{"I'd like a large latte", CommandNone},
		{"", CommandNone},
		// Keywords embedded in a longer utterance are not commands.
		{"no onions please", CommandNone},
	}
	for _, tc := range cases {
		got := parser.Parse(ctx, nil, tc.utterance)
		assert.Equal(t, tc.want, got.Command, "utterance %q", tc.utterance)
	}
}

func TestCommandParserSwitchViaAliases(t *testing.T) {
	parser := NewCommandParser()
	schema := testSchema(t)

	got := parser.Parse(context.Background(), schema, "switch to feedback")
	assert.Equal(t, CommandSwitch, got.Command)
	assert.Equal(t, "feedback", got.Target)

	// Switch detection runs before keyword matching.
	got = parser.Parse(context.Background(), schema, "booking")
	assert.Equal(t, CommandSwitch, got.Command)
	assert.Equal(t, "collect", got.Target)
}
