package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memohai/mbot/internal/conversation"
)

func TestVersionCommand(t *testing.T) {
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())
	assert.Equal(t, "mbot dev\n", out.String())
}

func TestPrintSummaries(t *testing.T) {
	var out bytes.Buffer
	updated := time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC)
	require.NoError(t, printSummaries(&out, []conversation.Summary{
		{SenderID: "psid-1", MessageCount: 2, HistoryPreview: "user: hello", UpdatedAt: updated},
	}))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "SENDER"))
	assert.Contains(t, lines[1], "psid-1")
	assert.Contains(t, lines[1], "2026-01-02 03:04")
	assert.Contains(t, lines[1], "user: hello")
}

func TestConversationsCommandRequiresSender(t *testing.T) {
	root := newRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"conversations", "show"})
	assert.Error(t, root.Execute())
}
