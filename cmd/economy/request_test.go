package main

import (
	"testing"

	"github.com/fadedpez/contrast/internal/bot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRequest(t *testing.T) {
	testCases := []struct {
		name     string
		command  string
		args     []string
		expected bot.Request
	}{
		{
			name:     "balance acts as the user",
			command:  "balance",
			args:     []string{"u1"},
			expected: bot.Request{UserID: "u1", Name: "balance", Args: []string{}},
		},
		{
			name:     "transfer sends from the first user",
			command:  "transfer",
			args:     []string{"u1", "u2", "50"},
			expected: bot.Request{UserID: "u1", Name: "transfer", Args: []string{"u2", "50"}},
		},
		{
			name:     "grant runs as the operator",
			command:  "grant",
			args:     []string{"u1", "100", "bonus"},
			expected: bot.Request{UserID: operatorID, Name: "grant", Args: []string{"u1", "100", "bonus"}},
		},
		{
			name:     "leaderboard without arguments",
			command:  "leaderboard",
			expected: bot.Request{UserID: operatorID, Name: "leaderboard"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req, err := buildRequest(tc.command, tc.args)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, req)
		})
	}
}

func TestBuildRequestErrors(t *testing.T) {
	_, err := buildRequest("coinflip", nil)
	assert.Error(t, err)

	_, err = buildRequest("roulette", []string{"u1"})
	assert.Error(t, err)
}
