package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAcademyServer(t *testing.T) {
	s := NewAcademyServer(AcademyServerDeps{})
	require.NotNil(t, s)
	assert.NotNil(t, s.mcpServer)
	assert.NotNil(t, s.logger)
	assert.NotNil(t, s.notifier)
}

func TestToolRegistration(t *testing.T) {
	s := NewAcademyServer(AcademyServerDeps{})

	tools := s.mcpServer.ListTools()
	require.Len(t, tools, 7)

	expectedTools := []string{
		"academy.kits",
		"academy.lesson",
		"academy.step",
		"academy.progress",
		"academy.query",
		"academy.session",
		"academy.diagram",
	}
	for _, name := range expectedTools {
		tool := s.mcpServer.GetTool(name)
		assert.NotNil(t, tool, "tool %s should be registered", name)
	}
}

func TestToolDefinitions(t *testing.T) {
	tests := []struct {
		name        string
		toolName    string
		description string
	}{
		{"kits", "academy.kits", "List hardware kits with their lessons"},
		{"lesson", "academy.lesson", "Get a lesson with its ordered steps"},
		{"step", "academy.step", "Render one step of a lesson as the lesson player shows it"},
		{"progress", "academy.progress", "Get a learner's level, XP and lesson states for a kit"},
		{"session", "academy.session", "Drive a learner's lesson session"},
	}

	s := NewAcademyServer(AcademyServerDeps{})

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tool := s.mcpServer.GetTool(tc.toolName)
			require.NotNil(t, tool)
			assert.Equal(t, tc.description, tool.Tool.Description)
		})
	}
}
