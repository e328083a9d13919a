package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuild_ModelOverridePriority(t *testing.T) {
	s := Build(
		AgentOverrides{Model: "agent-model"},
		UserDefaults{DefaultModel: "user-model"},
		"override-model",
	)
	assert.Equal(t, "override-model", s.Model)
}

func TestBuild_ModelFallsBackToAgentThenUser(t *testing.T) {
	s := Build(AgentOverrides{Model: "agent-model"}, UserDefaults{DefaultModel: "user-model"}, "")
	assert.Equal(t, "agent-model", s.Model)

	s = Build(AgentOverrides{}, UserDefaults{DefaultModel: "user-model"}, "")
	assert.Equal(t, "user-model", s.Model)
}

func TestBuild_AllowedToolsFallsBackToUser(t *testing.T) {
	s := Build(AgentOverrides{}, UserDefaults{AllowedTools: []string{"Read"}}, "")
	assert.Equal(t, []string{"Read"}, s.AllowedTools)

	s = Build(AgentOverrides{AllowedTools: []string{"Write"}}, UserDefaults{AllowedTools: []string{"Read"}}, "")
	assert.Equal(t, []string{"Write"}, s.AllowedTools)
}

func TestBuild_PlanModeOverridesPermissionMode(t *testing.T) {
	s := Build(AgentOverrides{PlanMode: true}, UserDefaults{PermissionMode: "auto_all"}, "")
	assert.Equal(t, "plan", s.PermissionMode)
}

func TestBuild_PermissionModeMapping(t *testing.T) {
	cases := map[string]string{
		"ask":       "default",
		"auto_read": "acceptEdits",
		"auto_all":  "bypassPermissions",
		"delegate":  "delegate",
		"dont_ask":  "dontAsk",
	}
	for ui, cli := range cases {
		s := Build(AgentOverrides{}, UserDefaults{PermissionMode: ui}, "")
		assert.Equal(t, cli, s.PermissionMode, "ui mode %q", ui)
	}
}

func TestBuild_UnknownPermissionModePassesThrough(t *testing.T) {
	s := Build(AgentOverrides{}, UserDefaults{PermissionMode: "something_else"}, "")
	assert.Equal(t, "something_else", s.PermissionMode)
}

func TestBuild_NoPermissionModeWhenUnset(t *testing.T) {
	s := Build(AgentOverrides{}, UserDefaults{}, "")
	assert.Equal(t, "", s.PermissionMode)
}

func TestBuild_BudgetAgentOverridesUser(t *testing.T) {
	userBudget := 10.0
	s := Build(AgentOverrides{}, UserDefaults{MaxBudgetUSD: &userBudget}, "")
	assert.Equal(t, &userBudget, s.MaxBudgetUSD)

	agentBudget := 3.0
	s = Build(AgentOverrides{MaxBudgetUSD: &agentBudget}, UserDefaults{MaxBudgetUSD: &userBudget}, "")
	assert.Equal(t, &agentBudget, s.MaxBudgetUSD)
}

func TestBuild_IncludePartialMessagesDefaultsTrue(t *testing.T) {
	s := Build(AgentOverrides{}, UserDefaults{}, "")
	assert.True(t, s.IncludePartialMessages)

	off := false
	s = Build(AgentOverrides{IncludePartialMessages: &off}, UserDefaults{}, "")
	assert.False(t, s.IncludePartialMessages)
}

func TestBuild_FallbackModelAgentOverridesUser(t *testing.T) {
	s := Build(AgentOverrides{}, UserDefaults{FallbackModel: "user-fallback"}, "")
	assert.Equal(t, "user-fallback", s.FallbackModel)

	s = Build(AgentOverrides{FallbackModel: "agent-fallback"}, UserDefaults{FallbackModel: "user-fallback"}, "")
	assert.Equal(t, "agent-fallback", s.FallbackModel)
}
