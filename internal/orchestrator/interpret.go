package orchestrator

import (
	"fmt"
	"strings"

	"agentchat/internal/api"
	"agentchat/internal/chat"
)

const (
	taskStateCompleted = "completed"
	taskStateFailed    = "failed"

	defaultAgentName = "Agent"
)

// Interpretation 一个任务信封物化成的单条对话条目
// Interpretation is the single conversation entry a task envelope materializes into
type Interpretation struct {
	Sender    chat.Sender
	Text      string
	AgentName string
}

type statusRule struct {
	name    string
	applies func(t *api.Task, output string) bool
	build   func(t *api.Task, output string) Interpretation
}

// statusRules 按顺序求值，第一条命中的规则生效；最后一条总是命中
// statusRules are evaluated in order and the first match wins; the last rule always matches
var statusRules = []statusRule{
	{
		name: "completed-with-output",
		applies: func(t *api.Task, output string) bool {
			return t.Status.State == taskStateCompleted && output != ""
		},
		build: func(t *api.Task, output string) Interpretation {
			return Interpretation{
				Sender:    chat.SenderAgent,
				Text:      output,
				AgentName: ResolveAgentName(t.ResponseMessage),
			}
		},
	},
	{
		name: "failed",
		applies: func(t *api.Task, _ string) bool {
			return t.Status.State == taskStateFailed
		},
		build: func(t *api.Task, _ string) Interpretation {
			return systemInterpretation(fmt.Sprintf("Task %s failed. %s",
				orDefault(t.ID, "unknown"),
				orDefault(t.Status.Message, "No specific error details.")))
		},
	},
	{
		name: "completed-without-output",
		applies: func(t *api.Task, _ string) bool {
			return t.Status.State == taskStateCompleted
		},
		build: func(t *api.Task, _ string) Interpretation {
			return systemInterpretation(fmt.Sprintf("Task %s completed but no output was provided.",
				orDefault(t.ID, "unknown")))
		},
	},
	{
		name:    "pending",
		applies: func(*api.Task, string) bool { return true },
		build: func(t *api.Task, _ string) Interpretation {
			return systemInterpretation(fmt.Sprintf("Task %s status: %s. %s",
				orDefault(t.ID, "unknown"),
				orDefault(t.Status.State, "unknown"),
				orDefault(t.Status.Message, "Waiting for result...")))
		},
	},
}

// agentNameKeys 响应元数据中代理名的查找顺序
// agentNameKeys is the lookup order for the agent name in response metadata
var agentNameKeys = []string{"source_agent_name", "agent_name", "agent_id"}

// Interpret 将任务信封映射为恰好一条条目
// Interpret maps a task envelope to exactly one entry
func Interpret(t *api.Task) Interpretation {
	if t == nil {
		t = &api.Task{}
	}
	output := t.ResponseMessage.FirstText()
	for _, rule := range statusRules {
		if rule.applies(t, output) {
			return rule.build(t, output)
		}
	}
	// unreachable: the last rule always applies
	return systemInterpretation("")
}

// ResolveAgentName 取第一个非空的元数据值，否则为 "Agent"
// ResolveAgentName returns the first non-empty metadata value, or "Agent"
func ResolveAgentName(msg *api.TaskMessage) string {
	for _, key := range agentNameKeys {
		if v := msg.MetadataString(key); v != "" {
			return v
		}
	}
	return defaultAgentName
}

func systemInterpretation(text string) Interpretation {
	return Interpretation{Sender: chat.SenderSystem, Text: text, AgentName: chat.SystemName}
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
