package chat

import (
	"time"

	"agentchat/internal/api"
)

// Sender 对话条目的发送方 / who produced a conversation entry
type Sender string

const (
	SenderUser   Sender = "user"
	SenderAgent  Sender = "agent"
	SenderSystem Sender = "system"
)

// DisplayType 条目的渲染方式 / how an entry is rendered
type DisplayType string

const (
	DisplayText      DisplayType = "text"
	DisplayAgentList DisplayType = "agentList"
)

// SystemName is the agent name carried by system entries.
const SystemName = "System"

// Entry 对话视图中的一条本地记录；与服务端 Message 分开维护
// Entry is one local record in the conversation view, kept apart from server Messages
type Entry struct {
	ID          string
	Text        string
	Sender      Sender
	AgentName   string
	Timestamp   time.Time
	DisplayType DisplayType
	Agents      []api.AgentInfo
}
