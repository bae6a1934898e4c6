package orchestrator

import (
	"context"
	"strings"
	"sync"

	"agentchat/internal/api"
	"agentchat/internal/auth"
	"agentchat/internal/chat"
	"agentchat/internal/observability"
)

const (
	// FallbackErrorText 错误没有可读信息时的系统提示
	// FallbackErrorText is shown when a failed submission carries no readable message
	FallbackErrorText = "Sorry, an error occurred while processing your request."

	noAgentsText          = "No agents are currently available or an error occurred."
	agentFetchErrorPrefix = "Error fetching agents: "
)

// Orchestrator 串行处理用户提交：代理发现或远端任务
// Orchestrator processes user submissions one at a time, routing each to agent
// discovery or to a remote orchestrator task
type Orchestrator struct {
	tasks    TaskPoster
	agents   AgentRefresher
	sessions Sessions
	history  HistoryView
	account  Account
	log      *chat.Log
	busy     *chat.Busy

	submitMu sync.Mutex
}

func New(opts Options) *Orchestrator {
	log := opts.Log
	if log == nil {
		log = chat.NewLog()
	}
	busy := opts.Busy
	if busy == nil {
		busy = &chat.Busy{}
	}
	return &Orchestrator{
		tasks:    opts.Tasks,
		agents:   opts.Agents,
		sessions: opts.Sessions,
		history:  opts.History,
		account:  opts.Account,
		log:      log,
		busy:     busy,
	}
}

func (o *Orchestrator) Log() *chat.Log   { return o.log }
func (o *Orchestrator) Busy() *chat.Busy { return o.busy }

// Submit 处理一条用户消息。空白文本返回 *api.ValidationError，未登录返回
// auth.ErrNotAuthenticated，两者都不产生条目也不发请求；
// 其余情况先追加用户条目，再追加恰好一条结果条目。远端失败同时以系统条目展示并返回
// Submit processes one user message. Blank text returns *api.ValidationError and a
// signed-out account returns auth.ErrNotAuthenticated; neither adds entries or touches
// the network. Otherwise the user entry is appended followed by exactly one outcome
// entry. Remote failures are shown as a system entry and also returned.
func (o *Orchestrator) Submit(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return &api.ValidationError{Field: "text", Message: "Message text is empty."}
	}
	if o.account == nil || !o.account.IsAuthenticated() {
		return auth.ErrNotAuthenticated
	}

	o.submitMu.Lock()
	defer o.submitMu.Unlock()

	o.busy.Set(true)
	defer o.busy.Set(false)

	o.log.AddUser(text)

	if IsDiscovery(text) {
		o.discover(ctx)
		return nil
	}
	return o.runTask(ctx, text)
}

// ClearConversation 清空对话视图并回到无会话状态
// ClearConversation empties the conversation view and returns to the no-session state
func (o *Orchestrator) ClearConversation() {
	o.log.Clear()
	if o.sessions != nil {
		o.sessions.Clear()
	}
}

func (o *Orchestrator) discover(ctx context.Context) {
	var (
		agents []api.AgentInfo
		err    error
	)
	if o.agents != nil {
		agents, err = o.agents.Refresh(ctx)
	}
	if len(agents) > 0 {
		o.log.AddAgentList(agents)
		return
	}

	msg := ""
	if o.agents != nil {
		msg = o.agents.LastError()
	}
	if msg == "" && err != nil {
		msg = api.ErrorText(err, "")
	}
	if msg != "" {
		observability.Logger().Warn("agent discovery failed", "error", msg)
		o.log.AddSystem(agentFetchErrorPrefix + msg)
		return
	}
	o.log.AddSystem(noAgentsText)
}

func (o *Orchestrator) runTask(ctx context.Context, text string) error {
	sessionID := ""
	if o.sessions != nil {
		sessionID, _ = o.sessions.Current()
	}

	task, err := o.tasks.PostTask(ctx, api.NewTaskRequest(text, sessionID))
	if err != nil {
		observability.LoggerFromContext(ctx).Warn("task submission failed", "error", err)
		o.log.AddSystem(api.ErrorText(err, FallbackErrorText))
		return err
	}

	if task != nil && task.SessionID != "" && o.sessions != nil {
		if o.sessions.Adopt(task.SessionID) {
			observability.Logger().Info("adopted session", "session_id", task.SessionID)
		}
	}

	out := Interpret(task)
	if out.Sender == chat.SenderAgent {
		o.log.AddAgent(out.Text, out.AgentName)
	} else {
		o.log.AddSystem(out.Text)
	}
	return nil
}
