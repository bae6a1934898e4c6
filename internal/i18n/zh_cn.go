package i18n

// ZhCNMessages 简体中文消息目录
var ZhCNMessages = Catalog{
	// UI - 面板标题
	"panel.chat":    "对话",
	"panel.history": "历史",

	// UI - 侧栏
	"sidebar.account": "账户",
	"sidebar.session": "会话",
	"sidebar.agents":  "代理",
	"sidebar.history": "历史",

	// UI - 状态栏
	"status.server":    "服务",
	"status.ready":     "就绪",
	"status.busy":      "等待编排器响应...",
	"status.loading":   "正在加载历史...",
	"status.signed_in": "已登录",
	"status.guest":     "未登录",
	"status.cancelled": "请求已取消",

	// UI - 输入
	"input.placeholder": "输入消息或 /help（Alt+Enter 换行）",
	"input.submit_hint": "Enter 发送",

	// UI - 快捷键
	"keys.tab":    "tab 面板",
	"keys.esc":    "esc 取消",
	"keys.ctrl_l": "ctrl+l 清空",

	// 提示
	"prompt.email":        "邮箱：",
	"prompt.password":     "密码：",
	"prompt.display_name": "显示名称（可选）：",
	"prompt.form_hint":    "enter 下一项 · esc 取消",

	// 命令
	"cmd.header":   "命令：",
	"cmd.help":     "显示可用命令",
	"cmd.login":    "登录",
	"cmd.signup":   "注册账户",
	"cmd.logout":   "登出并忘记会话",
	"cmd.whoami":   "显示当前用户",
	"cmd.agents":   "列出可用代理",
	"cmd.sessions": "列出会话",
	"cmd.new":      "创建新会话",
	"cmd.use":      "切换会话",
	"cmd.delete":   "删除会话",
	"cmd.history":  "显示当前会话的近期历史",
	"cmd.clear":    "清空对话并离开会话",
	"cmd.exit":     "退出",
	"cmd.unknown":  "未知命令：/%s（试试 /help）",
	"cmd.usage":    "用法：%s",

	// 认证
	"auth.signed_in":    "已登录：%s",
	"auth.signed_out":   "已登出",
	"auth.pending":      "请查收邮件确认账户，然后登录。",
	"auth.required":     "尚未登录，请先使用 /login。",
	"auth.profile":      "%s <%s> id=%s",
	"auth.profile_none": "已登录（无法获取资料）",

	// 错误
	"error.request": "请求失败：%s",
	"error.session": "会话错误：%s",

	// 上下文
	"context.tokens":    "Token：%d（%s）",
	"context.messages":  "消息数：%d",
	"context.precise":   "精确",
	"context.estimated": "估算",

	// 会话
	"session.new":      "新会话：%s",
	"session.switched": "已切换到会话：%s",
	"session.deleted":  "已删除会话：%s",
	"session.cleared":  "对话已清空",
	"session.current":  "当前会话：%s",
	"session.none":     "没有找到会话",
	"session.inactive": "没有活动会话",

	// 历史
	"history.empty":   "本会话暂无消息",
	"history.loading": "历史仍在加载",
	"history.error":   "历史加载失败：%s",

	// 代理
	"agent.none": "当前没有可用代理",
	"agent.line": "%s  %s",

	// 启动
	"startup.welcome":   "agentchat 已连接 %s",
	"startup.session":   "会话：%s",
	"startup.repl_mode": "以 REPL 模式运行",
}
