package i18n

// EnMessages English message catalog
var EnMessages = Catalog{
	// UI (TUI/REPL) - Panel titles
	"panel.chat":    "Chat",
	"panel.history": "History",

	// UI (TUI sidebar)
	"sidebar.account": "Account",
	"sidebar.session": "Session",
	"sidebar.agents":  "Agents",
	"sidebar.history": "History",

	// UI - Status bar
	"status.server":    "Server",
	"status.ready":     "Ready",
	"status.busy":      "Waiting for orchestrator...",
	"status.loading":   "Loading history...",
	"status.signed_in": "signed in",
	"status.guest":     "not signed in",
	"status.cancelled": "Request cancelled",

	// UI - Input
	"input.placeholder": "Type a message or /help (Alt+Enter for newline)",
	"input.submit_hint": "Enter to send",

	// UI - Keybindings (TUI)
	"keys.tab":    "tab panel",
	"keys.esc":    "esc cancel",
	"keys.ctrl_l": "ctrl+l clear",

	// Prompts
	"prompt.email":        "Email: ",
	"prompt.password":     "Password: ",
	"prompt.display_name": "Display name (optional): ",
	"prompt.form_hint":    "enter next · esc cancel",

	// Commands
	"cmd.header":   "Commands:",
	"cmd.help":     "Show available commands",
	"cmd.login":    "Sign in",
	"cmd.signup":   "Create an account",
	"cmd.logout":   "Sign out and forget the session",
	"cmd.whoami":   "Show the signed-in user",
	"cmd.agents":   "List available agents",
	"cmd.sessions": "List sessions",
	"cmd.new":      "Create new session",
	"cmd.use":      "Switch to a session",
	"cmd.delete":   "Delete a session",
	"cmd.history":  "Show recent history of the current session",
	"cmd.clear":    "Clear the conversation and leave the session",
	"cmd.exit":     "Exit application",
	"cmd.unknown":  "Unknown command: /%s (try /help)",
	"cmd.usage":    "Usage: %s",

	// Auth
	"auth.signed_in":    "Signed in as %s",
	"auth.signed_out":   "Signed out",
	"auth.pending":      "Check your email to confirm the account, then sign in.",
	"auth.required":     "Not signed in. Use /login first.",
	"auth.profile":      "%s <%s> id=%s",
	"auth.profile_none": "Signed in (profile unavailable)",

	// Errors
	"error.request": "Request failed: %s",
	"error.session": "Session error: %s",

	// Context
	"context.tokens":    "Tokens: %d (%s)",
	"context.messages":  "Messages: %d",
	"context.precise":   "precise",
	"context.estimated": "estimated",

	// Session
	"session.new":      "New session: %s",
	"session.switched": "Switched to session: %s",
	"session.deleted":  "Deleted session: %s",
	"session.cleared":  "Conversation cleared",
	"session.current":  "Current session: %s",
	"session.none":     "No sessions found",
	"session.inactive": "No active session",

	// History
	"history.empty":   "No messages in this session",
	"history.loading": "History is still loading",
	"history.error":   "History failed to load: %s",

	// Agent
	"agent.none": "No agents are currently available",
	"agent.line": "%s  %s",

	// Startup
	"startup.welcome":   "agentchat connected to %s",
	"startup.session":   "Session: %s",
	"startup.repl_mode": "Running in REPL mode",
}
