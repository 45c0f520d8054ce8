package consts

// Bot replies
const (
	MessageStart = "Hello! I am your crypto AI assistant. Ask me anything about crypto, and I'll provide insights based on the latest group discussions."
	MessageHelp  = "Available commands:\n" +
		"/start - Start the bot\n" +
		"/help - Show this help message\n" +
		"Just send any question, and I'll analyze it along with recent chat history!"
	MessageProcessingError = "Sorry, I encountered an error while processing your question. Please try again later."
	MessageGenericError    = "An error occurred. Please try again later."
	MessageNoHistory       = "No chat history available."
	MessageMonitoringGroup = "👀 I was added to %s and I'm now following the conversation there."
)

// Assistant identity used when AI replies are written back into chat history
const (
	AssistantSenderID  = "AI_ASSISTANT"
	AssistantUsername  = "ai_assistant"
	AssistantFirstName = "AI"
	AssistantLastName  = "Assistant"
)

// Chat history limits
const (
	RecentMessageCount  = 10
	MaxMessagesPerChat  = 1000
	AnonymousSenderName = "Anonymous"
)

// HTTP error texts
const (
	ErrorDiscussionFailed   = "Failed to process discussion"
	ErrorChatHistoryFailed  = "Failed to get chat history"
	ErrorInvalidRequestBody = "Invalid request body"
	ErrorEmailRegistered    = "Email already registered"
	ErrorRegistrationFailed = "Registration failed"
	ErrorFetchUsersFailed   = "Failed to fetch users"
	ErrorUsernameRequired   = "Telegram username is required"
	ErrorMonitoringFailed   = "Failed to start monitoring"
)

// Telegram parse modes
const (
	ParseModeMarkdown = "Markdown"
	ParseModeHTML     = "html"
)
