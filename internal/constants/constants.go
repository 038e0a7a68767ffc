package constants

const (
	// Session and context keys
	SessionCookieName   = "task_session"
	ContextKeyUserID    = "user_id"
	ContextKeyIdentity  = "identity"
	ContextKeyTask      = "task"
	SessionMaxAgeSecond = 86400 * 7

	MinPasswordLength   = 8
	MaxAIGeneratedTasks = 20
	MaxCommentLength    = 4000
)
