package messaging

import "time"

const (
	KeyConversation        = "%s:conv:%s:messages" // env, conversation id
	KeyConversationChannel = "%s:conv:%s:live"
	KeyInbox               = "%s:inbox:%s" // env, lowercase address

	TTLConversation = 30 * 24 * time.Hour // 30 days
	MaxHistory      = 500
)
