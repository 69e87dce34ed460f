package slack

// SlackResponse is the envelope every Web API method returns. A 200 response
// with ok=false is still a failure.
type SlackResponse struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	Warning string `json:"warning,omitempty"`
}

func (r SlackResponse) slackStatus() SlackResponse { return r }

// cursorPage is the envelope of cursor-paginated list methods.
type cursorPage struct {
	SlackResponse
	ResponseMetadata struct {
		NextCursor string `json:"next_cursor,omitempty"`
	} `json:"response_metadata"`
}

// MessageRef locates a message. Slack identifies messages by channel and ts.
type MessageRef struct {
	Channel   string `json:"channel"`
	Timestamp string `json:"ts"`
}

// Message is a posted message as echoed back by chat.* methods.
type Message struct {
	User     string `json:"user,omitempty"`
	BotID    string `json:"bot_id,omitempty"`
	Text     string `json:"text,omitempty"`
	ThreadTS string `json:"thread_ts,omitempty"`
}

// PostMessageRequest is the body of chat.postMessage.
type PostMessageRequest struct {
	Channel     string `json:"channel"`
	Text        string `json:"text"`
	ThreadTS    string `json:"thread_ts,omitempty"`
	Mrkdwn      *bool  `json:"mrkdwn,omitempty"`
	UnfurlLinks bool   `json:"unfurl_links,omitempty"`
}

type PostMessageResponse struct {
	SlackResponse
	MessageRef
	Message Message `json:"message"`
}

type UpdateMessageResponse struct {
	SlackResponse
	MessageRef
	Text string `json:"text"`
}

type DeleteMessageResponse struct {
	SlackResponse
	MessageRef
}

// Channel is a conversation as returned by conversations.list.
type Channel struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	IsChannel  bool   `json:"is_channel"`
	IsIM       bool   `json:"is_im"`
	IsPrivate  bool   `json:"is_private"`
	IsArchived bool   `json:"is_archived"`
	IsMember   bool   `json:"is_member"`
	Topic      struct {
		Value string `json:"value"`
	} `json:"topic"`
}

type ListChannelsResponse struct {
	cursorPage
	Channels []Channel `json:"channels"`
}

// User is a workspace member.
type User struct {
	ID       string `json:"id"`
	TeamID   string `json:"team_id,omitempty"`
	Name     string `json:"name"`
	RealName string `json:"real_name,omitempty"`
	TZ       string `json:"tz,omitempty"`
	IsBot    bool   `json:"is_bot"`
	Deleted  bool   `json:"deleted"`
	Profile  struct {
		DisplayName string `json:"display_name,omitempty"`
		Email       string `json:"email,omitempty"`
	} `json:"profile"`
}

type ListUsersResponse struct {
	cursorPage
	Members []User `json:"members"`
}

type GetUserResponse struct {
	SlackResponse
	User User `json:"user"`
}
