package dingtalk

// Wire types for the DingTalk OpenAPI v1.0 endpoints this channel
// uses. The send endpoints require msgParam to be a JSON-encoded
// string nested inside the outer body, not an inline object.

const (
	// DefaultAPIBase is the production OpenAPI host. Overridable for tests.
	DefaultAPIBase = "https://api.dingtalk.com"

	accessTokenPath = "/v1.0/oauth2/accessToken"
	groupSendPath   = "/v1.0/robot/groupMessages/send"
	directSendPath  = "/v1.0/robot/oToMessages/batchSend"

	accessTokenHeader = "x-acs-dingtalk-access-token"
)

// Message keys selecting the parameter shape on the send endpoints.
const (
	msgKeyText        = "sampleText"
	msgKeyMarkdown    = "sampleMarkdown"
	msgKeyActionCard  = "sampleActionCard"
	msgKeyActionCard2 = "sampleActionCard2"
)

type accessTokenRequest struct {
	AppKey    string `json:"appKey"`
	AppSecret string `json:"appSecret"`
}

type accessTokenResponse struct {
	AccessToken string `json:"accessToken"`
	ExpireIn    int64  `json:"expireIn"` // seconds
}

type groupSendRequest struct {
	MsgParam           string `json:"msgParam"`
	MsgKey             string `json:"msgKey"`
	OpenConversationID string `json:"openConversationId"`
}

type directSendRequest struct {
	RobotCode string   `json:"robotCode"`
	UserIDs   []string `json:"userIds"`
	MsgKey    string   `json:"msgKey"`
	MsgParam  string   `json:"msgParam"`
}

type textParam struct {
	Content string `json:"content"`
}

type markdownParam struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

type actionCardParam struct {
	Title       string `json:"title"`
	Text        string `json:"text"`
	SingleTitle string `json:"singleTitle"`
	SingleURL   string `json:"singleURL"`
}

type actionCard2Param struct {
	Title        string `json:"title"`
	Text         string `json:"text"`
	ActionTitle1 string `json:"actionTitle1"`
	ActionURL1   string `json:"actionURL1"`
	ActionTitle2 string `json:"actionTitle2"`
	ActionURL2   string `json:"actionURL2"`
}

// Session-webhook reply bodies carry the message shape directly.
type webhookTextMessage struct {
	Msgtype string    `json:"msgtype"`
	Text    textParam `json:"text"`
}

type webhookMarkdownMessage struct {
	Msgtype  string        `json:"msgtype"`
	Markdown markdownParam `json:"markdown"`
}
