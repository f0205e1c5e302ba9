package domain

// AccountCredential holds the DingTalk app credentials for one account.
// Immutable after configuration load; looked up by AccountID.
type AccountCredential struct {
	AccountID    string
	ClientID     string
	ClientSecret string
	// RobotCode is required for direct (one-to-one) sends only.
	RobotCode string
}

// Complete reports whether both required credentials are present.
func (c AccountCredential) Complete() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}
