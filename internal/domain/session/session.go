package session

// Session holds the authenticated user's credentials as reported by the
// web content. IsLoggedIn implies UserID and UserToken are non-empty.
type Session struct {
	UserID            string `json:"userId"`
	UserToken         string `json:"userToken"`
	PushTokenEndpoint string `json:"pushTokenEndpoint,omitempty"`
	IsLoggedIn        bool   `json:"isLoggedIn"`
}

// Empty reports whether the session carries no credentials.
func (s Session) Empty() bool {
	return s.UserID == "" && s.UserToken == "" && s.PushTokenEndpoint == "" && !s.IsLoggedIn
}
