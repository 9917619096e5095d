// Package session owns the stored credential and user descriptor and decides
// whether a protected view may be entered.
package session

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Fixed storage keys. Both are written together and cleared together.
const (
	KeyToken = "token"
	KeyUser  = "user"
)

// User describes the signed-in user. Fields other than username are kept as sent.
type User struct {
	Username string
	Extra    map[string]json.RawMessage
}

// Session is a credential plus the user it was issued to.
type Session struct {
	Credential string
	User       User
}

// MarshalJSON emits the user record with Extra fields merged in.
func (u User) MarshalJSON() ([]byte, error) {
	m := make(map[string]json.RawMessage, len(u.Extra)+1)
	for k, v := range u.Extra {
		m[k] = v
	}
	name, err := json.Marshal(u.Username)
	if err != nil {
		return nil, err
	}
	m["username"] = name
	return json.Marshal(m)
}

// UnmarshalJSON accepts any user object. A non-string username is kept in Extra.
func (u *User) UnmarshalJSON(data []byte) error {
	t := bytes.TrimSpace(data)
	if bytes.Equal(t, []byte("null")) {
		*u = User{}
		return nil
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(t, &m); err != nil {
		return fmt.Errorf("decode user: %w", err)
	}

	var out User
	if raw, ok := m["username"]; ok {
		if err := json.Unmarshal(raw, &out.Username); err == nil {
			delete(m, "username")
		}
	}
	if len(m) > 0 {
		out.Extra = m
	}
	*u = out
	return nil
}
