// Package core mediates between a chat transport and the bot's collaborators:
// it owns the outbound reply path, the per-user confirmation workflow and the
// reload sweep.
package core

import (
	"strings"
)

// User identifies a chat participant (platform nick or account id).
type User string

// Visibility tells whether a destination is seen by one user or many.
type Visibility int

const (
	// Private is the zero value: a bare user destination is always private.
	Private Visibility = iota
	Public
)

func (v Visibility) String() string {
	if v == Public {
		return "public"
	}
	return "private"
}

// Channel is a resolved destination. Two channels are the same destination
// iff ID and Visibility match; Name is cosmetic.
type Channel struct {
	ID         string
	Visibility Visibility
	Name       string
}

// PublicChannel builds a public destination.
func PublicChannel(id, name string) Channel {
	return Channel{ID: id, Visibility: Public, Name: name}
}

// PrivateChannel builds a private destination for user.
func PrivateChannel(user User) Channel {
	return Channel{ID: string(user), Visibility: Private, Name: string(user)}
}

// Same reports whether c and other address the same destination.
func (c Channel) Same(other Channel) bool {
	return c.ID == other.ID && c.Visibility == other.Visibility
}

func (c Channel) String() string {
	if c.Name != "" && c.Name != c.ID {
		return c.Visibility.String() + ":" + c.ID + "(" + c.Name + ")"
	}
	return c.Visibility.String() + ":" + c.ID
}

// Destination is either a structured Channel or a bare User address. It is
// resolved once at the entry of the reply path.
type Destination interface {
	resolve() (Channel, bool)
}

func (c Channel) resolve() (Channel, bool) {
	return c, c.ID != ""
}

// resolve normalizes a bare user address. Sub-accounts ("alice:alt") are
// delivered to the real user before the colon; the full address is kept as
// the name.
func (u User) resolve() (Channel, bool) {
	raw := string(u)
	if raw == "" {
		return Channel{}, false
	}
	id, _, _ := strings.Cut(raw, ":")
	if id == "" {
		return Channel{}, false
	}
	return Channel{ID: id, Visibility: Private, Name: raw}, true
}

// Resolve returns the channel dest addresses, or false when dest is absent.
func Resolve(dest Destination) (Channel, bool) {
	if dest == nil {
		return Channel{}, false
	}
	return dest.resolve()
}

// Inbound is a single chat event delivered by a transport.
type Inbound struct {
	Channel Channel
	User    User
	Text    string
}
