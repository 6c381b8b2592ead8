package pacing

import browser "github.com/EDDYCJY/fake-useragent"

// IdentityRotator supplies the user-agent for the next navigation.
type IdentityRotator interface {
	UserAgent() string
}

// BrowserRotator draws a fresh desktop-browser user-agent per call.
type BrowserRotator struct{}

// NewBrowserRotator creates a rotating identity source.
func NewBrowserRotator() *BrowserRotator {
	return &BrowserRotator{}
}

// UserAgent returns a random real-browser user-agent string.
func (BrowserRotator) UserAgent() string {
	return browser.Computer()
}

// StaticIdentity pins a single user-agent, used when rotation is disabled.
type StaticIdentity string

// UserAgent returns the pinned value.
func (s StaticIdentity) UserAgent() string {
	return string(s)
}
