package auth

import (
	"fmt"
	"io"
	"strings"
)

// WriteCookieGuide prints how to copy the sessionid and csrftoken cookies
// out of a logged-in browser.
func WriteCookieGuide(w io.Writer) {
	rule := strings.Repeat("=", 72)
	lines := []string{
		rule,
		"INSTAGRAM SESSION COOKIES",
		rule,
		"",
		"Anonymous GraphQL lookups are heavily rate limited. A session from a",
		"logged-in browser raises the limit and unlocks private-but-followed reels.",
		"",
		"1. Log in at https://www.instagram.com",
		"2. Open developer tools (F12, or Cmd+Option+I on macOS)",
		"3. Application (Chrome) or Storage (Firefox) -> Cookies -> https://www.instagram.com",
		"4. Copy the values of:",
		"     sessionid   long string containing %3A",
		"     csrftoken   32 characters",
		"",
		"Copy only the value, without quotes or the trailing semicolon.",
		"Sessions expire; run `reelproxy auth login` again when lookups start failing",
		"with auth errors. A running server picks up the change on SIGHUP.",
		"",
		"These cookies grant full access to the account. Prefer a secondary account.",
		rule,
		"",
	}
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
}

// WriteQuickGuide prints the one-line version
func WriteQuickGuide(w io.Writer) {
	fmt.Fprintln(w, "Need sessionid and csrftoken: F12 -> Application -> Cookies -> instagram.com (type 'help' for details)")
}
