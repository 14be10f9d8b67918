package oldreddit

import (
	"fmt"
	"strings"

	"github.com/xkilldash9x/redvote/internal/vote"
)

// Page furniture on old.reddit.com. Markup changes should only touch this file.
const (
	CookieBanner = "#eu-cookie-policy"
	CookieAccept = "#eu-cookie-policy > div > div.infobar-btn-container > button"

	LoginLink        = "#header-bottom-right > span > a.login-required.login-link"
	LogoutLink       = "#header-bottom-right > form > a"
	LoginForm        = "#login-username"
	UsernameField    = "#login-username > span"
	PasswordField    = "#login-password > span"
	LoginSubmitReady = "#login > auth-flow-modal > div.w-100 > faceplate-tracker:nth-child(1) > button"
	LoginSubmit      = LoginSubmitReady + " > span > span"

	SearchInput          = "#search > input[type=text]:nth-child(1)"
	SearchSubmit         = "#search > input[type=submit]:nth-child(2)"
	FirstSubredditResult = "body > div.content > div:nth-child(2) > div > div > div:nth-child(1) > header > a"
	Content              = "div.content"

	// Listing items.
	Thing      = "div.thing"
	ThingTitle = "a.title"

	// Vote controls inside an item. Once active the class becomes upmod or downmod,
	// so match on substring as well.
	UpArrow   = ".arrow.up, .arrow[class*='up']"
	DownArrow = ".arrow.down, .arrow[class*='down']"

	ActiveUp   = "upmod"
	ActiveDown = "downmod"

	// Listing item attributes.
	AttrFullname  = "data-fullname"
	AttrPermalink = "data-permalink"
	AttrPromoted  = "data-promoted"
)

// welcomeFormat is the greeting shown after a successful login.
const welcomeFormat = "%s, this is your home on Reddit"

// WelcomeText is the text that confirms username is logged in.
func WelcomeText(username string) string {
	return fmt.Sprintf(welcomeFormat, username)
}

// cssString quotes s as a CSS string literal.
func cssString(s string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s) + `"`
}

// ThingSelector matches the listing item with the given fullname.
func ThingSelector(fullname string) string {
	return fmt.Sprintf("%s[%s=%s]", Thing, AttrFullname, cssString(fullname))
}

// ArrowSelector matches the vote control for action inside the item with fullname.
func ArrowSelector(fullname string, action vote.Action) string {
	arrow := `.arrow[class*="down"]`
	if action == vote.AssertPositive {
		arrow = `.arrow[class*="up"]`
	}
	return ThingSelector(fullname) + " " + arrow
}
