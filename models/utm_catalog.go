package models

// UndefinedKey is emitted for channel or platform names missing from the key tables
const UndefinedKey = "undefined"

var Programs = []string{"Academy", "Intensive", "NIAT"}

var Channels = []string{
	"Affiliate", "Digital Marketing", "Influencer Marketing",
	"Employee Referral", "Invite & Earn", "NET",
}

var Platforms = []string{
	"YouTube", "Instagram", "Facebook", "LinkedIn", "Google",
	"Meta", "WhatsApp", "Telegram", "Email", "Offline Poster",
}

// ChannelKeys maps channel display names to their utm key
var ChannelKeys = map[string]string{
	"Affiliate":            "aff",
	"Digital Marketing":    "digmkt",
	"Influencer Marketing": "ifmkt",
	"Employee Referral":    "empref",
	"Invite & Earn":        "invite",
	"NET":                  "net",
}

// PlatformKeys maps platform display names to their utm key
var PlatformKeys = map[string]string{
	"YouTube":        "yt",
	"Instagram":      "insta",
	"Facebook":       "fb",
	"LinkedIn":       "ln",
	"Google":         "google",
	"Meta":           "meta",
	"WhatsApp":       "wa",
	"Telegram":       "tg",
	"Email":          "email",
	"Offline Poster": "poster",
}

var PlatformPlacements = map[string][]string{
	"YouTube":        {"Video Description", "Comments", "Community Post", "Story"},
	"Instagram":      {"Bio Link", "Story", "Post Caption", "Reel Description", "DM"},
	"Facebook":       {"Post", "Story", "Comments", "DM", "Group"},
	"LinkedIn":       {"Post", "Article", "Comments", "DM", "Company Page"},
	"Google":         {"Search Ad", "Display Ad", "Shopping Ad", "YouTube Ad"},
	"Meta":           {"Feed Ad", "Story Ad", "Reel Ad", "Messenger Ad"},
	"WhatsApp":       {"Status", "Group Message", "Direct Message"},
	"Telegram":       {"Channel Post", "Group Message", "Direct Message"},
	"Email":          {"Newsletter", "Promotional Email", "Welcome Email", "Follow-up"},
	"Offline Poster": {"QR Code", "Printed URL", "Display Banner"},
}

// LandingPages is keyed by program, then channel
var LandingPages = map[string]map[string][]string{
	"Academy":   landingPagesFor("academy"),
	"Intensive": landingPagesFor("intensive"),
	"NIAT":      landingPagesFor("niat"),
}

func landingPagesFor(sub string) map[string][]string {
	base := "https://" + sub + ".example.com/"
	return map[string][]string{
		"Affiliate":            {base + "aff-landing"},
		"Digital Marketing":    {base + "digital-landing"},
		"Influencer Marketing": {base + "influencer-landing"},
		"Employee Referral":    {base + "employee-landing"},
		"Invite & Earn":        {base + "invite-landing"},
		"NET":                  {base + "net-landing"},
	}
}

// ChannelKey returns the utm key for a channel, or UndefinedKey
func ChannelKey(channel string) string {
	if k, ok := ChannelKeys[channel]; ok {
		return k
	}
	return UndefinedKey
}

// PlatformKey returns the utm key for a platform, or UndefinedKey
func PlatformKey(platform string) string {
	if k, ok := PlatformKeys[platform]; ok {
		return k
	}
	return UndefinedKey
}

func IsKnownProgram(program string) bool {
	return contains(Programs, program)
}

func IsKnownChannel(channel string) bool {
	_, ok := ChannelKeys[channel]
	return ok
}

func IsKnownPlatform(platform string) bool {
	_, ok := PlatformKeys[platform]
	return ok
}

// IsKnownPlacement reports whether placement is offered for platform
func IsKnownPlacement(platform, placement string) bool {
	return contains(PlatformPlacements[platform], placement)
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
