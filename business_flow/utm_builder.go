package businessflow

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/amirphl/utm-tracker/models"
)

// UTMInput holds the builder form selections. Code and AliasFragment are optional.
type UTMInput struct {
	Channel       string
	Platform      string
	Placement     string
	Program       string
	Code          string
	AliasFragment string
}

// UTMParams are the three attribution tags appended to a landing page
type UTMParams struct {
	Source   string
	Medium   string
	Campaign string
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// BuildUTMParams maps form selections to utm_source, utm_medium and utm_campaign.
// It never fails: unknown channels or platforms become "undefined" segments.
func BuildUTMParams(in UTMInput) UTMParams {
	channelKey := models.ChannelKey(in.Channel)
	platformKey := models.PlatformKey(in.Platform)

	campaign := channelKey + "-" + strings.ToLower(in.Program)
	if in.Code != "" {
		campaign += "-" + in.Code
	}
	if in.AliasFragment != "" {
		campaign += "-" + in.AliasFragment
	}

	return UTMParams{
		Source:   channelKey + "-" + platformKey,
		Medium:   whitespaceRun.ReplaceAllString(strings.ToLower(in.Placement), "_"),
		Campaign: campaign,
	}
}

// Encode renders the tags form-encoded in source, medium, campaign order
func (p UTMParams) Encode() string {
	return "utm_source=" + url.QueryEscape(p.Source) +
		"&utm_medium=" + url.QueryEscape(p.Medium) +
		"&utm_campaign=" + url.QueryEscape(p.Campaign)
}

// BuildFullURL appends the tags to landingPage, keeping an existing query and fragment
func BuildFullURL(landingPage string, p UTMParams) string {
	base, fragment, hasFragment := strings.Cut(landingPage, "#")

	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
		if strings.HasSuffix(base, "?") || strings.HasSuffix(base, "&") {
			sep = ""
		}
	}

	full := base + sep + p.Encode()
	if hasFragment {
		full += "#" + fragment
	}
	return full
}
