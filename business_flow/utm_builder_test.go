package businessflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildUTMParams(t *testing.T) {
	tests := []struct {
		name string
		in   UTMInput
		want UTMParams
	}{
		{
			name: "basic selection",
			in:   UTMInput{Channel: "Affiliate", Platform: "YouTube", Placement: "Video Description", Program: "Academy"},
			want: UTMParams{Source: "aff-yt", Medium: "video_description", Campaign: "aff-academy"},
		},
		{
			name: "code and alias fragment appended in order",
			in: UTMInput{
				Channel: "Invite & Earn", Platform: "Offline Poster", Placement: "QR Code",
				Program: "NIAT", Code: "CBA12", AliasFragment: "spring",
			},
			want: UTMParams{Source: "invite-poster", Medium: "qr_code", Campaign: "invite-niat-CBA12-spring"},
		},
		{
			name: "alias fragment without code",
			in:   UTMInput{Channel: "NET", Platform: "Email", Placement: "Newsletter", Program: "Intensive", AliasFragment: "may"},
			want: UTMParams{Source: "net-email", Medium: "newsletter", Campaign: "net-intensive-may"},
		},
		{
			name: "whitespace runs collapse to one underscore",
			in:   UTMInput{Channel: "Digital Marketing", Platform: "Google", Placement: "Search   Ad\tTop", Program: "Academy"},
			want: UTMParams{Source: "digmkt-google", Medium: "search_ad_top", Campaign: "digmkt-academy"},
		},
		{
			name: "unknown channel and platform become undefined",
			in:   UTMInput{Channel: "Radio", Platform: "TikTok", Placement: "Spot", Program: "Academy"},
			want: UTMParams{Source: "undefined-undefined", Medium: "spot", Campaign: "undefined-academy"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildUTMParams(tt.in)
			assert.Equal(t, tt.want, got)
			// deterministic
			assert.Equal(t, got, BuildUTMParams(tt.in))
		})
	}
}

func TestBuildFullURL(t *testing.T) {
	p := UTMParams{Source: "aff-yt", Medium: "video_description", Campaign: "aff-academy-a b"}

	assert.Equal(t,
		"https://academy.example.com/aff-landing?utm_source=aff-yt&utm_medium=video_description&utm_campaign=aff-academy-a+b",
		BuildFullURL("https://academy.example.com/aff-landing", p))

	assert.Equal(t,
		"https://academy.example.com/?ref=1&utm_source=aff-yt&utm_medium=video_description&utm_campaign=aff-academy-a+b",
		BuildFullURL("https://academy.example.com/?ref=1", p))

	assert.Equal(t,
		"https://academy.example.com/?utm_source=aff-yt&utm_medium=video_description&utm_campaign=aff-academy-a+b#top",
		BuildFullURL("https://academy.example.com/#top", p))
}
