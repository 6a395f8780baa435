package forecast

import (
	"errors"
	"strings"
)

type Platform string

const (
	Instagram Platform = "Instagram"
	TikTok    Platform = "TikTok"
	YouTube   Platform = "YouTube"
	Facebook  Platform = "Facebook"
)

// Platforms is the reference platform set in display order.
var Platforms = []Platform{Instagram, TikTok, YouTube, Facebook}

type ContentType string

const (
	ShortVideo ContentType = "Short Video"
	Image      ContentType = "Image"
	Carousel   ContentType = "Carousel"
	LongVideo  ContentType = "Long Video"
	StoryLive  ContentType = "Story/Live"
)

var ContentTypes = []ContentType{ShortVideo, Image, Carousel, LongVideo, StoryLive}

// Channel is one of the budget-driven acquisition channels.
type Channel string

const (
	ChannelPaid        Channel = "paid"
	ChannelCreator     Channel = "creator"
	ChannelAcquisition Channel = "acquisition"
)

var Channels = []Channel{ChannelPaid, ChannelCreator, ChannelAcquisition}

var platformAliases = map[string]Platform{
	"instagram": Instagram,
	"ig":        Instagram,
	"tiktok":    TikTok,
	"tt":        TikTok,
	"youtube":   YouTube,
	"yt":        YouTube,
	"facebook":  Facebook,
	"fb":        Facebook,
}

// ParsePlatform resolves a display name or short code (IG, TT, YT, FB)
// case-insensitively.
func ParsePlatform(s string) (Platform, bool) {
	p, ok := platformAliases[strings.ToLower(strings.TrimSpace(s))]
	return p, ok
}

func IsKnownPlatform(p Platform) bool {
	for _, known := range Platforms {
		if known == p {
			return true
		}
	}
	return false
}

func IsKnownContentType(c ContentType) bool {
	for _, known := range ContentTypes {
		if known == c {
			return true
		}
	}
	return false
}

func IsKnownChannel(c Channel) bool {
	switch c {
	case ChannelPaid, ChannelCreator, ChannelAcquisition:
		return true
	}
	return false
}

// FreqBand holds the recommended posting band and the oversaturation
// thresholds for one platform, in posts per week.
type FreqBand struct {
	Min  float64 `json:"min" yaml:"min"`
	Max  float64 `json:"max" yaml:"max"`
	Soft float64 `json:"soft" yaml:"soft"`
	Hard float64 `json:"hard" yaml:"hard"`
}

// Funnel converts paid impressions into follows.
type Funnel struct {
	ViewThrough      float64 `json:"vtr" yaml:"vtr"`
	Engagement       float64 `json:"er" yaml:"er"`
	FollowConversion float64 `json:"fcr" yaml:"fcr"`
}

// FollowsPerImpression is the product of the three funnel rates.
func (f Funnel) FollowsPerImpression() float64 {
	return f.ViewThrough * f.Engagement * f.FollowConversion
}

func (f Funnel) valid() bool {
	return allFinite(f.ViewThrough, f.Engagement, f.FollowConversion) &&
		f.ViewThrough >= 0 && f.Engagement >= 0 && f.FollowConversion >= 0
}

// CPF is a cost-per-follower range in currency units.
type CPF struct {
	Min float64 `json:"min" yaml:"min"`
	Mid float64 `json:"mid" yaml:"mid"`
	Max float64 `json:"max" yaml:"max"`
}

func (c CPF) check() error {
	switch {
	case !allFinite(c.Min, c.Mid, c.Max):
		return errors.New("values must be finite")
	case c.Min < 0:
		return errors.New("values must be >= 0")
	case c.Min > c.Mid || c.Mid > c.Max:
		return errors.New("want min <= mid <= max")
	}
	return nil
}
