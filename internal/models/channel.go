package models

// ChannelSettings holds free-form per-channel packaging defaults, stored as
// JSONB. Category values here back-fill VOD documents when a program carries
// no category of its own.
type ChannelSettings struct {
	Category           string `json:"category,omitempty"`
	AdditionalCategory string `json:"additional_category,omitempty"`
}

// Channel is one guide channel. Its natural key is the feed URL (XMLURL):
// re-ingesting the same feed refreshes title/logo/provider in place and never
// creates a duplicate. URL is the playback base the VOD workflow prepends to
// derived stream paths.
type Channel struct {
	ID       int64           `json:"id,omitempty"`
	XMLURL   string          `json:"xml_url"`
	Provider string          `json:"provider"`
	Title    string          `json:"title"`
	Logo     string          `json:"logo,omitempty"`
	URL      string          `json:"url,omitempty"`
	Archived bool            `json:"archived"`
	Settings ChannelSettings `json:"settings"`
}
