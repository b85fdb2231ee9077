package domain

import (
	"strings"
	"time"
)

// MediaKind discriminates the attachment types a channel message can carry.
type MediaKind string

const (
	MediaPhoto     MediaKind = "photo"
	MediaVideo     MediaKind = "video"
	MediaAnimation MediaKind = "animation"
	MediaAudio     MediaKind = "audio"
	MediaDocument  MediaKind = "document"
	MediaVoice     MediaKind = "voice"
	MediaVideoNote MediaKind = "video_note"
	MediaSticker   MediaKind = "sticker"
)

// MediaRef points at one binary attachment held by Telegram. The bot only
// stores these references; it never downloads the bytes.
type MediaRef struct {
	// Kind is the attachment type.
	Kind MediaKind

	// FileID is the Telegram file identifier used to re-send the attachment.
	FileID string

	// UniqueID is stable across bots for the same underlying file. May be
	// empty for older events.
	UniqueID string
}

// PhotoVariant is one entry of a photo's size ladder.
type PhotoVariant struct {
	FileID   string
	UniqueID string
	Width    int
	Height   int
}

// InboundPost is one channel event, decoded from the transport's message
// shape into explicit typed slots. It is transient and never persisted
// as-is.
type InboundPost struct {
	// MessageID is unique per message within the channel.
	MessageID int64

	// ChannelID and ChannelHandle identify the source channel.
	ChannelID     int64
	ChannelHandle string

	// Text is the message body, or the media caption when there is no body.
	Text string

	// MediaGroupID is set when this event is one slice of a multi-attachment
	// post. Empty for standalone messages.
	MediaGroupID string

	// Attachment slots. A message exposes at most one attachment per slot;
	// a photo additionally carries its size ladder.
	Photo     []PhotoVariant
	Video     *MediaRef
	Animation *MediaRef
	Audio     *MediaRef
	Document  *MediaRef
	Voice     *MediaRef
	VideoNote *MediaRef
	Sticker   *MediaRef

	ReceivedAt time.Time
}

// Post is the persisted unit of content a user browses. One Post may be
// backed by several inbound events when they share a media group.
type Post struct {
	ID            int64
	MessageID     int64
	ChannelID     int64
	ChannelHandle string
	Category      string
	Title         string
	Text          string

	// Primary media, captured at creation. Lets singleton posts render
	// without attachment rows.
	MediaType     MediaKind
	MediaFileID   string
	MediaUniqueID string

	// MediaGroupID is empty for textual and single-attachment posts.
	MediaGroupID string

	CreatedAt time.Time
}

// Attachment is one media entry belonging to a Post. Ordinal is the 0-based
// display position, assigned in arrival order.
type Attachment struct {
	ID        int64
	PostID    int64
	MessageID int64
	Kind      MediaKind
	FileID    string
	UniqueID  string
	Ordinal   int
	CreatedAt time.Time
}

// CategoryCount is one row of the per-category post statistics.
type CategoryCount struct {
	Category string
	Count    int
}

// titleExcerptLen caps a title derived from a one-line message, in runes.
const titleExcerptLen = 100

// SplitTitle derives a post title and body from raw message text. The first
// line becomes the title when the text has several lines; a one-line text
// becomes the title itself (truncated to an excerpt) with an empty body.
func SplitTitle(raw string) (title, body string) {
	if raw == "" {
		return "", ""
	}

	lines := strings.SplitN(raw, "\n", 2)
	if len(lines) == 2 {
		return strings.TrimSpace(lines[0]), strings.TrimSpace(lines[1])
	}

	runes := []rune(raw)
	if len(runes) > titleExcerptLen {
		return string(runes[:titleExcerptLen]) + "...", ""
	}
	return raw, ""
}
