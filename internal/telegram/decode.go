package telegram

import (
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/EgorDatcenko/FloodBot/internal/domain"
)

// decodeInbound translates a Telegram message into the typed InboundPost
// the core operates on. All shape probing happens here, once, at the
// transport boundary.
func decodeInbound(msg *tgbotapi.Message) *domain.InboundPost {
	in := &domain.InboundPost{
		MessageID:    int64(msg.MessageID),
		MediaGroupID: msg.MediaGroupID,
		Text:         msg.Text,
		ReceivedAt:   time.Unix(int64(msg.Date), 0).UTC(),
	}
	if in.Text == "" {
		in.Text = msg.Caption
	}
	if msg.Chat != nil {
		in.ChannelID = msg.Chat.ID
		in.ChannelHandle = msg.Chat.UserName
	}

	for _, p := range msg.Photo {
		in.Photo = append(in.Photo, domain.PhotoVariant{
			FileID:   p.FileID,
			UniqueID: p.FileUniqueID,
			Width:    p.Width,
			Height:   p.Height,
		})
	}
	if msg.Video != nil {
		in.Video = ref(domain.MediaVideo, msg.Video.FileID, msg.Video.FileUniqueID)
	}
	if msg.Animation != nil {
		in.Animation = ref(domain.MediaAnimation, msg.Animation.FileID, msg.Animation.FileUniqueID)
	}
	if msg.Audio != nil {
		in.Audio = ref(domain.MediaAudio, msg.Audio.FileID, msg.Audio.FileUniqueID)
	}
	if msg.Document != nil {
		in.Document = ref(domain.MediaDocument, msg.Document.FileID, msg.Document.FileUniqueID)
	}
	if msg.Voice != nil {
		in.Voice = ref(domain.MediaVoice, msg.Voice.FileID, msg.Voice.FileUniqueID)
	}
	if msg.VideoNote != nil {
		in.VideoNote = ref(domain.MediaVideoNote, msg.VideoNote.FileID, msg.VideoNote.FileUniqueID)
	}
	if msg.Sticker != nil {
		in.Sticker = ref(domain.MediaSticker, msg.Sticker.FileID, msg.Sticker.FileUniqueID)
	}

	return in
}

func ref(kind domain.MediaKind, fileID, uniqueID string) *domain.MediaRef {
	return &domain.MediaRef{Kind: kind, FileID: fileID, UniqueID: uniqueID}
}
