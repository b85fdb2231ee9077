// Package telegram is the transport layer: it ingests channel posts into
// the reconciler and serves the browse menu to chat users.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/EgorDatcenko/FloodBot/internal/category"
	"github.com/EgorDatcenko/FloodBot/internal/config"
	"github.com/EgorDatcenko/FloodBot/internal/domain"
)

const (
	statsButton = "📊 СТАТИСТИКА"

	browseLimit  = 50
	searchLimit  = 10
	pendingTTL   = 5 * time.Minute
	pendingLimit = 1000
)

// Bot wires the Telegram Bot API to the domain service.
type Bot struct {
	api     *tgbotapi.BotAPI
	svc     *domain.Service
	rules   *category.Table
	channel string
	admins  map[int64]bool
	pending *pendingCategories
	logger  *slog.Logger
}

// NewBot authenticates against the Bot API and returns a ready Bot.
func NewBot(cfg *config.Config, svc *domain.Service, rules *category.Table, logger *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	return &Bot{
		api:     api,
		svc:     svc,
		rules:   rules,
		channel: cfg.ChannelUsername,
		admins:  cfg.AdminIDs,
		pending: newPendingCategories(pendingTTL, pendingLimit),
		logger:  logger,
	}, nil
}

// Start long-polls for updates and dispatches them until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info("bot authorized", "username", b.api.Self.UserName, "channel", b.channel)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	u.AllowedUpdates = []string{"message", "channel_post"}
	updates := b.api.GetUpdatesChan(u)

	var eventsReceived, postsStored int64
	lastStatsLog := time.Now()

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}

			eventsReceived++
			if b.handleUpdate(ctx, update) {
				postsStored++
			}

			if time.Since(lastStatsLog) >= 30*time.Second {
				b.logger.Info("update stats",
					"events_received", eventsReceived,
					"posts_stored", postsStored,
				)
				lastStatsLog = time.Now()
			}
		}
	}
}

// handleUpdate dispatches one update. Reports whether a post was stored.
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) bool {
	switch {
	case update.ChannelPost != nil:
		return b.handleChannelPost(ctx, update.ChannelPost)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
	return false
}

func (b *Bot) handleChannelPost(ctx context.Context, msg *tgbotapi.Message) bool {
	if msg.Chat == nil {
		return false
	}
	if !strings.EqualFold(msg.Chat.UserName, b.channel) {
		b.logger.Debug("ignoring post from foreign channel",
			"channel", msg.Chat.UserName, "message_id", msg.MessageID)
		return false
	}

	in := decodeInbound(msg)
	res, err := b.svc.Reconcile(ctx, in)
	if err != nil {
		b.logger.Error("failed to reconcile channel post",
			"message_id", in.MessageID, "media_group_id", in.MediaGroupID, "error", err)
		return false
	}

	b.logger.Info("channel post reconciled",
		"message_id", in.MessageID,
		"action", res.Action,
		"category", res.Category,
		"post_id", res.PostID,
		"attachments_added", res.AttachmentsAdded,
	)
	return res.Action != domain.ActionDuplicate
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.Chat == nil {
		return
	}

	if msg.ForwardFromChat != nil {
		b.handleForwarded(ctx, msg)
		return
	}
	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}
	b.handleMenuText(ctx, msg)
}

// handleForwarded ingests a post an admin forwarded from the source
// channel, honoring a pending manual category when one is set.
func (b *Bot) handleForwarded(ctx context.Context, msg *tgbotapi.Message) {
	if !strings.EqualFold(msg.ForwardFromChat.UserName, b.channel) {
		b.reply(msg.Chat.ID, "❓ Пересылайте посты только из канала @"+b.channel+".")
		return
	}

	in := decodeInbound(msg)
	in.ChannelID = msg.ForwardFromChat.ID
	in.ChannelHandle = msg.ForwardFromChat.UserName
	if msg.ForwardFromMessageID != 0 {
		in.MessageID = int64(msg.ForwardFromMessageID)
	}

	var (
		res *domain.ReconcileResult
		err error
	)
	if key, ok := b.pending.Take(msg.From.ID); ok {
		res, err = b.svc.ReconcileManual(ctx, in, key)
	} else {
		res, err = b.svc.Reconcile(ctx, in)
	}
	if err != nil {
		b.logger.Error("failed to reconcile forwarded post",
			"message_id", in.MessageID, "error", err)
		b.reply(msg.Chat.ID, "❌ Не удалось обработать пост, попробуйте ещё раз.")
		return
	}

	if res.Action == domain.ActionDuplicate {
		b.reply(msg.Chat.ID, "ℹ️ Этот пост уже сохранён.")
		return
	}
	b.reply(msg.Chat.ID, fmt.Sprintf("✅ Пост сохранён в категорию «%s».", b.rules.Name(res.Category)))
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start", "help":
		greeting := "👋 Привет! Я сортирую посты канала @" + b.channel + " по категориям.\n" +
			"Выбирай категорию кнопками ниже."
		reply := tgbotapi.NewMessage(msg.Chat.ID, greeting)
		reply.ReplyMarkup = b.menuKeyboard()
		b.send(reply)

	case "search":
		query := strings.TrimSpace(msg.CommandArguments())
		if query == "" {
			b.reply(msg.Chat.ID, "Использование: /search <текст>")
			return
		}
		b.sendSearchResults(ctx, msg.Chat.ID, query)

	case "category":
		if !b.admins[msg.From.ID] {
			b.reply(msg.Chat.ID, "⛔ Команда доступна только администраторам.")
			return
		}
		key := strings.TrimSpace(msg.CommandArguments())
		if !b.rules.Contains(key) {
			b.reply(msg.Chat.ID, "❓ Неизвестная категория. Доступные: "+strings.Join(b.categoryKeys(), ", "))
			return
		}
		b.pending.Set(msg.From.ID, key)
		b.reply(msg.Chat.ID, fmt.Sprintf(
			"📌 Следующий пересланный пост попадёт в «%s» (в течение %d минут).",
			b.rules.Name(key), int(pendingTTL.Minutes())))

	case "delete":
		if !b.admins[msg.From.ID] {
			b.reply(msg.Chat.ID, "⛔ Команда доступна только администраторам.")
			return
		}
		id, err := strconv.ParseInt(strings.TrimSpace(msg.CommandArguments()), 10, 64)
		if err != nil {
			b.reply(msg.Chat.ID, "Использование: /delete <id поста>")
			return
		}
		deleted, err := b.svc.DeletePost(ctx, id)
		if err != nil {
			b.logger.Error("failed to delete post", "post_id", id, "error", err)
			b.reply(msg.Chat.ID, "❌ Не удалось удалить пост.")
			return
		}
		if !deleted {
			b.reply(msg.Chat.ID, fmt.Sprintf("❓ Пост %d не найден.", id))
			return
		}
		b.reply(msg.Chat.ID, fmt.Sprintf("🗑 Пост %d удалён.", id))

	default:
		b.reply(msg.Chat.ID, "❓ Неизвестная команда. Используйте кнопки меню.")
	}
}

func (b *Bot) handleMenuText(ctx context.Context, msg *tgbotapi.Message) {
	text := strings.TrimSpace(msg.Text)

	if text == statsButton {
		b.sendStats(ctx, msg.Chat.ID)
		return
	}
	if key, ok := b.rules.KeyByName(text); ok {
		b.sendCategory(ctx, msg.Chat.ID, key)
		return
	}
	b.reply(msg.Chat.ID, "❓ Используйте кнопки меню для навигации.")
}

func (b *Bot) sendCategory(ctx context.Context, chatID int64, key string) {
	posts, err := b.svc.PostsByCategory(ctx, key, browseLimit)
	if err != nil {
		b.logger.Error("failed to list category", "category", key, "error", err)
		b.reply(chatID, "❌ Не удалось загрузить посты, попробуйте позже.")
		return
	}

	name := b.rules.Name(key)
	if len(posts) == 0 {
		b.reply(chatID, fmt.Sprintf("📁 В категории «%s» пока нет постов.", name))
		return
	}

	b.reply(chatID, fmt.Sprintf("📁 %s — %d постов:", name, len(posts)))
	for i := range posts {
		b.sendPost(ctx, chatID, &posts[i])
	}
}

func (b *Bot) sendSearchResults(ctx context.Context, chatID int64, query string) {
	posts, err := b.svc.SearchPosts(ctx, query, searchLimit)
	if err != nil {
		b.logger.Error("search failed", "query", query, "error", err)
		b.reply(chatID, "❌ Поиск не удался, попробуйте позже.")
		return
	}
	if len(posts) == 0 {
		b.reply(chatID, fmt.Sprintf("🔍 По запросу «%s» ничего не найдено.", query))
		return
	}

	b.reply(chatID, fmt.Sprintf("🔍 Найдено %d постов:", len(posts)))
	for i := range posts {
		b.sendPost(ctx, chatID, &posts[i])
	}
}

func (b *Bot) sendStats(ctx context.Context, chatID int64) {
	counts, total, err := b.svc.Stats(ctx)
	if err != nil {
		b.logger.Error("failed to load stats", "error", err)
		b.reply(chatID, "❌ Статистика недоступна, попробуйте позже.")
		return
	}
	if total == 0 {
		b.reply(chatID, "📊 Статистика пока недоступна.")
		return
	}

	var sb strings.Builder
	sb.WriteString("📊 Статистика по категориям:\n\n")
	for _, c := range counts {
		fmt.Fprintf(&sb, "📁 %s: %d постов\n", b.rules.Name(c.Category), c.Count)
	}
	fmt.Fprintf(&sb, "\n📈 Всего постов: %d", total)
	b.reply(chatID, sb.String())
}

// sendPost renders one post: its text, and its media as a single send or a
// media group depending on the attachment count.
func (b *Bot) sendPost(ctx context.Context, chatID int64, post *domain.Post) {
	caption := postCaption(post)

	media, err := b.svc.MediaFor(ctx, post)
	if err != nil {
		b.logger.Error("failed to load post media", "post_id", post.ID, "error", err)
		media = nil
	}

	groupable, rest := splitGroupable(media)

	switch {
	case len(groupable) > 1:
		group := make([]interface{}, 0, len(groupable))
		for i, ref := range groupable {
			item := inputMedia(ref)
			if i == 0 && item != nil {
				item = withCaption(item, caption)
			}
			if item != nil {
				group = append(group, item)
			}
		}
		if _, err := b.api.SendMediaGroup(tgbotapi.NewMediaGroup(chatID, group)); err != nil {
			b.logger.Error("failed to send media group", "post_id", post.ID, "error", err)
		}
	case len(groupable) == 1:
		b.sendSingleMedia(chatID, groupable[0], caption, post.ID)
	default:
		if caption != "" {
			b.reply(chatID, caption)
		}
	}

	for _, ref := range rest {
		b.sendSingleMedia(chatID, ref, "", post.ID)
	}
}

func (b *Bot) sendSingleMedia(chatID int64, ref domain.MediaRef, caption string, postID int64) {
	file := tgbotapi.FileID(ref.FileID)

	var msg tgbotapi.Chattable
	switch ref.Kind {
	case domain.MediaPhoto:
		m := tgbotapi.NewPhoto(chatID, file)
		m.Caption = caption
		msg = m
	case domain.MediaVideo:
		m := tgbotapi.NewVideo(chatID, file)
		m.Caption = caption
		msg = m
	case domain.MediaAnimation:
		m := tgbotapi.NewAnimation(chatID, file)
		m.Caption = caption
		msg = m
	case domain.MediaAudio:
		m := tgbotapi.NewAudio(chatID, file)
		m.Caption = caption
		msg = m
	case domain.MediaDocument:
		m := tgbotapi.NewDocument(chatID, file)
		m.Caption = caption
		msg = m
	case domain.MediaVoice:
		m := tgbotapi.NewVoice(chatID, file)
		m.Caption = caption
		msg = m
	case domain.MediaVideoNote:
		msg = tgbotapi.NewVideoNote(chatID, 0, file)
	case domain.MediaSticker:
		msg = tgbotapi.NewSticker(chatID, file)
	default:
		return
	}

	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("failed to send media", "post_id", postID, "kind", ref.Kind, "error", err)
	}
	if caption != "" && (ref.Kind == domain.MediaVideoNote || ref.Kind == domain.MediaSticker) {
		b.reply(chatID, caption)
	}
}

// splitGroupable separates attachments that Telegram accepts inside a media
// group from those that must be sent on their own.
func splitGroupable(media []domain.MediaRef) (groupable, rest []domain.MediaRef) {
	for _, ref := range media {
		switch ref.Kind {
		case domain.MediaPhoto, domain.MediaVideo, domain.MediaAudio, domain.MediaDocument:
			groupable = append(groupable, ref)
		default:
			rest = append(rest, ref)
		}
	}
	return groupable, rest
}

func inputMedia(ref domain.MediaRef) interface{} {
	file := tgbotapi.FileID(ref.FileID)
	switch ref.Kind {
	case domain.MediaPhoto:
		return tgbotapi.NewInputMediaPhoto(file)
	case domain.MediaVideo:
		return tgbotapi.NewInputMediaVideo(file)
	case domain.MediaAudio:
		return tgbotapi.NewInputMediaAudio(file)
	case domain.MediaDocument:
		return tgbotapi.NewInputMediaDocument(file)
	}
	return nil
}

func withCaption(item interface{}, caption string) interface{} {
	switch m := item.(type) {
	case tgbotapi.InputMediaPhoto:
		m.Caption = caption
		return m
	case tgbotapi.InputMediaVideo:
		m.Caption = caption
		return m
	case tgbotapi.InputMediaAudio:
		m.Caption = caption
		return m
	case tgbotapi.InputMediaDocument:
		m.Caption = caption
		return m
	}
	return item
}

func postCaption(post *domain.Post) string {
	switch {
	case post.Title != "" && post.Text != "":
		return post.Title + "\n\n" + post.Text
	case post.Title != "":
		return post.Title
	default:
		return post.Text
	}
}

// menuKeyboard builds the reply keyboard from the rule table, two category
// buttons per row, with the stats button on the last row.
func (b *Bot) menuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	var rows [][]tgbotapi.KeyboardButton

	var row []tgbotapi.KeyboardButton
	for _, c := range b.rules.Categories() {
		row = append(row, tgbotapi.NewKeyboardButton(c.Name))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, []tgbotapi.KeyboardButton{tgbotapi.NewKeyboardButton(statsButton)})

	keyboard := tgbotapi.NewReplyKeyboard(rows...)
	keyboard.ResizeKeyboard = true
	return keyboard
}

func (b *Bot) categoryKeys() []string {
	keys := make([]string, 0, len(b.rules.Categories()))
	for _, c := range b.rules.Categories() {
		keys = append(keys, c.Key)
	}
	return keys
}

func (b *Bot) reply(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.api.Send(c); err != nil {
		b.logger.Error("failed to send message", "error", err)
	}
}
