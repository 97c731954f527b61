// Package telegram connects the command router to the Telegram Bot API.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"caku/internal/bot"
	"caku/internal/clients/httpx"
	"caku/internal/config"
)

// API is the part of *tgbotapi.BotAPI the adapter uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetFileDirectURL(fileID string) (string, error)
	GetUpdatesChan(cfg tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Handler receives every normalized inbound message.
type Handler interface {
	Handle(ctx context.Context, msg bot.Message)
}

type Transport struct {
	api         API
	http        *httpx.Client
	pollTimeout int
	log         zerolog.Logger
	wg          sync.WaitGroup
}

func New(cfg config.TelegramConfig, log zerolog.Logger) (*Transport, error) {
	if cfg.Token == "" {
		return nil, errors.New("telegram token is required")
	}
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram login: %w", err)
	}
	api.Debug = cfg.Debug
	log.Info().Str("username", api.Self.UserName).Msg("telegram bot authorized")
	return NewWithAPI(api, httpx.New(0, 0), cfg.PollTimeout, log), nil
}

func NewWithAPI(api API, client *httpx.Client, pollTimeout int, log zerolog.Logger) *Transport {
	return &Transport{api: api, http: client, pollTimeout: pollTimeout, log: log}
}

// Run long-polls updates until ctx is cancelled. Each message is handled on
// its own goroutine; Run waits for in-flight handlers before returning.
func (t *Transport) Run(ctx context.Context, h Handler) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = t.pollTimeout
	updates := t.api.GetUpdatesChan(u)

	defer t.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			t.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil || update.Message.From == nil {
				continue
			}
			t.wg.Add(1)
			go func(m *tgbotapi.Message) {
				defer t.wg.Done()
				h.Handle(ctx, t.normalize(m))
			}(update.Message)
		}
	}
}

func (t *Transport) normalize(m *tgbotapi.Message) bot.Message {
	msg := bot.Message{
		SenderID: strconv.FormatInt(m.From.ID, 10),
		Text:     m.Text,
	}

	var (
		fileID, name, mime string
		size               int
	)
	switch {
	case m.Video != nil:
		fileID, name, mime, size = m.Video.FileID, m.Video.FileName, m.Video.MimeType, m.Video.FileSize
	case m.Document != nil:
		fileID, name, mime, size = m.Document.FileID, m.Document.FileName, m.Document.MimeType, m.Document.FileSize
	default:
		return msg
	}

	msg.Text = m.Caption
	msg.Media = &bot.Media{
		FileName: name,
		MIMEType: mime,
		Size:     int64(size),
		Fetch:    t.fetcher(fileID),
	}
	return msg
}

// fetcher defers the Bot API file lookup and download until the router
// decides the attachment is wanted.
func (t *Transport) fetcher(fileID string) func(context.Context, int64) ([]byte, error) {
	return func(ctx context.Context, limit int64) ([]byte, error) {
		url, err := t.api.GetFileDirectURL(fileID)
		if err != nil {
			return nil, fmt.Errorf("resolve file: %w", err)
		}
		data, err := t.http.Download(ctx, url, limit)
		if err != nil {
			return nil, fmt.Errorf("download file: %w", err)
		}
		return data, nil
	}
}

func chatID(to string) (int64, error) {
	id, err := strconv.ParseInt(to, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid chat id %q: %w", to, err)
	}
	return id, nil
}

// SendText tries Markdown first and resends as plain text when Telegram
// rejects the entities.
func (t *Transport) SendText(_ context.Context, to string, text string) error {
	id, err := chatID(to)
	if err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(id, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := t.api.Send(msg); err == nil {
		return nil
	}
	msg.ParseMode = ""
	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func (t *Transport) SendDocument(_ context.Context, to string, name string, data []byte, caption string) error {
	id, err := chatID(to)
	if err != nil {
		return err
	}
	doc := tgbotapi.NewDocument(id, tgbotapi.FileBytes{Name: name, Bytes: data})
	doc.Caption = caption
	if _, err := t.api.Send(doc); err != nil {
		return fmt.Errorf("send document: %w", err)
	}
	return nil
}

func (t *Transport) SendImage(_ context.Context, to string, data []byte, caption string) error {
	id, err := chatID(to)
	if err != nil {
		return err
	}
	photo := tgbotapi.NewPhoto(id, tgbotapi.FileBytes{Name: "chart.png", Bytes: data})
	photo.Caption = caption
	if _, err := t.api.Send(photo); err != nil {
		return fmt.Errorf("send photo: %w", err)
	}
	return nil
}
