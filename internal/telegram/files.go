package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-telegram/bot"
)

// Files resolves and downloads user-uploaded photos via the Bot API.
type Files struct {
	Bot  *bot.Bot
	HTTP *http.Client
}

func NewFiles(b *bot.Bot) *Files {
	return &Files{Bot: b, HTTP: &http.Client{Timeout: 30 * time.Second}}
}

// DownloadPhoto fetches the file bytes for a photo's file id.
func (f *Files) DownloadPhoto(ctx context.Context, fileID string) ([]byte, error) {
	file, err := f.Bot.GetFile(ctx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.Bot.FileDownloadLink(file), nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 20<<20))
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return data, nil
}
