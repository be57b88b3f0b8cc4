package comment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/theimaginaryfoundation/comment-o-bot/comment/ledger"
)

// Item is a gallery post the bot may comment on.
type Item struct {
	ID          string `json:"id"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	// Comment is posted as-is when set; otherwise the Composer drafts one.
	Comment string `json:"comment,omitempty"`
}

// Ledger remembers processed item ids. MarkSeen fails with an error wrapping ledger.ErrAlreadySeen
// for a duplicate id.
type Ledger interface {
	MarkSeen(id string) error
	HasSeen(id string) (bool, error)
	Reset() error
}

// Composer drafts a comment for an item. An empty result means the item should be skipped.
type Composer interface {
	Compose(ctx context.Context, item Item) (string, error)
}

// Bot comments on gallery items it has not seen before.
type Bot struct {
	Name     string
	Ledger   Ledger
	Poster   Poster
	Composer Composer
	Logger   *slog.Logger

	PostOptions PostOptions

	// DryRun logs the chunks instead of posting them and leaves the ledger untouched.
	DryRun bool
}

// Summary counts what Process did.
type Summary struct {
	Seen          int
	Skipped       int
	Posted        int
	ChunksPosted  int
	AlreadyMarked int
}

// Process handles items in order. A failed post stops the run so the item is retried next time;
// partially posted items are still marked seen so their chunks are not repeated.
func (b *Bot) Process(ctx context.Context, items []Item) (Summary, error) {
	var sum Summary
	if b.Ledger == nil {
		return sum, errors.New("Bot.Process: ledger is nil")
	}
	if b.Poster == nil && !b.DryRun {
		return sum, errors.New("Bot.Process: poster is nil")
	}
	logger := b.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("bot", b.Name)

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		if item.ID == "" {
			logger.Warn("item without id skipped", "title", item.Title)
			sum.Skipped++
			continue
		}

		seen, err := b.Ledger.HasSeen(item.ID)
		if err != nil {
			return sum, fmt.Errorf("Bot.Process: has seen %s: %w", item.ID, err)
		}
		if seen {
			logger.Debug("item already seen", "item", item.ID)
			sum.Seen++
			continue
		}

		text, err := b.commentFor(ctx, item)
		if err != nil {
			return sum, fmt.Errorf("Bot.Process: compose %s: %w", item.ID, err)
		}
		if text == "" {
			logger.Info("nothing to post", "item", item.ID)
			sum.Skipped++
			if err := b.markSeen(logger, item.ID, &sum); err != nil {
				return sum, err
			}
			continue
		}

		if b.DryRun {
			chunks := b.PostOptions.Segmenter.Split(text)
			for i, ch := range chunks {
				logger.Info("dry run chunk", "item", item.ID, "part", i+1, "parts", len(chunks), "text", ch)
			}
			sum.Posted++
			sum.ChunksPosted += len(chunks)
			continue
		}

		res, err := PostComment(ctx, b.Poster, item.ID, text, b.PostOptions)
		sum.ChunksPosted += len(res.CommentIDs)
		if err != nil {
			if len(res.CommentIDs) > 0 {
				if markErr := b.markSeen(logger, item.ID, &sum); markErr != nil {
					logger.Error("mark partially posted item", "item", item.ID, "err", markErr)
				}
			}
			logger.Error("post failed", "item", item.ID, "posted", len(res.CommentIDs), "parts", len(res.Chunks), "err", err)
			return sum, fmt.Errorf("Bot.Process: %w", err)
		}
		logger.Info("posted", "item", item.ID, "parts", len(res.Chunks), "comment_ids", res.CommentIDs)
		sum.Posted++

		if err := b.markSeen(logger, item.ID, &sum); err != nil {
			return sum, err
		}
	}
	return sum, nil
}

func (b *Bot) commentFor(ctx context.Context, item Item) (string, error) {
	if item.Comment != "" {
		return item.Comment, nil
	}
	if b.Composer == nil {
		return "", nil
	}
	return b.Composer.Compose(ctx, item)
}

func (b *Bot) markSeen(logger *slog.Logger, id string, sum *Summary) error {
	if b.DryRun {
		return nil
	}
	err := b.Ledger.MarkSeen(id)
	if err == nil {
		return nil
	}
	if errors.Is(err, ledger.ErrAlreadySeen) {
		logger.Warn("item was already marked seen", "item", id)
		sum.AlreadyMarked++
		return nil
	}
	return fmt.Errorf("Bot.Process: mark seen %s: %w", id, err)
}
