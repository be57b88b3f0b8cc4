package comment

import (
	"context"
	"errors"
	"fmt"
)

// Poster sends one comment to the remote platform. parentID is 0 for a top-level comment.
// Implementations own any retrying.
type Poster interface {
	PostComment(ctx context.Context, imageID string, parentID int64, text string) (int64, error)
}

type PostOptions struct {
	// Thread posts every chunk after the first as a reply to the previous chunk.
	Thread bool

	// Segmenter controls the counting unit; the zero value counts code points.
	Segmenter Segmenter
}

// PostResult lists what reached the platform, in chunk order.
type PostResult struct {
	Chunks     []string
	CommentIDs []int64
}

// Complete reports whether every chunk was posted.
func (r PostResult) Complete() bool {
	return len(r.Chunks) > 0 && len(r.CommentIDs) == len(r.Chunks)
}

// PostComment splits text and posts the chunks in order, stopping at the first failure. The result
// always reports the chunks that were posted before an error.
func PostComment(ctx context.Context, poster Poster, imageID, text string, opts PostOptions) (PostResult, error) {
	if poster == nil {
		return PostResult{}, errors.New("PostComment: poster is nil")
	}
	if imageID == "" {
		return PostResult{}, errors.New("PostComment: imageID is empty")
	}
	if text == "" {
		return PostResult{}, errors.New("PostComment: text is empty")
	}

	res := PostResult{Chunks: opts.Segmenter.Split(text)}
	res.CommentIDs = make([]int64, 0, len(res.Chunks))

	var parent int64
	for i, chunk := range res.Chunks {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("PostComment: chunk %d/%d: %w", i+1, len(res.Chunks), err)
		}
		id, err := poster.PostComment(ctx, imageID, parent, chunk)
		if err != nil {
			return res, fmt.Errorf("PostComment: chunk %d/%d: %w", i+1, len(res.Chunks), err)
		}
		res.CommentIDs = append(res.CommentIDs, id)
		if opts.Thread {
			parent = id
		}
	}
	return res, nil
}
