package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/oauth2"

	"github.com/theimaginaryfoundation/comment-o-bot/comment"
	"github.com/theimaginaryfoundation/comment-o-bot/comment/config"
)

const (
	DefaultImgurBaseURL  = "https://api.imgur.com"
	DefaultImgurTokenURL = "https://api.imgur.com/oauth2/token"
	imgurAuthURL         = "https://api.imgur.com/oauth2/authorize"

	maxErrorBody = 4 << 10
)

type ImgurOptions struct {
	// BaseURL and TokenURL default to the public API.
	BaseURL  string
	TokenURL string

	// HTTPClient is the transport under the OAuth2 layer, also used for token refreshes.
	HTTPClient *http.Client

	Retry RetryPolicy

	// OnTokenRefresh is called with every newly issued token so it can be persisted.
	OnTokenRefresh func(*oauth2.Token)
}

// ImgurClient posts comments and lists gallery items on behalf of one user.
type ImgurClient struct {
	httpClient *http.Client
	baseURL    string
	retry      RetryPolicy
}

// NewImgurClient authenticates with the stored user token, refreshing it through the OAuth2 token
// endpoint when it is missing or expired.
func NewImgurClient(ctx context.Context, creds config.Credentials, opts ImgurOptions) (*ImgurClient, error) {
	if creds.ClientID == "" {
		return nil, errors.New("NewImgurClient: client id is empty")
	}
	if creds.AccessToken == "" && creds.RefreshToken == "" {
		return nil, errors.New("NewImgurClient: no access or refresh token")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultImgurBaseURL
	}
	if opts.TokenURL == "" {
		opts.TokenURL = DefaultImgurTokenURL
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = DefaultRetryPolicy()
	}
	if opts.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, opts.HTTPClient)
	}

	conf := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:   imgurAuthURL,
			TokenURL:  opts.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	ts := &persistingTokenSource{
		src:       conf.TokenSource(ctx, creds.Token()),
		last:      creds.AccessToken,
		onRefresh: opts.OnTokenRefresh,
	}

	return &ImgurClient{
		httpClient: oauth2.NewClient(ctx, ts),
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		retry:      opts.Retry,
	}, nil
}

// persistingTokenSource reports each token it has not handed out before.
type persistingTokenSource struct {
	src       oauth2.TokenSource
	onRefresh func(*oauth2.Token)

	mu   sync.Mutex
	last string
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		if s.onRefresh != nil {
			s.onRefresh(tok)
		}
	}
	return tok, nil
}

type imgurEnvelope[T any] struct {
	Data    T    `json:"data"`
	Success bool `json:"success"`
	Status  int  `json:"status"`
}

type imgurErrorData struct {
	Error json.RawMessage `json:"error"`
}

// PostComment creates a comment on imageID, as a reply to parentID when it is non-zero, and returns the new comment id.
func (c *ImgurClient) PostComment(ctx context.Context, imageID string, parentID int64, text string) (int64, error) {
	if imageID == "" {
		return 0, errors.New("PostComment: image id is empty")
	}
	form := url.Values{}
	form.Set("image_id", imageID)
	form.Set("comment", text)
	if parentID > 0 {
		form.Set("parent_id", strconv.FormatInt(parentID, 10))
	}

	type created struct {
		ID int64 `json:"id"`
	}
	out, err := Retry(ctx, c.retry, func(ctx context.Context) (created, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/3/comment", strings.NewReader(form.Encode()))
		if err != nil {
			return created{}, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return doImgur[created](c.httpClient, req)
	})
	if err != nil {
		return 0, fmt.Errorf("PostComment %s: %w", imageID, err)
	}
	return out.ID, nil
}

type galleryImage struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	IsAlbum     bool   `json:"is_album"`
}

// Gallery lists the viral items of a gallery section (hot, top, user) on the given page.
func (c *ImgurClient) Gallery(ctx context.Context, section string, page int) ([]comment.Item, error) {
	if section == "" {
		section = "hot"
	}
	if page < 0 {
		return nil, errors.New("Gallery: page must be >= 0")
	}
	endpoint := fmt.Sprintf("%s/3/gallery/%s/viral/%d.json", c.baseURL, url.PathEscape(section), page)

	images, err := Retry(ctx, c.retry, func(ctx context.Context) ([]galleryImage, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		return doImgur[[]galleryImage](c.httpClient, req)
	})
	if err != nil {
		return nil, fmt.Errorf("Gallery %s/%d: %w", section, page, err)
	}

	items := make([]comment.Item, 0, len(images))
	for _, img := range images {
		if img.ID == "" {
			continue
		}
		items = append(items, comment.Item{
			ID:          img.ID,
			Title:       img.Title,
			Description: img.Description,
		})
	}
	return items, nil
}

func doImgur[T any](client *http.Client, req *http.Request) (T, error) {
	var zero T
	resp, err := client.Do(req)
	if err != nil {
		return zero, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return zero, &StatusError{StatusCode: resp.StatusCode, Message: imgurErrorMessage(b)}
	}

	var env imgurEnvelope[T]
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return zero, fmt.Errorf("decode imgur response: %w", err)
	}
	if !env.Success {
		return zero, &StatusError{StatusCode: env.Status, Message: "request not successful"}
	}
	return env.Data, nil
}

// imgurErrorMessage pulls data.error out of an error body; Imgur sends it as a string or an object.
func imgurErrorMessage(body []byte) string {
	var env imgurEnvelope[imgurErrorData]
	if err := json.Unmarshal(body, &env); err != nil || len(env.Data.Error) == 0 {
		return strings.TrimSpace(string(body))
	}
	var s string
	if err := json.Unmarshal(env.Data.Error, &s); err == nil {
		return s
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(env.Data.Error, &obj); err == nil && obj.Message != "" {
		return obj.Message
	}
	return string(env.Data.Error)
}
