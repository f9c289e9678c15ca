package youtube

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jinford/ppx-backend/internal/module/indexing/domain"
	"github.com/jinford/ppx-backend/internal/shared/apperr"
)

const (
	// DefaultBaseURL はwatchページの取得先
	DefaultBaseURL = "https://www.youtube.com"

	// DefaultTimeout はHTTPリクエストのタイムアウト
	DefaultTimeout = 30 * time.Second

	// DefaultLanguage は字幕が見つからない場合のフォールバック言語
	DefaultLanguage = "en"

	playerResponseMarker = "ytInitialPlayerResponse = "
	publishDateLayout    = "2006-01-02 15:04:05"
	unknown              = "Unknown"
)

var (
	// ErrNoTranscriptFound は指定言語の字幕が存在しない場合のエラー
	ErrNoTranscriptFound = errors.New("no transcript found")

	// ErrNotTranslatable は字幕が翻訳に対応していない場合のエラー
	ErrNotTranslatable = errors.New("transcript is not translatable")

	// ErrPlayerResponseNotFound はwatchページにプレイヤー情報が含まれない場合のエラー
	ErrPlayerResponseNotFound = errors.New("player response not found in watch page")
)

// VideoInfo は動画の付加情報
type VideoInfo struct {
	Title        string
	Description  string
	ViewCount    int
	ThumbnailURL string
	PublishDate  string
	Length       int
	Author       string
}

// Metadata はメタデータ用のマップを返します
func (v VideoInfo) Metadata() map[string]any {
	return map[string]any{
		"title":         v.Title,
		"description":   v.Description,
		"view_count":    v.ViewCount,
		"thumbnail_url": v.ThumbnailURL,
		"publish_date":  v.PublishDate,
		"length":        v.Length,
		"author":        v.Author,
	}
}

// CaptionTrack はwatchページに含まれる字幕トラック
type CaptionTrack struct {
	BaseURL        string `json:"baseUrl"`
	LanguageCode   string `json:"languageCode"`
	Kind           string `json:"kind"`
	IsTranslatable bool   `json:"isTranslatable"`
}

// Generated は自動生成字幕かどうかを返します
func (t CaptionTrack) Generated() bool {
	return t.Kind == "asr"
}

// Video はwatchページから得られる情報
type Video struct {
	ID       string
	Info     VideoInfo
	Captions []CaptionTrack
}

type playerResponse struct {
	PlayabilityStatus struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
	Captions struct {
		Renderer struct {
			CaptionTracks []CaptionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
	VideoDetails struct {
		Title            string `json:"title"`
		ShortDescription string `json:"shortDescription"`
		ViewCount        string `json:"viewCount"`
		LengthSeconds    string `json:"lengthSeconds"`
		Author           string `json:"author"`
		Thumbnail        struct {
			Thumbnails []struct {
				URL string `json:"url"`
			} `json:"thumbnails"`
		} `json:"thumbnail"`
	} `json:"videoDetails"`
	Microformat struct {
		Renderer struct {
			PublishDate string `json:"publishDate"`
		} `json:"playerMicroformatRenderer"`
	} `json:"microformat"`
}

type timedText struct {
	Texts []struct {
		Start string `xml:"start,attr"`
		Dur   string `xml:"dur,attr"`
		Body  string `xml:",chardata"`
	} `xml:"text"`
}

// Client はYouTubeのwatchページと字幕を取得するクライアント
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// ClientOption はClientの設定オプション
type ClientOption func(*Client)

// WithHTTPClient はHTTPクライアントを設定します
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithBaseURL はwatchページの取得先を設定します（テスト用）
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithLogger はロガーを設定します
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient は新しいClientを作成します
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		baseURL:    DefaultBaseURL,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchVideo はwatchページを取得し、字幕トラックと動画情報を抽出します
func (c *Client) FetchVideo(ctx context.Context, videoID string) (*Video, error) {
	body, err := c.get(ctx, c.baseURL+"/watch?v="+videoID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch watch page: %w", err)
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse watch page: %w", err)
	}

	var pr *playerResponse
	var decodeErr error
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		idx := strings.Index(text, playerResponseMarker)
		if idx < 0 {
			return true
		}
		// 後続のJavaScriptは無視して最初のJSON値だけを読む
		var decoded playerResponse
		dec := json.NewDecoder(strings.NewReader(text[idx+len(playerResponseMarker):]))
		if err := dec.Decode(&decoded); err != nil {
			decodeErr = err
			return true
		}
		pr = &decoded
		return false
	})
	if pr == nil {
		if decodeErr != nil {
			return nil, fmt.Errorf("failed to decode player response: %w", decodeErr)
		}
		return nil, ErrPlayerResponseNotFound
	}

	if pr.PlayabilityStatus.Status == "ERROR" {
		return nil, apperr.NotFound("video %s is unavailable: %s", videoID, pr.PlayabilityStatus.Reason)
	}

	return &Video{
		ID:       videoID,
		Info:     toVideoInfo(pr),
		Captions: pr.Captions.Renderer.CaptionTracks,
	}, nil
}

// FindTranscript は languages の順に字幕トラックを探します
// 手動作成の字幕を自動生成字幕より優先します
func FindTranscript(tracks []CaptionTrack, languages []string) (CaptionTrack, error) {
	for _, generated := range []bool{false, true} {
		for _, lang := range languages {
			for _, t := range tracks {
				if t.LanguageCode == lang && t.Generated() == generated {
					return t, nil
				}
			}
		}
	}
	return CaptionTrack{}, fmt.Errorf("%w: %v", ErrNoTranscriptFound, languages)
}

// FetchTranscript は字幕トラックの区間一覧を取得します
// translation が空でない場合は翻訳した字幕を取得します
func (c *Client) FetchTranscript(ctx context.Context, track CaptionTrack, translation string) ([]domain.TranscriptSegment, error) {
	u := track.BaseURL
	if translation != "" {
		if !track.IsTranslatable {
			return nil, fmt.Errorf("%w: %s", ErrNotTranslatable, track.LanguageCode)
		}
		u += "&tlang=" + url.QueryEscape(translation)
	}

	body, err := c.get(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transcript: %w", err)
	}
	defer body.Close()

	var tt timedText
	if err := xml.NewDecoder(body).Decode(&tt); err != nil {
		return nil, fmt.Errorf("failed to parse transcript: %w", err)
	}

	segments := make([]domain.TranscriptSegment, 0, len(tt.Texts))
	for _, t := range tt.Texts {
		if t.Body == "" {
			continue
		}
		start, _ := strconv.ParseFloat(t.Start, 64)
		dur, _ := strconv.ParseFloat(t.Dur, 64)
		segments = append(segments, domain.TranscriptSegment{
			Text:     html.UnescapeString(t.Body),
			Start:    start,
			Duration: dur,
		})
	}

	return segments, nil
}

func (c *Client) get(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept-Language", "en-US")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Upstream("youtube request", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, apperr.Upstream("youtube request", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	c.logger.Debug("youtube request completed", "url", url)
	return resp.Body, nil
}

func toVideoInfo(pr *playerResponse) VideoInfo {
	d := pr.VideoDetails
	info := VideoInfo{
		Title:        orUnknown(d.Title),
		Description:  orUnknown(d.ShortDescription),
		ThumbnailURL: unknown,
		PublishDate:  unknown,
		Author:       orUnknown(d.Author),
	}
	info.ViewCount, _ = strconv.Atoi(d.ViewCount)
	info.Length, _ = strconv.Atoi(d.LengthSeconds)

	if thumbs := d.Thumbnail.Thumbnails; len(thumbs) > 0 && thumbs[len(thumbs)-1].URL != "" {
		info.ThumbnailURL = thumbs[len(thumbs)-1].URL
	}
	if t, ok := parsePublishDate(pr.Microformat.Renderer.PublishDate); ok {
		info.PublishDate = t.Format(publishDateLayout)
	}
	return info
}

func parsePublishDate(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func orUnknown(s string) string {
	if s == "" {
		return unknown
	}
	return s
}
