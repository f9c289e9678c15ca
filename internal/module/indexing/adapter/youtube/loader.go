package youtube

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jinford/ppx-backend/internal/module/indexing/domain"
	"github.com/jinford/ppx-backend/internal/shared/apperr"
)

// Loader はYouTube動画の字幕を読み込むローダー
type Loader struct {
	client      *Client
	languages   []string
	translation string
	logger      *slog.Logger
}

// LoaderOption はLoaderの設定オプション
type LoaderOption func(*Loader)

// WithLanguages は優先する字幕言語を設定します
func WithLanguages(languages ...string) LoaderOption {
	return func(l *Loader) {
		if len(languages) > 0 {
			l.languages = languages
		}
	}
}

// WithTranslation は字幕の翻訳先言語を設定します
func WithTranslation(lang string) LoaderOption {
	return func(l *Loader) {
		l.translation = lang
	}
}

// WithLoaderLogger はロガーを設定します
func WithLoaderLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = logger
	}
}

// NewLoader は新しいLoaderを作成します
func NewLoader(client *Client, opts ...LoaderOption) *Loader {
	l := &Loader{
		client:    client,
		languages: []string{DefaultLanguage},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load は動画URLから字幕を読み込みます
func (l *Loader) Load(ctx context.Context, url string) (*domain.LoadResult, error) {
	videoID, err := ParseVideoID(url)
	if err != nil {
		return nil, err
	}

	video, err := l.client.FetchVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}

	segments, err := l.fetchSegments(ctx, video)
	if err != nil {
		return nil, err
	}
	if segments == nil {
		return nil, apperr.NotFound("no data found for url: %s", url)
	}

	texts := make([]string, len(segments))
	for i, s := range segments {
		texts[i] = strings.Trim(s.Text, " ")
	}
	content := domain.CleanString(strings.Join(texts, " "))

	metadata := video.Info.Metadata()
	metadata[domain.MetaSource] = videoID
	metadata[domain.MetaURL] = url

	sum := sha256.Sum256([]byte(content + url))

	l.logger.Info("youtube transcript loaded",
		"video_id", videoID,
		"segments", len(segments),
		"content_length", len(content))

	return &domain.LoadResult{
		DocID:    hex.EncodeToString(sum[:]),
		DataType: domain.DataTypeYouTubeVideo,
		Source:   url,
		Data: []domain.Record{
			{
				Content:  content,
				Metadata: metadata,
				Segments: segments,
			},
		},
	}, nil
}

// fetchSegments は字幕区間を取得します。字幕が無効な動画では nil を返します
func (l *Loader) fetchSegments(ctx context.Context, video *Video) ([]domain.TranscriptSegment, error) {
	if len(video.Captions) == 0 {
		l.logger.Info("transcripts are disabled", "video_id", video.ID)
		return nil, nil
	}

	track, err := FindTranscript(video.Captions, l.languages)
	if errors.Is(err, ErrNoTranscriptFound) {
		track, err = FindTranscript(video.Captions, []string{DefaultLanguage})
	}
	if err != nil {
		return nil, apperr.NotFound("%s", err.Error())
	}

	segments, err := l.client.FetchTranscript(ctx, track, l.translation)
	if err != nil {
		if errors.Is(err, ErrNotTranslatable) {
			return nil, apperr.Validation("%s", err.Error())
		}
		return nil, fmt.Errorf("failed to fetch transcript for %s: %w", video.ID, err)
	}
	return segments, nil
}

var _ domain.Loader = (*Loader)(nil)
