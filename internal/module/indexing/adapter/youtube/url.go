package youtube

import (
	"net/url"
	"strings"

	"github.com/jinford/ppx-backend/internal/shared/apperr"
)

// VideoIDLength はYouTube動画IDの長さ
const VideoIDLength = 11

var allowedSchemes = map[string]struct{}{
	"http":  {},
	"https": {},
}

var allowedHosts = map[string]struct{}{
	"youtu.be":                 {},
	"m.youtube.com":            {},
	"youtube.com":              {},
	"www.youtube.com":          {},
	"www.youtube-nocookie.com": {},
	"vid.plus":                 {},
}

// ParseVideoID はYouTubeのURLから動画IDを取り出します
// 許可されていないスキーム・ホスト、または11文字のIDが得られない場合は検証エラーを返します
func ParseVideoID(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", apperr.Validation("could not determine the video ID for the URL %s", rawURL)
	}

	if _, ok := allowedSchemes[u.Scheme]; !ok {
		return "", apperr.Validation("could not determine the video ID for the URL %s", rawURL)
	}
	if _, ok := allowedHosts[u.Host]; !ok {
		return "", apperr.Validation("could not determine the video ID for the URL %s", rawURL)
	}

	var videoID string
	if strings.HasSuffix(u.Path, "/watch") {
		videoID = u.Query().Get("v")
	} else {
		parts := strings.Split(strings.TrimLeft(u.Path, "/"), "/")
		videoID = parts[len(parts)-1]
	}

	if len(videoID) != VideoIDLength {
		return "", apperr.Validation("could not determine the video ID for the URL %s", rawURL)
	}

	return videoID, nil
}
