package youtube

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/ppx-backend/internal/shared/apperr"
)

func TestParseVideoID(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{name: "短縮URL", url: "https://youtu.be/dQw4w9WgXcQ", want: "dQw4w9WgXcQ"},
		{name: "watch URL", url: "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=10s", want: "dQw4w9WgXcQ"},
		{name: "モバイル", url: "http://m.youtube.com/watch?v=dQw4w9WgXcQ", want: "dQw4w9WgXcQ"},
		{name: "埋め込みURL", url: "https://www.youtube-nocookie.com/embed/dQw4w9WgXcQ", want: "dQw4w9WgXcQ"},
		{name: "shorts", url: "https://youtube.com/shorts/dQw4w9WgXcQ", want: "dQw4w9WgXcQ"},
		{name: "許可されていないホスト", url: "https://example.com/x", wantErr: true},
		{name: "許可されていないスキーム", url: "ftp://youtu.be/dQw4w9WgXcQ", wantErr: true},
		{name: "vパラメータなし", url: "https://www.youtube.com/watch?list=abc", wantErr: true},
		{name: "IDの長さが不正", url: "https://youtu.be/short", wantErr: true},
		{name: "空文字列", url: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseVideoID(tt.url)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, apperr.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
