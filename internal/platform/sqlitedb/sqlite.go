package sqlitedb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// DefaultBusyTimeoutMS は SQLite のロック待ち時間（ミリ秒）
const DefaultBusyTimeoutMS = 5000

// DSN はファイルパスから modernc.org/sqlite 用のDSNを組み立てます
// readOnly の場合は mode=ro を付与し、busy_timeout プラグマが無ければ追加します
func DSN(path string, readOnly bool) string {
	dsn := path
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	if readOnly && !strings.Contains(dsn, "mode=") {
		dsn = addParam(dsn, "mode=ro")
	}
	if !strings.Contains(strings.ToLower(dsn), "_pragma=busy_timeout") {
		dsn = addParam(dsn, fmt.Sprintf("_pragma=busy_timeout(%d)", DefaultBusyTimeoutMS))
	}
	return dsn
}

func addParam(dsn, param string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + param
}

// Open はSQLiteデータベースを開き、疎通確認を行います
func Open(ctx context.Context, path string, readOnly bool) (*sql.DB, error) {
	db, err := sql.Open("sqlite", DSN(path, readOnly))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	return db, nil
}
