package httpapi

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/jinford/ppx-backend/internal/shared/apperr"
)

// queryInt は整数のクエリパラメータを読み込みます。未指定なら def を返します
func queryInt(q url.Values, key string, def int) (int, error) {
	v := q.Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperr.Validation("%s must be an integer: %q", key, v)
	}
	return n, nil
}

// queryFloat は浮動小数点数のクエリパラメータを読み込みます
func queryFloat(q url.Values, key string, def float64) (float64, error) {
	v := q.Get(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, apperr.Validation("%s must be a number: %q", key, v)
	}
	return f, nil
}

// queryBool は真偽値のクエリパラメータを読み込みます
func queryBool(q url.Values, key string) (bool, error) {
	v := q.Get(key)
	if v == "" {
		return false, nil
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	}
	return false, apperr.Validation("%s must be a boolean: %q", key, v)
}

// queryList は繰り返し指定またはカンマ区切りのクエリパラメータを読み込みます
func queryList(q url.Values, key string) []string {
	var values []string
	for _, raw := range q[key] {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				values = append(values, v)
			}
		}
	}
	return values
}
