package domain

// DataType はデータソースの種類
type DataType string

const (
	DataTypeYouTubeVideo DataType = "youtube_video"
	DataTypeText         DataType = "text"
	DataTypeWebPage      DataType = "web_page"
	DataTypePDFFile      DataType = "pdf_file"
	DataTypeExcelFile    DataType = "excel_file"
)

// LocalURL はテキストなどURLを持たないデータソースに付与するURL
const LocalURL = "local"

// メタデータのキー
const (
	MetaURL        = "url"
	MetaAppID      = "app_id"
	MetaResourceID = "resource_id"
	MetaDataType   = "data_type"
	MetaDocID      = "doc_id"
	MetaHash       = "hash"
	MetaTimestamp  = "timestamp"
	MetaSource     = "source"
)

// TranscriptSegment は字幕の1区間
type TranscriptSegment struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// Record はローダーが生成する1ドキュメント
// Segments は字幕の時刻情報で、メタデータには保存されない
type Record struct {
	Content  string
	Metadata map[string]any
	Segments []TranscriptSegment
}

// LoadResult はローダーの出力
type LoadResult struct {
	DocID    string
	DataType DataType
	Source   string
	Data     []Record
}

// ChunkResult はチャンク分割の結果。Texts, IDs, Metadatas は同じ添字で対応する
type ChunkResult struct {
	Texts     []string
	IDs       []string
	Metadatas []map[string]any
	DocID     string
}

// Len はチャンク数を返します
func (r *ChunkResult) Len() int {
	return len(r.IDs)
}

// CopyMetadata はメタデータの浅いコピーを返します
func CopyMetadata(m map[string]any) map[string]any {
	out := make(map[string]any, len(m)+4)
	for k, v := range m {
		out[k] = v
	}
	return out
}
