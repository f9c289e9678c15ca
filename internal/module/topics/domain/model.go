package domain

import "errors"

// ErrNoDocuments はトピック抽出の対象ドキュメントがない場合のエラー
var ErrNoDocuments = errors.New("no documents found")

// OutlierTopicID はどのトピックにも属さないドキュメントのトピックID
const OutlierTopicID = -1

// WordWeight はトピック内の単語と重み
type WordWeight struct {
	Word   string  `json:"word"`
	Weight float64 `json:"weight"`
}

// Topic はトピックと上位単語
type Topic struct {
	ID    int          `json:"id"`
	Words []WordWeight `json:"words"`
}

// TopicWeight はドキュメントにおけるトピックの確率
type TopicWeight struct {
	TopicID     int     `json:"topic_id"`
	Probability float64 `json:"probability"`
}

// DocumentTopics はリソース単位のトピック分布
type DocumentTopics struct {
	ResourceID string        `json:"resource_id"`
	Topics     []TopicWeight `json:"topics"`
}

// LDAResult はLDAによるトピック抽出結果
type LDAResult struct {
	Topics    []Topic          `json:"topics"`
	Documents []DocumentTopics `json:"documents"`
}

// DocumentTopic は埋め込みクラスタリングで得られたチャンク単位のトピック
type DocumentTopic struct {
	DocID       int     `json:"doc_id"`
	TopicID     int     `json:"topic_id"`
	Name        string  `json:"name"`
	Probability float64 `json:"probability"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	ResourceID  string  `json:"resource_id"`
}
