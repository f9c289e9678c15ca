package chunker

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/jinford/ppx-backend/internal/module/indexing/domain"
)

const (
	// DefaultChunkSize はチャンクの最大ルーン数
	DefaultChunkSize = 2000

	// DefaultChunkOverlap はチャンク間のオーバーラップ
	DefaultChunkOverlap = 0
)

// Chunker はロード結果をチャンク化し、IDとメタデータを付与します
type Chunker struct {
	splitter *RecursiveSplitter
}

// NewChunker は新しいChunkerを作成します
func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	return &Chunker{splitter: NewRecursiveSplitter(chunkSize, chunkOverlap)}
}

// NewDefaultChunker はサイズ2000・オーバーラップ0のChunkerを作成します
func NewDefaultChunker() *Chunker {
	return NewChunker(DefaultChunkSize, DefaultChunkOverlap)
}

// Chunk はロード結果をチャンクに分割します
// 同じID（本文+URLのハッシュ）のチャンクと minChunkSize 未満のチャンクは除外されます
func (c *Chunker) Chunk(result *domain.LoadResult, appID string, minChunkSize int) *domain.ChunkResult {
	if minChunkSize < 1 {
		minChunkSize = 1
	}

	docID := result.DocID
	if appID != "" {
		docID = appID + "--" + docID
	}

	out := &domain.ChunkResult{DocID: docID}
	seen := make(map[string]struct{})

	for _, record := range result.Data {
		metadata := domain.CopyMetadata(record.Metadata)
		metadata[domain.MetaDataType] = string(result.DataType)
		metadata[domain.MetaDocID] = docID

		url, _ := metadata[domain.MetaURL].(string)
		if url == "" {
			url = result.Source
		}

		// 字幕区間との対応付けは近似: 区間テキストを積み上げてチャンク長に届いた位置で区切る
		segments := record.Segments
		segmentIndex := 0

		for _, chunk := range c.splitter.Split(record.Content) {
			id := ChunkID(chunk, url, appID)
			if _, ok := seen[id]; ok {
				continue
			}
			chunkLen := runeLen(chunk)
			if chunkLen < minChunkSize {
				continue
			}
			seen[id] = struct{}{}

			if segmentIndex < len(segments) {
				start := segments[segmentIndex].Start
				accumulated := 0
				for i := segmentIndex; i < len(segments); i++ {
					accumulated += runeLen(segments[i].Text)
					if accumulated >= chunkLen {
						metadata[domain.MetaTimestamp] = start
						segmentIndex = i
						break
					}
				}
			}

			out.Texts = append(out.Texts, chunk)
			out.IDs = append(out.IDs, id)
			out.Metadatas = append(out.Metadatas, domain.CopyMetadata(metadata))
		}
	}

	return out
}

// ChunkID はチャンク本文とURLからIDを計算します
func ChunkID(chunk, url, appID string) string {
	sum := sha256.Sum256([]byte(chunk + url))
	id := hex.EncodeToString(sum[:])
	if appID != "" {
		id = appID + "--" + id
	}
	return id
}

var _ domain.Chunker = (*Chunker)(nil)
