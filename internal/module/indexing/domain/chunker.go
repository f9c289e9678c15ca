package domain

// Chunker はロード結果をチャンクに分割する戦略インターフェース
type Chunker interface {
	// Chunk はロード結果をチャンクに分割します
	// appID が空でない場合、チャンクIDとドキュメントIDに "appID--" を前置します
	Chunk(result *LoadResult, appID string, minChunkSize int) *ChunkResult
}
