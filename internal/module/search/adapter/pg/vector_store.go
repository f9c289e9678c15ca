package pg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/jinford/ppx-backend/internal/module/search/domain"
	"github.com/jinford/ppx-backend/internal/platform/database"
	"github.com/jinford/ppx-backend/internal/shared/apperr"
)

const (
	searchSQL = `
SELECT id, document, metadata, embedding <-> $1 AS distance
FROM embedding_chunks
WHERE collection = $2
  AND ($3 = '' OR metadata->>'app_id' = $3)
  AND ($4::text[] IS NULL OR metadata->>'resource_id' = ANY($4))
ORDER BY distance
LIMIT $5`

	scanSQL = `
SELECT id, document, metadata, 0::float8 AS distance
FROM embedding_chunks
WHERE collection = $1
  AND ($2 = '' OR metadata->>'app_id' = $2)
  AND ($3::text[] IS NULL OR metadata->>'resource_id' = ANY($3))
ORDER BY created_at, id
LIMIT $4`

	insertSQL = `
INSERT INTO embedding_chunks (id, collection, document, metadata, embedding)
VALUES ($1, $2, $3, $4::jsonb, $5)
ON CONFLICT (id) DO NOTHING`

	listCollectionsSQL = `
SELECT collection, count(*)
FROM embedding_chunks
GROUP BY collection
ORDER BY collection`

	listDocumentsSQL = `
SELECT id, document, metadata, created_at
FROM embedding_chunks
WHERE collection = $1
ORDER BY created_at, id`

	listEmbeddingsSQL = `
SELECT id, document, metadata, created_at, embedding::text
FROM embedding_chunks
WHERE collection = $1
  AND ($2 = '' OR metadata->>'app_id' = $2)
ORDER BY created_at, id`

	listDataSourcesSQL = `
SELECT metadata->>'hash' AS hash,
       (array_agg(metadata ORDER BY created_at))[1] AS metadata,
       count(*)
FROM embedding_chunks
WHERE collection = $1
  AND ($2 = '' OR metadata->>'app_id' = $2)
  AND metadata ? 'hash'
GROUP BY metadata->>'hash'
ORDER BY min(created_at)`

	getByHashSQL = `
SELECT id, document, metadata, created_at
FROM embedding_chunks
WHERE collection = $1 AND metadata->>'hash' = $2
ORDER BY created_at, id
LIMIT 1`

	deleteByResourceSQL = `
DELETE FROM embedding_chunks
WHERE collection = $1
  AND metadata->>'hash' IN (
    SELECT metadata->>'hash' FROM embedding_chunks
    WHERE collection = $1 AND metadata->>'resource_id' = $2
  )`
)

// VectorStore は pgvector を使ったベクトルストアのアダプターです
type VectorStore struct {
	pool *pgxpool.Pool
	tx   *database.TransactionProvider
}

// NewVectorStore は新しいVectorStoreを作成します
func NewVectorStore(pool *pgxpool.Pool) *VectorStore {
	return &VectorStore{
		pool: pool,
		tx:   database.NewTransactionProvider(pool),
	}
}

// Ensure VectorStore implements all interfaces
var _ domain.VectorSearcher = (*VectorStore)(nil)
var _ domain.ChunkWriter = (*VectorStore)(nil)
var _ domain.CollectionReader = (*VectorStore)(nil)
var _ domain.DataSourceRepository = (*VectorStore)(nil)
var _ domain.VectorStore = (*VectorStore)(nil)

// Search はL2距離の昇順で最大 k 件のチャンクを返します
func (s *VectorStore) Search(ctx context.Context, collection string, queryVector []float32, filter domain.Filter, k int) ([]domain.RetrievedContext, error) {
	rows, err := s.pool.Query(ctx, searchSQL,
		pgvector.NewVector(queryVector),
		collection,
		filter.AppID,
		resourceIDsParam(filter.ResourceIDs),
		k,
	)
	if err != nil {
		return nil, apperr.Upstream("vector search", err)
	}

	results, err := collectContexts(rows)
	if err != nil {
		return nil, apperr.Upstream("vector search", err)
	}
	return results, nil
}

// Scan は条件に一致するチャンクを保存順に返します
func (s *VectorStore) Scan(ctx context.Context, collection string, filter domain.Filter, limit int) ([]domain.RetrievedContext, error) {
	rows, err := s.pool.Query(ctx, scanSQL,
		collection,
		filter.AppID,
		resourceIDsParam(filter.ResourceIDs),
		limit,
	)
	if err != nil {
		return nil, apperr.Upstream("vector scan", err)
	}

	results, err := collectContexts(rows)
	if err != nil {
		return nil, apperr.Upstream("vector scan", err)
	}
	return results, nil
}

// Upsert はチャンクを1トランザクションで保存します。既存IDのチャンクはスキップされます
func (s *VectorStore) Upsert(ctx context.Context, collection string, chunks []domain.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	return database.Transact(ctx, s.tx, func(tx pgx.Tx) (int, error) {
		batch := &pgx.Batch{}
		for _, c := range chunks {
			metadata, err := json.Marshal(c.Metadata)
			if err != nil {
				return 0, fmt.Errorf("failed to marshal metadata for chunk %s: %w", c.ID, err)
			}
			batch.Queue(insertSQL, c.ID, collection, c.Document, string(metadata), pgvector.NewVector(c.Embedding))
		}

		br := tx.SendBatch(ctx, batch)
		inserted := 0
		for range chunks {
			tag, err := br.Exec()
			if err != nil {
				br.Close()
				return 0, fmt.Errorf("failed to insert chunk: %w", err)
			}
			inserted += int(tag.RowsAffected())
		}
		if err := br.Close(); err != nil {
			return 0, fmt.Errorf("failed to close batch: %w", err)
		}
		return inserted, nil
	})
}

// ListCollections はコレクションごとの件数を返します
func (s *VectorStore) ListCollections(ctx context.Context) ([]domain.Collection, error) {
	rows, err := s.pool.Query(ctx, listCollectionsSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	defer rows.Close()

	collections := make([]domain.Collection, 0)
	for rows.Next() {
		var c domain.Collection
		if err := rows.Scan(&c.Name, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan collection: %w", err)
		}
		collections = append(collections, c)
	}
	return collections, rows.Err()
}

// ListDocuments はコレクション内の全チャンクを返します
func (s *VectorStore) ListDocuments(ctx context.Context, collection string) ([]domain.Document, error) {
	rows, err := s.pool.Query(ctx, listDocumentsSQL, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	docs := make([]domain.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, collection)
	}
	return docs, nil
}

// ListEmbeddings はトピック分析用に埋め込みベクトル付きでチャンクを返します
func (s *VectorStore) ListEmbeddings(ctx context.Context, collection, appID string) ([]domain.EmbeddedDocument, error) {
	rows, err := s.pool.Query(ctx, listEmbeddingsSQL, collection, appID)
	if err != nil {
		return nil, fmt.Errorf("failed to list embeddings: %w", err)
	}
	defer rows.Close()

	docs := make([]domain.EmbeddedDocument, 0)
	for rows.Next() {
		var (
			d        domain.EmbeddedDocument
			metadata []byte
			vec      pgvector.Vector
		)
		if err := rows.Scan(&d.ID, &d.Document.Document, &metadata, &d.CreatedAt, &vec); err != nil {
			return nil, fmt.Errorf("failed to scan embedding: %w", err)
		}
		if d.Metadata, err = decodeMetadata(metadata); err != nil {
			return nil, err
		}
		d.Embedding = vec.Slice()
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// ListDataSources はハッシュ単位でデータソースを集約して返します
func (s *VectorStore) ListDataSources(ctx context.Context, collection, appID string) ([]domain.DataSource, error) {
	rows, err := s.pool.Query(ctx, listDataSourcesSQL, collection, appID)
	if err != nil {
		return nil, fmt.Errorf("failed to list data sources: %w", err)
	}
	defer rows.Close()

	sources := make([]domain.DataSource, 0)
	for rows.Next() {
		var (
			ds       domain.DataSource
			metadata []byte
		)
		if err := rows.Scan(&ds.Hash, &metadata, &ds.Chunks); err != nil {
			return nil, fmt.Errorf("failed to scan data source: %w", err)
		}
		if ds.Metadata, err = decodeMetadata(metadata); err != nil {
			return nil, err
		}
		ds.DataType, _ = ds.Metadata["data_type"].(string)
		ds.DataValue, _ = ds.Metadata["url"].(string)
		ds.AppID, _ = ds.Metadata["app_id"].(string)
		sources = append(sources, ds)
	}
	return sources, rows.Err()
}

// GetByHash はハッシュに一致する最初のチャンクを返します
func (s *VectorStore) GetByHash(ctx context.Context, collection, hash string) (*domain.Document, error) {
	rows, err := s.pool.Query(ctx, getByHashSQL, collection, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to get data source: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to get data source: %w", err)
		}
		return nil, apperr.NotFound("data source not found: %s", hash)
	}
	return scanDocument(rows)
}

// DeleteByResource は resource_id を持つチャンクと同じハッシュのチャンクをすべて削除します
func (s *VectorStore) DeleteByResource(ctx context.Context, collection, resourceID string) (int, error) {
	tag, err := s.pool.Exec(ctx, deleteByResourceSQL, collection, resourceID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete resource %s from collection %s: %w", resourceID, collection, err)
	}
	return int(tag.RowsAffected()), nil
}

func collectContexts(rows pgx.Rows) ([]domain.RetrievedContext, error) {
	defer rows.Close()

	results := make([]domain.RetrievedContext, 0)
	for rows.Next() {
		var (
			c        domain.RetrievedContext
			metadata []byte
		)
		if err := rows.Scan(&c.ID, &c.Text, &metadata, &c.Score); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		m, err := decodeMetadata(metadata)
		if err != nil {
			return nil, err
		}
		c.Metadata = m
		results = append(results, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chunks: %w", err)
	}
	return results, nil
}

func scanDocument(rows pgx.Rows) (*domain.Document, error) {
	var (
		d         domain.Document
		metadata  []byte
		createdAt time.Time
	)
	if err := rows.Scan(&d.ID, &d.Document, &metadata, &createdAt); err != nil {
		return nil, fmt.Errorf("failed to scan document: %w", err)
	}
	m, err := decodeMetadata(metadata)
	if err != nil {
		return nil, err
	}
	d.Metadata = m
	d.CreatedAt = createdAt
	return &d, nil
}

// decodeMetadata は数値を json.Number のまま保持してメタデータを復元します
func decodeMetadata(raw []byte) (map[string]any, error) {
	m := make(map[string]any)
	if len(raw) == 0 {
		return m, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	return m, nil
}

// resourceIDsParam は空のフィルタを NULL として渡します
func resourceIDsParam(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	return ids
}
