package vectorstore

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"sec-rag/internal/contextutil"
)

const (
	upsertBatchSize = 256
	// buildField tags each point with the Sync call that wrote it.
	buildField = "build"
)

// QdrantStore serves retrieval from a Qdrant collection holding the same
// chunks as a flat Store. Scores use the dot product so they match the flat index.
type QdrantStore struct {
	client     *qdrant.Client
	collection string
}

// grpcEndpoint maps a Qdrant HTTP URL ("http://host:6333") to the gRPC host and port.
// The gRPC port is the HTTP port + 1, or 6334 when the URL has none.
func grpcEndpoint(urlStr string) (string, int, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsedURL.Hostname()
	if host == "" {
		host = "localhost"
	}

	port := 6334
	if parsedURL.Port() != "" {
		httpPort, err := strconv.Atoi(parsedURL.Port())
		if err != nil {
			return "", 0, fmt.Errorf("invalid Qdrant port %q: %w", parsedURL.Port(), err)
		}
		port = httpPort + 1
	}
	return host, port, nil
}

// NewQdrantStore creates a client for collection on the Qdrant server at urlStr.
func NewQdrantStore(urlStr, collection string) (*QdrantStore, error) {
	if collection == "" {
		return nil, fmt.Errorf("qdrant collection name is required")
	}
	host, port, err := grpcEndpoint(urlStr)
	if err != nil {
		return nil, err
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
	}

	return &QdrantStore{client: client, collection: collection}, nil
}

// Close releases the underlying gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// PointID returns the deterministic Qdrant point ID for a chunk ID.
func PointID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(chunkID)).String()
}

// EnsureCollection creates the collection with dot-product distance if it is
// missing, and otherwise checks that its vector size matches.
func (s *QdrantStore) EnsureCollection(ctx context.Context, vectorSize int) error {
	logger := contextutil.LoggerFromContext(ctx)

	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}

	if !exists {
		logger.InfoContext(ctx, "creating collection", "collection", s.collection, "vector_size", vectorSize)
		err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: s.collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(vectorSize),
				Distance: qdrant.Distance_Dot,
			}),
		})
		if err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}
		return nil
	}

	info, err := s.client.GetCollectionInfo(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to get collection info: %w", err)
	}
	var actualSize uint64
	if cfg := info.GetConfig(); cfg != nil && cfg.GetParams() != nil {
		if params := cfg.GetParams().GetVectorsConfig().GetParams(); params != nil {
			actualSize = params.GetSize()
		}
	}
	if actualSize == 0 {
		return fmt.Errorf("could not determine collection vector size")
	}
	if int(actualSize) != vectorSize {
		return fmt.Errorf("%w: collection vector size is %d, index has %d", ErrMisaligned, actualSize, vectorSize)
	}

	logger.InfoContext(ctx, "collection validated", "collection", s.collection, "vector_size", vectorSize)
	return nil
}

// Sync makes the collection hold exactly the entries of a flat store. Every
// point is tagged with a fresh build id; points left from earlier builds are
// deleted once the upsert has completed.
func (s *QdrantStore) Sync(ctx context.Context, store *Store) error {
	logger := contextutil.LoggerFromContext(ctx)

	if err := s.EnsureCollection(ctx, store.Dim()); err != nil {
		return err
	}

	build := uuid.NewString()

	for start := 0; start < store.Count(); start += upsertBatchSize {
		end := min(start+upsertBatchSize, store.Count())
		points := make([]*qdrant.PointStruct, 0, end-start)
		for i := start; i < end; i++ {
			text, meta, _ := store.Entry(i)
			payload := chunkPayload(i, text, meta)
			payload[buildField] = build
			points = append(points, &qdrant.PointStruct{
				Id:      qdrant.NewID(PointID(meta.ChunkID)),
				Vectors: qdrant.NewVectors(store.Vector(i)...),
				Payload: qdrant.NewValueMap(payload),
			})
		}

		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: s.collection,
			Points:         points,
		})
		if err != nil {
			logger.ErrorContext(ctx, "failed to upsert points", "collection", s.collection, "count", len(points), "error", err)
			return fmt.Errorf("failed to upsert points: %w", err)
		}
	}

	if err := s.deleteStale(ctx, build); err != nil {
		return err
	}

	logger.InfoContext(ctx, "synced chunks to qdrant", "collection", s.collection, "count", store.Count(), "build", build)
	return nil
}

// deleteStale removes every point not tagged with build.
func (s *QdrantStore) deleteStale(ctx context.Context, build string) error {
	logger := contextutil.LoggerFromContext(ctx)

	wait := true
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points:         qdrant.NewPointsSelectorFilter(staleFilter(build)),
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to delete stale points", "collection", s.collection, "error", err)
		return fmt.Errorf("failed to delete stale points: %w", err)
	}
	return nil
}

func staleFilter(build string) *qdrant.Filter {
	return &qdrant.Filter{
		MustNot: []*qdrant.Condition{qdrant.NewMatchKeyword(buildField, build)},
	}
}

// Retrieve implements Retriever.
func (s *QdrantStore) Retrieve(ctx context.Context, query []float32, k int) ([]Hit, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if k <= 0 {
		return nil, fmt.Errorf("k must be greater than 0")
	}

	limit := uint64(k)
	scoredPoints, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(query...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to search points", "collection", s.collection, "k", k, "error", err)
		return nil, fmt.Errorf("failed to search points: %w", err)
	}

	hits := make([]Hit, 0, len(scoredPoints))
	for _, p := range scoredPoints {
		hits = append(hits, hitFromPayload(p.GetScore(), convertPayloadToMap(p.GetPayload())))
	}

	logger.DebugContext(ctx, "qdrant search completed", "collection", s.collection, "k", k, "results", len(hits))
	return hits, nil
}

// Len implements Retriever.
func (s *QdrantStore) Len(ctx context.Context) (int, error) {
	exact := true
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
		Exact:          &exact,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}
	return int(n), nil
}

var _ Retriever = (*QdrantStore)(nil)

func chunkPayload(ordinal int, text string, meta ChunkMeta) map[string]any {
	payload := map[string]any{
		"ordinal":    ordinal,
		"text":       text,
		"chunk_id":   meta.ChunkID,
		"company":    meta.Company,
		"doc_name":   meta.DocName,
		"item":       meta.Item,
		"item_title": meta.ItemTitle,
		"page_pdf":   meta.PagePDF,
		"pdf_path":   meta.SourcePath,
	}
	if meta.PageReport != nil {
		payload["page_report"] = *meta.PageReport
	}
	return payload
}

func hitFromPayload(score float32, payload map[string]any) Hit {
	hit := Hit{
		Ordinal: int(asInt64(payload["ordinal"])),
		Score:   score,
		Text:    asString(payload["text"]),
		Meta: ChunkMeta{
			ChunkID:    asString(payload["chunk_id"]),
			Company:    asString(payload["company"]),
			DocName:    asString(payload["doc_name"]),
			Item:       asString(payload["item"]),
			ItemTitle:  asString(payload["item_title"]),
			PagePDF:    int(asInt64(payload["page_pdf"])),
			SourcePath: asString(payload["pdf_path"]),
		},
	}
	if _, ok := payload["page_report"]; ok {
		page := int(asInt64(payload["page_report"]))
		hit.Meta.PageReport = &page
	}
	return hit
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	case int:
		return int64(n)
	}
	return 0
}

// convertPayloadToMap converts Qdrant payload to map[string]any.
func convertPayloadToMap(payload map[string]*qdrant.Value) map[string]any {
	result := make(map[string]any, len(payload))
	for k, v := range payload {
		if v == nil {
			continue
		}
		result[k] = convertValue(v)
	}
	return result
}

// convertValue converts a Qdrant Value to Go any type.
func convertValue(v *qdrant.Value) any {
	switch val := v.Kind.(type) {
	case *qdrant.Value_BoolValue:
		return val.BoolValue
	case *qdrant.Value_IntegerValue:
		return val.IntegerValue
	case *qdrant.Value_DoubleValue:
		return val.DoubleValue
	case *qdrant.Value_StringValue:
		return val.StringValue
	case *qdrant.Value_ListValue:
		list := make([]any, len(val.ListValue.Values))
		for i, item := range val.ListValue.Values {
			list[i] = convertValue(item)
		}
		return list
	case *qdrant.Value_StructValue:
		return convertPayloadToMap(val.StructValue.Fields)
	default:
		return nil
	}
}
