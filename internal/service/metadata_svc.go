package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/mathieu-neron/SkipTube/skiptube-go/internal/notify"
)

const defaultOEmbedEndpoint = "https://www.youtube.com/oembed"

// MetadataService resolves video titles and thumbnails through oEmbed,
// memoized in Redis.
type MetadataService struct {
	client   *http.Client
	cache    *CacheService
	endpoint string
}

// NewMetadataService uses the public oEmbed endpoint when endpoint is empty.
func NewMetadataService(client *http.Client, cache *CacheService, endpoint string) *MetadataService {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	if endpoint == "" {
		endpoint = defaultOEmbedEndpoint
	}
	return &MetadataService{client: client, cache: cache, endpoint: endpoint}
}

type oembedResponse struct {
	Title        string `json:"title"`
	ThumbnailURL string `json:"thumbnail_url"`
}

func (s *MetadataService) Lookup(ctx context.Context, videoID string) (notify.VideoMetadata, error) {
	if md, ok := s.cache.GetMetadata(ctx, videoID); ok {
		return md, nil
	}

	q := url.Values{}
	q.Set("url", notify.VideoURL(videoID))
	q.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return notify.VideoMetadata{}, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return notify.VideoMetadata{}, fmt.Errorf("oembed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return notify.VideoMetadata{}, fmt.Errorf("oembed request: status %d", resp.StatusCode)
	}

	var body oembedResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return notify.VideoMetadata{}, fmt.Errorf("decode oembed: %w", err)
	}

	md := notify.VideoMetadata{Title: body.Title, Thumbnail: body.ThumbnailURL}
	s.cache.SetMetadata(ctx, videoID, md)
	return md, nil
}
