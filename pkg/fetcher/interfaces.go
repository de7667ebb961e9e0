package fetcher

import (
	"context"
	"io"

	"imgfetch/pkg/unsplash"
)

// PhotoClient defines the API operations a run needs
type PhotoClient interface {
	SearchPhotos(ctx context.Context, params unsplash.SearchParams) (*unsplash.SearchResponse, error)
	OpenImage(ctx context.Context, imageURL string) (io.ReadCloser, error)
}
