// Package unsplash is a minimal client for the Unsplash photo search API.
//
// It covers the two calls a keyword downloader needs: one page of search
// results, and a streamed GET of an image variant. Non-2xx responses, transport
// failures and undecodable bodies come back as *errors.Error values so callers
// can tell an invalid access key (401) from an exhausted quota (403) without
// inspecting status codes themselves.
//
//	client := unsplash.NewClient(&cfg.Unsplash, cfg.Download.Timeout, log)
//	resp, err := client.SearchPhotos(ctx, unsplash.SearchParams{
//	    Query:       "fresh artisan bread",
//	    PerPage:     5,
//	    Orientation: "landscape",
//	})
//	for _, photo := range resp.Results {
//	    url, ok := photo.URL("regular")
//	    ...
//	}
package unsplash
