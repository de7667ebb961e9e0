package unsplash

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	// BaseURL is the public API root
	BaseURL = "https://api.unsplash.com"

	// SearchEndpoint is the photo search path
	SearchEndpoint = "/search/photos"

	// DefaultPerPage matches the API's own default page size
	DefaultPerPage = 10

	// MaxPerPage is the largest page the API will return
	MaxPerPage = 30
)

// SearchParams are the query parameters for one search request
type SearchParams struct {
	Query       string
	PerPage     int
	Orientation string
}

// SearchURL builds the search URL for baseURL and params.
// PerPage is clamped to [1, MaxPerPage]; an empty orientation is omitted.
func SearchURL(baseURL string, params SearchParams) string {
	perPage := params.PerPage
	if perPage <= 0 {
		perPage = DefaultPerPage
	} else if perPage > MaxPerPage {
		perPage = MaxPerPage
	}

	values := url.Values{}
	values.Set("query", params.Query)
	values.Set("per_page", strconv.Itoa(perPage))
	if params.Orientation != "" {
		values.Set("orientation", params.Orientation)
	}

	return fmt.Sprintf("%s%s?%s", strings.TrimRight(baseURL, "/"), SearchEndpoint, values.Encode())
}

// AuthorizationHeader formats an access key the way the API expects it
func AuthorizationHeader(accessKey string) string {
	return "Client-ID " + accessKey
}
