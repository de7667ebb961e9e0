package unsplash

import "encoding/json"

// SearchResponse is one page of /search/photos results
type SearchResponse struct {
	Total      int     `json:"total"`
	TotalPages int     `json:"total_pages"`
	Results    []Photo `json:"results"`
}

// UnmarshalJSON decodes every result on its own. A result that does not fit
// Photo keeps its position with DecodeErr set instead of failing the page.
func (r *SearchResponse) UnmarshalJSON(data []byte) error {
	var page struct {
		Total      int               `json:"total"`
		TotalPages int               `json:"total_pages"`
		Results    []json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(data, &page); err != nil {
		return err
	}

	r.Total = page.Total
	r.TotalPages = page.TotalPages
	r.Results = make([]Photo, len(page.Results))
	for i, raw := range page.Results {
		if err := json.Unmarshal(raw, &r.Results[i]); err != nil {
			r.Results[i] = Photo{DecodeErr: err}
		}
	}
	return nil
}

// Photo is a single search result. URLs is keyed by quality tier
// (raw, full, regular, small, thumb); a tier may be absent.
type Photo struct {
	ID             string            `json:"id"`
	Description    string            `json:"description"`
	AltDescription string            `json:"alt_description"`
	Width          int               `json:"width"`
	Height         int               `json:"height"`
	Likes          int               `json:"likes"`
	URLs           map[string]string `json:"urls"`
	User           User              `json:"user"`

	// DecodeErr is set when the record could not be decoded
	DecodeErr error `json:"-"`
}

// User is the photographer credited for a photo
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

// URL returns the image URL for the given quality tier
func (p Photo) URL(quality string) (string, bool) {
	url, ok := p.URLs[quality]
	return url, ok && url != ""
}

// Invalid reports whether the record could not be decoded
func (p Photo) Invalid() bool {
	return p.DecodeErr != nil
}
