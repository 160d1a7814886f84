package dto

// ShortenRequest asks for a short link. Field names follow the public wire format.
type ShortenRequest struct {
	URL         string `json:"url"`
	CustomAlias string `json:"customAlias,omitempty"`
}

// ShortenResponse always carries a usable URL, possibly the input itself
type ShortenResponse struct {
	ShortURL string `json:"shortUrl"`
}
