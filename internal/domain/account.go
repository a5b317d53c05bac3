package domain

// Account is the signed-in identity reported by the authentication provider.
type Account struct {
	UID      string `json:"uid"`
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
	PhotoURL string `json:"photo_url,omitempty"`
}
