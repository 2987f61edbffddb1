package domain

// Caller es la identidad resuelta a partir de una credencial bearer.
type Caller struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
}
