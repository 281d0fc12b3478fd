package domain

// Domain contains core models shared by the resource client, queries and views.

// Picture is a read-only gallery item owned by the remote image API.
type Picture struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}
