package models

// Product represents a catalog product as persisted in the local store.
type Product struct {
	ID    int     `json:"id"`
	Title string  `json:"title"`
	Price float64 `json:"price"`
}
