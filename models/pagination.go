package models

// PageRequest is 1-indexed; any page <= 1 is the first page.
type PageRequest struct {
	Page int
	Size int
}

func (p PageRequest) Normalize(defaultSize int) PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Size <= 0 {
		p.Size = defaultSize
	}
	return p
}

func (p PageRequest) Offset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.Size
}

// Page mirrors the listing shape the clients expect: {"data": [...], "total": pages}.
type Page[T any] struct {
	Items      []T `json:"data"`
	TotalPages int `json:"total"`
	Page       int `json:"page"`
}

func TotalPages(count int64, size int) int {
	if count <= 0 || size <= 0 {
		return 0
	}
	return int((count + int64(size) - 1) / int64(size))
}
