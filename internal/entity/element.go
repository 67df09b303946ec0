package entity

import "context"

// ElementHandle is a live element resolved on a page.
type ElementHandle interface {
	Click(ctx context.Context) error
	Fill(ctx context.Context, value string) error
	Text(ctx context.Context) (string, error)
}

// Element is one row of a DOM snapshot: what a finder can see about an element
// without holding a handle to it.
type Element struct {
	Tag         string
	Text        string
	Selector    string
	Attributes  map[string]string
	Visible     bool
	Clickable   bool
	BoundingBox BoundingBox
}

type BoundingBox struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}
