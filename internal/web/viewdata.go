package web

// HeadData is rendered by the base layout on every page.
type HeadData struct {
	Title   string
	Hydrate *HydrateData
}

// SetTitle lets the page controller write the document title.
func (h *HeadData) SetTitle(title string) { h.Title = title }

// HydrateData tells the browser script how to attach to the server render.
type HydrateData struct {
	Section   string
	Ticket    string
	SocketURL string
}

// Page wraps shared Head + page-specific Content.
type Page[T any] struct {
	Head    HeadData
	Content T
}
