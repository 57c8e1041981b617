package domain

// Domain contains core models shared across packages.

// Clip is the metadata extracted from a web page before it is written to Notion.
type Clip struct {
	URL         string
	Title       string
	Description string
	ImageURL    string
}

// Empty reports whether no metadata was found.
func (c Clip) Empty() bool {
	return c.Title == "" && c.Description == "" && c.ImageURL == ""
}
