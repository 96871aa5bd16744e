// Package platform models the chat-platform objects the tracker reacts to and
// the outbound direct-message surface it calls.
package platform

// Message is one delivered chat message. The tracker never connects to the
// platform itself; messages arrive from an external session.
type Message struct {
	AuthorID    string  `json:"author_id"`
	AuthorName  string  `json:"author_name"`
	IsBot       bool    `json:"is_bot"`
	TextContent string  `json:"text_content"`
	Embeds      []Embed `json:"embeds"`
}

// Embed is the subset of an embed the tracker reads. Absent sub-fields are
// empty strings, never probed dynamically.
type Embed struct {
	Title        string       `json:"title"`
	AuthorLine   string       `json:"author_line"`
	Description  string       `json:"description"`
	FooterText   string       `json:"footer_text"`
	AccentColor  int          `json:"accent_color"`
	ImageURL     string       `json:"image_url"`
	ThumbnailURL string       `json:"thumbnail_url"`
	Fields       []EmbedField `json:"fields"`
}

type EmbedField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// FirstEmbed returns the first attached embed, or nil when there is none.
func (m *Message) FirstEmbed() *Embed {
	if len(m.Embeds) == 0 {
		return nil
	}
	return &m.Embeds[0]
}

// DMPayload is the embed sent in a notification DM.
type DMPayload struct {
	Title        string
	Description  string
	Color        int
	ImageURL     string
	ThumbnailURL string
}
