// Package wordpress reads content from the public WordPress REST API (wp/v2).
package wordpress

// Rendered is a WordPress field that carries server-rendered HTML.
type Rendered struct {
	Rendered  string `json:"rendered"`
	Protected bool   `json:"protected"`
}

// Term is a category or tag.
type Term struct {
	ID          int    `json:"id"`
	Count       int    `json:"count"`
	Description string `json:"description"`
	Link        string `json:"link"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Taxonomy    string `json:"taxonomy"`
	Parent      int    `json:"parent,omitempty"`
}

// Media is an attachment from the media library.
type Media struct {
	ID        int      `json:"id"`
	Date      string   `json:"date"`
	Slug      string   `json:"slug"`
	SourceURL string   `json:"source_url"`
	AltText   string   `json:"alt_text"`
	Title     Rendered `json:"title"`
	MediaType string   `json:"media_type"`
	MimeType  string   `json:"mime_type"`
}

// User is the public view of a post author.
type User struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	URL         string `json:"url,omitempty"`
	Description string `json:"description,omitempty"`
}

// Embedded holds the related objects returned inline when `_embed=1` is requested.
type Embedded struct {
	Author        []User   `json:"author,omitempty"`
	FeaturedMedia []Media  `json:"wp:featuredmedia,omitempty"`
	Terms         [][]Term `json:"wp:term,omitempty"`
}

// Document holds the fields pages and posts share.
type Document struct {
	ID            int       `json:"id"`
	Date          string    `json:"date"`
	Modified      string    `json:"modified"`
	Slug          string    `json:"slug"`
	Status        string    `json:"status"`
	Type          string    `json:"type"`
	Link          string    `json:"link"`
	Title         Rendered  `json:"title"`
	Content       Rendered  `json:"content"`
	Excerpt       Rendered  `json:"excerpt"`
	Author        int       `json:"author"`
	FeaturedMedia int       `json:"featured_media"`
	Embedded      *Embedded `json:"_embedded,omitempty"`
}

// Page is a WordPress page.
type Page struct {
	Document
	Parent int `json:"parent"`
}

// Post is a WordPress post.
type Post struct {
	Document
	Categories []int `json:"categories"`
	Tags       []int `json:"tags"`
}

// EmbeddedAuthor returns the first embedded author, if the response carried one.
func (d *Document) EmbeddedAuthor() (User, bool) {
	if d.Embedded == nil || len(d.Embedded.Author) == 0 {
		return User{}, false
	}
	return d.Embedded.Author[0], true
}

// EmbeddedFeaturedImageURL returns the source URL of the embedded featured
// media, or "" when none was embedded.
func (d *Document) EmbeddedFeaturedImageURL() string {
	if d.Embedded == nil || len(d.Embedded.FeaturedMedia) == 0 {
		return ""
	}
	return d.Embedded.FeaturedMedia[0].SourceURL
}

// Snapshot is every piece of content read from a site in one run.
type Snapshot struct {
	Categories []Term  `json:"categories"`
	Tags       []Term  `json:"tags"`
	Media      []Media `json:"media"`
	Pages      []Page  `json:"pages"`
	Posts      []Post  `json:"posts"`
}
