package contentful

// Resource is the collection segment of a management API path.
type Resource string

const (
	ResourceEntry       Resource = "entries"
	ResourceAsset       Resource = "assets"
	ResourceContentType Resource = "content_types"
)

// Sys is the system metadata Contentful attaches to every resource.
type Sys struct {
	ID               string `json:"id"`
	Type             string `json:"type,omitempty"`
	Version          int    `json:"version,omitempty"`
	CreatedAt        string `json:"createdAt,omitempty"`
	UpdatedAt        string `json:"updatedAt,omitempty"`
	PublishedVersion *int   `json:"publishedVersion,omitempty"`
}

// Ref identifies a resource together with the version last observed for it.
type Ref struct {
	ID      string
	Version int
}

// Localized is one field's values keyed by locale code.
type Localized map[string]any

// Fields is the field payload of an entry, keyed by field id.
type Fields map[string]Localized

// Entry is an entry as returned by the management API.
type Entry struct {
	Sys    Sys    `json:"sys"`
	Fields Fields `json:"fields,omitempty"`
}

// LinkSys is the sys block of a link to another entry or asset.
type LinkSys struct {
	Type     string `json:"type"`
	LinkType string `json:"linkType"`
	ID       string `json:"id"`
}

// Link references an entry or asset from a field value.
type Link struct {
	Sys LinkSys `json:"sys"`
}

// EntryLink returns a link to the entry with the given id.
func EntryLink(id string) Link {
	return Link{Sys: LinkSys{Type: "Link", LinkType: "Entry", ID: id}}
}

// AssetLink returns a link to the asset with the given id.
func AssetLink(id string) Link {
	return Link{Sys: LinkSys{Type: "Link", LinkType: "Asset", ID: id}}
}

// AssetFile is the per-locale file descriptor of an asset. Upload is set
// when the file is to be fetched from a remote URL; URL is filled in by
// Contentful once processing has finished.
type AssetFile struct {
	URL         string `json:"url,omitempty"`
	Upload      string `json:"upload,omitempty"`
	FileName    string `json:"fileName,omitempty"`
	ContentType string `json:"contentType,omitempty"`
}

// AssetFields holds the localized fields of an asset.
type AssetFields struct {
	Title       map[string]string    `json:"title,omitempty"`
	Description map[string]string    `json:"description,omitempty"`
	File        map[string]AssetFile `json:"file,omitempty"`
}

// Asset is an asset as returned by the management API.
type Asset struct {
	Sys    Sys         `json:"sys"`
	Fields AssetFields `json:"fields"`
}

// AssetUpload describes an asset whose bytes Contentful fetches from
// RemoteURL itself.
type AssetUpload struct {
	ID          string
	Title       string
	Description string
	FileName    string
	ContentType string
	RemoteURL   string
}

// FieldItems describes the element type of an Array field.
type FieldItems struct {
	Type     string `json:"type"`
	LinkType string `json:"linkType,omitempty"`
}

// Field is one field of a content type definition.
type Field struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	Required    bool        `json:"required,omitempty"`
	Localized   bool        `json:"localized,omitempty"`
	LinkType    string      `json:"linkType,omitempty"`
	Items       *FieldItems `json:"items,omitempty"`
	Validations []any       `json:"validations,omitempty"`
}

// ContentType is a content type definition.
type ContentType struct {
	Sys          *Sys    `json:"sys,omitempty"`
	Name         string  `json:"name"`
	DisplayField string  `json:"displayField"`
	Fields       []Field `json:"fields"`
}
