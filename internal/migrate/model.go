package migrate

import "wp-migrate/internal/contentful"

// Kind is the Contentful content type a WordPress object is migrated to.
type Kind string

const (
	KindAuthor   Kind = "wpAuthor"
	KindCategory Kind = "wpCategory"
	KindTag      Kind = "wpTag"
	KindPage     Kind = "wpPage"
	KindArticle  Kind = "wpArticle"
)

// SourceIDField holds the WordPress id on every migrated entry. Lookups by
// this field are what make imports idempotent.
const SourceIDField = "wpId"

// CleanupOrder is the order the duplicate cleanup walks the kinds in.
var CleanupOrder = []Kind{KindArticle, KindPage, KindCategory, KindTag, KindAuthor}

// ContentTypeDef pairs a kind with its content type definition.
type ContentTypeDef struct {
	Kind       Kind
	Definition contentful.ContentType
}

func sourceIDField() contentful.Field {
	return contentful.Field{ID: SourceIDField, Name: SourceIDField, Type: "Integer", Required: true}
}

func field(id, typ string, required bool) contentful.Field {
	return contentful.Field{ID: id, Name: id, Type: typ, Required: required}
}

func linkField(id, linkType string) contentful.Field {
	return contentful.Field{ID: id, Name: id, Type: "Link", LinkType: linkType}
}

func linkArrayField(id string) contentful.Field {
	return contentful.Field{ID: id, Name: id, Type: "Array", Items: &contentful.FieldItems{Type: "Link", LinkType: "Entry"}}
}

func termFields() []contentful.Field {
	return []contentful.Field{
		sourceIDField(),
		field("name", "Symbol", true),
		field("slug", "Symbol", true),
		field("description", "Text", false),
	}
}

func bodyChunkFields() []contentful.Field {
	fields := make([]contentful.Field, 0, len(bodyFieldIDs))
	for _, id := range bodyFieldIDs {
		fields = append(fields, field(id, "Text", false))
	}
	return fields
}

func pageFields() []contentful.Field {
	fields := []contentful.Field{
		sourceIDField(),
		field("title", "Symbol", true),
		field("slug", "Symbol", true),
		field("date", "Date", true),
		field("modified", "Date", false),
	}
	fields = append(fields, bodyChunkFields()...)
	return append(fields,
		field("excerptHtml", "Text", false),
		linkField("featuredImage", "Asset"),
		field("oldUrl", "Symbol", false),
		field("sourceUrl", "Symbol", false),
		linkField("author", "Entry"),
	)
}

func articleFields() []contentful.Field {
	fields := []contentful.Field{
		sourceIDField(),
		field("title", "Symbol", true),
		field("slug", "Symbol", true),
		field("date", "Date", true),
		field("modified", "Date", false),
	}
	fields = append(fields, bodyChunkFields()...)
	return append(fields,
		field("excerptHtml", "Text", false),
		field("featuredImageUrl", "Symbol", false),
		linkField("featuredImage", "Asset"),
		field("oldUrl", "Symbol", false),
		field("sourceUrl", "Symbol", false),
		linkField("author", "Entry"),
		linkArrayField("categories"),
		linkArrayField("tags"),
	)
}

// ContentTypes returns the content model, in provisioning order.
func ContentTypes() []ContentTypeDef {
	return []ContentTypeDef{
		{Kind: KindAuthor, Definition: contentful.ContentType{Name: "Author", DisplayField: "name", Fields: termFields()}},
		{Kind: KindCategory, Definition: contentful.ContentType{Name: "Category", DisplayField: "name", Fields: termFields()}},
		{Kind: KindTag, Definition: contentful.ContentType{Name: "Tag", DisplayField: "name", Fields: termFields()}},
		{Kind: KindPage, Definition: contentful.ContentType{Name: "Page", DisplayField: "title", Fields: pageFields()}},
		{Kind: KindArticle, Definition: contentful.ContentType{Name: "Article", DisplayField: "title", Fields: articleFields()}},
	}
}
