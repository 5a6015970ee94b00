package migrate

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"wp-migrate/internal/contentful"
	"wp-migrate/internal/model"
	"wp-migrate/internal/redirects"
	"wp-migrate/internal/wordpress"
)

// ImportResult is everything an import produced.
type ImportResult struct {
	Redirects []redirects.Row // pages first, then posts, in source order

	Categories IDMap
	Tags       IDMap
	Authors    IDMap
	Pages      IDMap
	Posts      IDMap

	Warnings []model.Warning
}

// Mappings returns the id maps keyed by kind.
func (r *ImportResult) Mappings() map[Kind]IDMap {
	return map[Kind]IDMap{
		KindCategory: r.Categories,
		KindTag:      r.Tags,
		KindAuthor:   r.Authors,
		KindPage:     r.Pages,
		KindArticle:  r.Posts,
	}
}

// ProvisionModel creates or updates every content type of the content model
// and publishes it.
func (s *Service) ProvisionModel(ctx context.Context) error {
	for _, ct := range ContentTypes() {
		id := string(ct.Kind)
		version, err := s.dest.PutContentType(ctx, id, ct.Definition)
		if err != nil {
			return fmt.Errorf("provisioning %s: %w", id, err)
		}
		if _, err := s.dest.PublishContentType(ctx, id, version); err != nil {
			return fmt.Errorf("provisioning %s: %w", id, err)
		}
		s.logger.Info("content type published", "kind", id, "version", version)
	}
	return nil
}

// Import runs a full migration: provisions the content model, reads the
// whole site, writes it to Contentful and records the outcome under runID.
func (s *Service) Import(ctx context.Context, runID string) (*ImportResult, error) {
	start := s.clock.Now()

	if err := s.ProvisionModel(ctx); err != nil {
		return nil, err
	}

	snap, err := s.source.FetchAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching content: %w", err)
	}
	s.logger.Info("content fetched",
		"categories", len(snap.Categories), "tags", len(snap.Tags), "media", len(snap.Media),
		"pages", len(snap.Pages), "posts", len(snap.Posts))

	if s.archive != nil {
		data, err := json.Marshal(snap)
		if err != nil {
			return nil, fmt.Errorf("encoding snapshot: %w", err)
		}
		if _, err := s.archiveArtifact(ctx, runID, "snapshot.json", data); err != nil {
			return nil, err
		}
	}

	result, err := s.ImportSnapshot(ctx, snap)
	if err != nil {
		return nil, err
	}

	for kind, ids := range result.Mappings() {
		if err := s.store.RecordMappings(runID, string(kind), ids); err != nil {
			return nil, fmt.Errorf("recording %s mappings: %w", kind, err)
		}
	}
	if err := s.store.RecordWarnings(runID, result.Warnings); err != nil {
		return nil, fmt.Errorf("recording warnings: %w", err)
	}

	if _, err := s.archiveArtifact(ctx, runID, "redirects.csv", redirects.Encode(result.Redirects)); err != nil {
		return nil, err
	}

	s.logger.Info("import complete", "redirects", len(result.Redirects), "warnings", len(result.Warnings),
		"elapsed", s.clock.Now().Sub(start).String())
	return result, nil
}

// ImportSnapshot writes snap to Contentful in dependency order: categories,
// tags and authors first so pages and posts can link to them.
func (s *Service) ImportSnapshot(ctx context.Context, snap *wordpress.Snapshot) (*ImportResult, error) {
	w := &warningLog{logger: s.logger}
	media := make(map[int]wordpress.Media, len(snap.Media))
	for _, m := range snap.Media {
		media[m.ID] = m
	}

	categories, err := s.importTerms(ctx, KindCategory, snap.Categories)
	if err != nil {
		return nil, err
	}
	tags, err := s.importTerms(ctx, KindTag, snap.Tags)
	if err != nil {
		return nil, err
	}
	authors, err := s.importAuthors(ctx, snap)
	if err != nil {
		return nil, err
	}

	links := linkMaps{authors: authors, categories: categories, tags: tags}

	pages := IDMap{}
	var rows []redirects.Row
	for _, p := range snap.Pages {
		fields, err := s.documentFields(ctx, KindPage, &p.Document, links, media, w)
		if err != nil {
			return nil, err
		}
		id, err := s.upsertEntry(ctx, KindPage, p.ID, fields)
		if err != nil {
			return nil, err
		}
		pages[p.ID] = id
		rows = append(rows, redirects.Row{OldURL: p.Link, NewURL: "/" + p.Slug})
	}

	posts := IDMap{}
	for _, p := range snap.Posts {
		fields, err := s.documentFields(ctx, KindArticle, &p.Document, links, media, w)
		if err != nil {
			return nil, err
		}
		fields["featuredImageUrl"] = s.loc(p.EmbeddedFeaturedImageURL())
		fields["categories"] = s.loc(entryLinks(p.Categories, categories, KindArticle, p.ID, "category", w))
		fields["tags"] = s.loc(entryLinks(p.Tags, tags, KindArticle, p.ID, "tag", w))

		id, err := s.upsertEntry(ctx, KindArticle, p.ID, fields)
		if err != nil {
			return nil, err
		}
		posts[p.ID] = id
		rows = append(rows, redirects.Row{OldURL: p.Link, NewURL: "/posts/" + p.Slug})
	}

	return &ImportResult{
		Redirects:  rows,
		Categories: categories,
		Tags:       tags,
		Authors:    authors,
		Pages:      pages,
		Posts:      posts,
		Warnings:   w.items,
	}, nil
}

type linkMaps struct {
	authors    IDMap
	categories IDMap
	tags       IDMap
}

// loc wraps v in the destination locale.
func (s *Service) loc(v any) contentful.Localized {
	return contentful.Localized{s.dest.Locale(): v}
}

func (s *Service) importTerms(ctx context.Context, kind Kind, terms []wordpress.Term) (IDMap, error) {
	ids := IDMap{}
	for _, t := range terms {
		fields := contentful.Fields{
			SourceIDField: s.loc(t.ID),
			"name":        s.loc(t.Name),
			"slug":        s.loc(t.Slug),
			"description": s.loc(t.Description),
		}
		id, err := s.upsertEntry(ctx, kind, t.ID, fields)
		if err != nil {
			return nil, err
		}
		ids[t.ID] = id
	}
	return ids, nil
}

// documentAuthor returns the author embedded in d, or a placeholder built
// from the bare author id when the response carried no embed.
func documentAuthor(d *wordpress.Document) wordpress.User {
	if u, ok := d.EmbeddedAuthor(); ok {
		return u
	}
	return wordpress.User{
		ID:   d.Author,
		Name: fmt.Sprintf("Author %d", d.Author),
		Slug: fmt.Sprintf("author-%d", d.Author),
	}
}

// uniqueAuthors collects the authors of all pages and posts, one per id,
// ordered by id. Later occurrences replace earlier ones.
func uniqueAuthors(snap *wordpress.Snapshot) []wordpress.User {
	byID := map[int]wordpress.User{}
	for i := range snap.Pages {
		u := documentAuthor(&snap.Pages[i].Document)
		byID[u.ID] = u
	}
	for i := range snap.Posts {
		u := documentAuthor(&snap.Posts[i].Document)
		byID[u.ID] = u
	}

	authors := make([]wordpress.User, 0, len(byID))
	for _, u := range byID {
		authors = append(authors, u)
	}
	slices.SortFunc(authors, func(a, b wordpress.User) int { return cmp.Compare(a.ID, b.ID) })
	return authors
}

func (s *Service) importAuthors(ctx context.Context, snap *wordpress.Snapshot) (IDMap, error) {
	ids := IDMap{}
	for _, a := range uniqueAuthors(snap) {
		fields := contentful.Fields{
			SourceIDField: s.loc(a.ID),
			"name":        s.loc(a.Name),
			"slug":        s.loc(a.Slug),
			"description": s.loc(a.Description),
		}
		id, err := s.upsertEntry(ctx, KindAuthor, a.ID, fields)
		if err != nil {
			return nil, err
		}
		ids[a.ID] = id
	}
	return ids, nil
}

// documentFields builds the fields pages and posts share, ingesting the
// featured image if the document has one.
func (s *Service) documentFields(ctx context.Context, kind Kind, d *wordpress.Document, links linkMaps, media map[int]wordpress.Media, w *warningLog) (contentful.Fields, error) {
	fields := contentful.Fields{
		SourceIDField: s.loc(d.ID),
		"title":       s.loc(d.Title.Rendered),
		"slug":        s.loc(d.Slug),
		"date":        s.loc(d.Date),
		"modified":    s.loc(d.Modified),
		"excerptHtml": s.loc(d.Excerpt.Rendered),
		"oldUrl":      s.loc(d.Link),
		"sourceUrl":   s.loc(d.Link),
	}

	chunks, truncated := SplitChunks(d.Content.Rendered, MaxChunkChars, MaxChunks)
	for i, c := range chunks {
		fields[bodyFieldIDs[i]] = s.loc(c)
	}
	if truncated {
		w.add(kind, d.ID, ReasonBodyTruncated)
	}

	if m, ok := media[d.FeaturedMedia]; ok {
		assetID, ready, err := s.ingestAsset(ctx, m, m.SourceURL)
		switch {
		case errors.Is(err, ErrMalformedRemoteURL):
			w.add(kind, d.ID, ReasonMalformedURL, m.SourceURL)
		case err != nil:
			return nil, fmt.Errorf("ingesting featured media %d of %s %d: %w", m.ID, kind, d.ID, err)
		default:
			if !ready {
				w.add(kind, d.ID, ReasonAssetNotReady, assetID)
			}
			fields["featuredImage"] = s.loc(contentful.AssetLink(assetID))
		}
	}

	if id, ok := links.authors[d.Author]; ok {
		fields["author"] = s.loc(contentful.EntryLink(id))
	}
	return fields, nil
}

// entryLinks resolves WordPress ids to entry links, dropping ids that were
// not migrated.
func entryLinks(ids []int, mapped IDMap, kind Kind, sourceID int, termName string, w *warningLog) []contentful.Link {
	links := []contentful.Link{}
	for _, id := range ids {
		entryID, ok := mapped[id]
		if !ok {
			w.add(kind, sourceID, ReasonUnmappedTerm, termName, id)
			continue
		}
		links = append(links, contentful.EntryLink(entryID))
	}
	return links
}
