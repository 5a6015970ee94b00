package testutil

import (
	"context"
	"fmt"
	"sync"

	"wp-migrate/internal/wordpress"
)

// FakeSource serves a fixed snapshot. Safe for concurrent use.
type FakeSource struct {
	mu       sync.Mutex
	Snapshot wordpress.Snapshot
	Err      error // returned by every fetch when set
	Fetches  int
}

// NewFakeSource creates a source serving snap.
func NewFakeSource(snap wordpress.Snapshot) *FakeSource {
	return &FakeSource{Snapshot: snap}
}

func (s *FakeSource) FetchAll(context.Context) (*wordpress.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fetches++
	if s.Err != nil {
		return nil, s.Err
	}
	snap := s.Snapshot
	return &snap, nil
}

func (s *FakeSource) FetchMedia(context.Context) ([]wordpress.Media, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fetches++
	if s.Err != nil {
		return nil, s.Err
	}
	return append([]wordpress.Media(nil), s.Snapshot.Media...), nil
}

// Term builds a category or tag.
func Term(id int, name string) wordpress.Term {
	return wordpress.Term{ID: id, Name: name, Slug: fmt.Sprintf("term-%d", id)}
}

// Image builds an image media item served from sourceURL.
func Image(id int, sourceURL string) wordpress.Media {
	return wordpress.Media{
		ID:        id,
		Slug:      fmt.Sprintf("image-%d", id),
		SourceURL: sourceURL,
		Title:     wordpress.Rendered{Rendered: fmt.Sprintf("Image %d", id)},
		MediaType: "image",
		MimeType:  "image/jpeg",
	}
}

// Document builds the shared part of a page or post by author with an
// embedded author record.
func Document(id int, slug string, author int) wordpress.Document {
	return wordpress.Document{
		ID:       id,
		Date:     "2023-01-01T10:00:00",
		Modified: "2023-01-02T10:00:00",
		Slug:     slug,
		Status:   "publish",
		Link:     "https://blog.example.com/" + slug + "/",
		Title:    wordpress.Rendered{Rendered: "Title " + slug},
		Content:  wordpress.Rendered{Rendered: "<p>" + slug + "</p>"},
		Excerpt:  wordpress.Rendered{Rendered: "<p>excerpt</p>"},
		Author:   author,
		Embedded: &wordpress.Embedded{
			Author: []wordpress.User{{ID: author, Name: fmt.Sprintf("Writer %d", author), Slug: fmt.Sprintf("writer-%d", author)}},
		},
	}
}
