package migrate

import (
	"strings"
	"testing"
)

func TestSplitChunks(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		size, limit   int
		wantParts     int
		wantTruncated bool
	}{
		{"empty", "", 10, 4, 0, false},
		{"shorter than one part", "abc", 10, 4, 1, false},
		{"exactly one part", strings.Repeat("a", 10), 10, 4, 1, false},
		{"one over a part", strings.Repeat("a", 11), 10, 4, 2, false},
		{"fills every part", strings.Repeat("a", 40), 10, 4, 4, false},
		{"over the limit", strings.Repeat("a", 41), 10, 4, 4, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parts, truncated := SplitChunks(tt.input, tt.size, tt.limit)
			if len(parts) != tt.wantParts {
				t.Errorf("parts = %d, want %d", len(parts), tt.wantParts)
			}
			if truncated != tt.wantTruncated {
				t.Errorf("truncated = %v, want %v", truncated, tt.wantTruncated)
			}

			joined := strings.Join(parts, "")
			if !strings.HasPrefix(tt.input, joined) {
				t.Errorf("parts do not reassemble a prefix of the input")
			}
			if !truncated && joined != tt.input {
				t.Errorf("joined = %q, want %q", joined, tt.input)
			}
			for i, p := range parts {
				if n := UTF16Len(p); n > tt.size {
					t.Errorf("part %d has %d code units, want at most %d", i, n, tt.size)
				}
			}
		})
	}
}

func TestSplitChunks_CountsCharacters(t *testing.T) {
	s := strings.Repeat("é", 5) + strings.Repeat("ü", 5)

	parts, truncated := SplitChunks(s, 5, 4)
	if truncated {
		t.Error("truncated = true, want false")
	}
	if len(parts) != 2 || parts[0] != strings.Repeat("é", 5) || parts[1] != strings.Repeat("ü", 5) {
		t.Errorf("parts = %q, want split on the character boundary", parts)
	}
}

func TestSplitChunks_CountsUTF16Units(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		size      int
		wantParts []string
	}{
		{"emoji take two units", strings.Repeat("😀", 4), 4, []string{"😀😀", "😀😀"}},
		{"pair moves to the next part", "abc😀d", 4, []string{"abc", "😀d"}},
		{"mixed widths", "é😀é😀", 3, []string{"é😀", "é😀"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parts, truncated := SplitChunks(tt.input, tt.size, 4)
			if truncated {
				t.Error("truncated = true, want false")
			}
			if strings.Join(parts, "|") != strings.Join(tt.wantParts, "|") {
				t.Errorf("parts = %q, want %q", parts, tt.wantParts)
			}
		})
	}
}

func TestSplitChunks_EmojiBodyStaysUnderFieldLimit(t *testing.T) {
	// 110001 code units in 70001 runes.
	body := strings.Repeat("a", 30001) + strings.Repeat("😀", 40000)

	parts, truncated := SplitChunks(body, MaxChunkChars, MaxChunks)
	if truncated {
		t.Error("truncated = true, want false")
	}
	if len(parts) != 3 {
		t.Fatalf("parts = %d, want 3", len(parts))
	}
	if strings.Join(parts, "") != body {
		t.Error("parts do not reassemble the body")
	}
	for i, p := range parts {
		if n := UTF16Len(p); n > MaxChunkChars {
			t.Errorf("part %d has %d code units, want at most %d", i, n, MaxChunkChars)
		}
	}
	if n := UTF16Len(parts[0]); n != MaxChunkChars-1 {
		t.Errorf("part 0 has %d code units, want %d (pair not split)", n, MaxChunkChars-1)
	}

	all := strings.Repeat("😀", MaxChunkChars)
	parts, _ = SplitChunks(all, MaxChunkChars, MaxChunks)
	if len(parts) != 2 || UTF16Len(parts[0]) != MaxChunkChars {
		t.Errorf("%d emoji split into %d parts, first %d units; want 2 parts, first %d units",
			MaxChunkChars, len(parts), UTF16Len(parts[0]), MaxChunkChars)
	}
}

func TestSplitChunks_BodyLimits(t *testing.T) {
	body := strings.Repeat("x", MaxChunkChars*MaxChunks+1)

	parts, truncated := SplitChunks(body, MaxChunkChars, MaxChunks)
	if !truncated {
		t.Error("truncated = false, want true")
	}
	if len(parts) != MaxChunks {
		t.Fatalf("parts = %d, want %d", len(parts), MaxChunks)
	}
	if strings.Join(parts, "") != body[:MaxChunkChars*MaxChunks] {
		t.Error("kept parts are not the leading characters of the body")
	}
}

func TestParseSourceID(t *testing.T) {
	tests := []struct {
		name   string
		value  any
		want   int
		wantOK bool
	}{
		{"json number", float64(42), 42, true},
		{"fractional number", 4.5, 0, false},
		{"int", 7, 7, true},
		{"numeric string", "15", 15, true},
		{"padded string", " 15 ", 15, true},
		{"non-numeric string", "abc", 0, false},
		{"missing", nil, 0, false},
		{"bool", true, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseSourceID(tt.value)
			if ok != tt.wantOK {
				t.Fatalf("parseSourceID(%v) ok = %v, want %v", tt.value, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("parseSourceID(%v) = %d, want %d", tt.value, got, tt.want)
			}
		})
	}
}

func TestNormalizeUploadURL(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"http://cdn.example.com/a.jpg", "https://cdn.example.com/a.jpg", false},
		{"HTTP://cdn.example.com/a.jpg", "https://cdn.example.com/a.jpg", false},
		{"https://cdn.example.com/a.jpg", "https://cdn.example.com/a.jpg", false},
		{"  https://cdn.example.com/a.jpg ", "https://cdn.example.com/a.jpg", false},
		{"ftp://cdn.example.com/a.jpg", "", true},
		{"/wp-content/uploads/a.jpg", "", true},
		{"not a url", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := normalizeUploadURL(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("normalizeUploadURL(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("normalizeUploadURL(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestDuplicateActionString(t *testing.T) {
	a := DuplicateAction{Kind: KindCategory, SourceID: 3, RemoveID: "x", KeepID: "y"}
	if got := a.String(); got != "DRY wpCategory wpId=3 remove=x keep=y" {
		t.Errorf("String() = %q", got)
	}
	a.Executed = true
	if got := a.String(); got != "DELETE wpCategory wpId=3 remove=x keep=y" {
		t.Errorf("String() = %q", got)
	}
}
