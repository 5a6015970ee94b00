package encryption

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestTestEncryptor_RoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input []byte
	}{
		{name: "redirects csv", input: []byte(`oldUrl,newUrl` + "\n" + `"https://example.org/a/","/a"`)},
		{name: "empty", input: []byte{}},
		{name: "binary", input: []byte{0x00, 0xff, 0x5a, 0xfe}},
		{name: "larger than one buffer", input: bytes.Repeat([]byte("abcdef"), 10000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := NewTestEncryptor()

			var sealed bytes.Buffer
			if err := e.Encrypt(bytes.NewReader(tt.input), &sealed); err != nil {
				t.Fatalf("Encrypt() error = %v", err)
			}
			if !strings.HasPrefix(sealed.String(), sealedMarker) {
				t.Errorf("sealed output = %q, want %q prefix", sealed.String(), sealedMarker)
			}
			if sealed.Len() != len(sealedMarker)+len(tt.input) {
				t.Errorf("sealed length = %d, want %d", sealed.Len(), len(sealedMarker)+len(tt.input))
			}

			dec, err := e.Unlock("anything")
			if err != nil {
				t.Fatalf("Unlock() error = %v", err)
			}
			var plain bytes.Buffer
			if err := dec.Decrypt(&sealed, &plain); err != nil {
				t.Fatalf("Decrypt() error = %v", err)
			}
			if !bytes.Equal(plain.Bytes(), tt.input) {
				t.Errorf("round trip = %q, want %q", plain.Bytes(), tt.input)
			}
		})
	}
}

func TestTestEncryptor_HidesPlaintext(t *testing.T) {
	t.Parallel()
	e := NewTestEncryptor()

	var sealed bytes.Buffer
	if err := e.Encrypt(strings.NewReader("oldUrl,newUrl"), &sealed); err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if strings.Contains(sealed.String(), "oldUrl") {
		t.Errorf("sealed output %q contains the plaintext", sealed.String())
	}

	var again bytes.Buffer
	if err := e.Encrypt(strings.NewReader("oldUrl,newUrl"), &again); err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if !bytes.Equal(sealed.Bytes(), again.Bytes()) {
		t.Error("same input sealed differently")
	}
}

func TestTestEncryptor_Passphrase(t *testing.T) {
	t.Parallel()
	e := NewTestEncryptor()

	if err := e.Setup(""); !errors.Is(err, ErrEmptyPassphrase) {
		t.Errorf("Setup(\"\") error = %v, want ErrEmptyPassphrase", err)
	}
	if err := e.Setup("s3cret"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if _, err := e.Unlock("wrong"); !errors.Is(err, ErrWrongPassphrase) {
		t.Errorf("Unlock(wrong) error = %v, want ErrWrongPassphrase", err)
	}
	if _, err := e.Unlock("s3cret"); err != nil {
		t.Errorf("Unlock(s3cret) error = %v", err)
	}
	if !e.IsConfigured() {
		t.Error("IsConfigured() = false, want true")
	}
}

func TestTestDecryptionContext_Rejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
	}{
		{name: "plaintext", input: "oldUrl,newUrl\n\"/a\",\"/b\""},
		{name: "truncated marker", input: "wpm-test"},
		{name: "empty", input: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var out bytes.Buffer
			if err := (&TestDecryptionContext{}).Decrypt(strings.NewReader(tt.input), &out); err == nil {
				t.Error("Decrypt() expected error, got nil")
			}
		})
	}
}
