package encryption

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"wp-migrate/internal/migrate"
)

// sealedMarker opens every artifact sealed by TestEncryptor.
const sealedMarker = "wpm-test-sealed\n"

// testMask is XORed into every byte so sealed output never contains the
// plaintext.
const testMask = 0x5a

// ErrWrongPassphrase is returned by TestEncryptor.Unlock when the passphrase
// differs from the one given to Setup.
var ErrWrongPassphrase = errors.New("wrong passphrase")

// TestEncryptor is a keyless, deterministic stand-in for AgeEncryptor.
// Until Setup is called any passphrase unlocks it.
type TestEncryptor struct {
	passphrase string
	setUp      bool
}

var _ migrate.Encryptor = (*TestEncryptor)(nil)

// NewTestEncryptor creates a new TestEncryptor.
func NewTestEncryptor() *TestEncryptor {
	return &TestEncryptor{}
}

func (e *TestEncryptor) Setup(passphrase string) error {
	if passphrase == "" {
		return ErrEmptyPassphrase
	}
	e.passphrase = passphrase
	e.setUp = true
	return nil
}

func (e *TestEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := io.WriteString(w, sealedMarker); err != nil {
		return fmt.Errorf("writing marker: %w", err)
	}
	if err := mask(w, r); err != nil {
		return fmt.Errorf("sealing: %w", err)
	}
	return nil
}

func (e *TestEncryptor) Unlock(passphrase string) (migrate.DecryptionContext, error) {
	if e.setUp && passphrase != e.passphrase {
		return nil, ErrWrongPassphrase
	}
	return &TestDecryptionContext{}, nil
}

func (e *TestEncryptor) IsConfigured() bool {
	return true
}

// TestDecryptionContext opens artifacts sealed by TestEncryptor.
type TestDecryptionContext struct{}

var _ migrate.DecryptionContext = (*TestDecryptionContext)(nil)

func (c *TestDecryptionContext) Decrypt(r io.Reader, w io.Writer) error {
	br := bufio.NewReader(r)
	marker := make([]byte, len(sealedMarker))
	if _, err := io.ReadFull(br, marker); err != nil {
		return fmt.Errorf("reading marker: %w", err)
	}
	if !bytes.Equal(marker, []byte(sealedMarker)) {
		return errors.New("not a test-sealed artifact")
	}
	if err := mask(w, br); err != nil {
		return fmt.Errorf("opening: %w", err)
	}
	return nil
}

// mask copies src to dst with every byte XORed with testMask.
func mask(dst io.Writer, src io.Reader) error {
	buf := make([]byte, 32*1024)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			for i := range buf[:n] {
				buf[i] ^= testMask
			}
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
