package encryption

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"filippo.io/age"

	"wp-migrate/internal/config"
	"wp-migrate/internal/migrate"
)

var (
	// ErrKeysExist is returned by Setup when a key pair is already in place.
	ErrKeysExist = errors.New("encryption keys already exist")
	// ErrEmptyPassphrase is returned by Setup for an empty passphrase.
	ErrEmptyPassphrase = errors.New("passphrase must not be empty")
)

// AgeEncryptor seals run artifacts (snapshot.json, redirects.csv) to an age
// X25519 recipient. Imports read only the plaintext public key and so run
// unattended. The private key is kept scrypt-sealed under a passphrase and
// is only opened by `wpm archive get`.
type AgeEncryptor struct {
	keys      keyFiles
	recipient age.Recipient
}

var _ migrate.Encryptor = (*AgeEncryptor)(nil)

// NewAgeEncryptor creates a new AgeEncryptor from configuration.
func NewAgeEncryptor(cfg config.EncryptionConfig) *AgeEncryptor {
	return &AgeEncryptor{keys: keyFiles{public: cfg.PublicKeyPath, private: cfg.PrivateKeyPath}}
}

// Setup generates the key pair. An existing pair is never replaced, since
// artifacts already archived to it would become unreadable.
func (e *AgeEncryptor) Setup(passphrase string) error {
	if passphrase == "" {
		return ErrEmptyPassphrase
	}
	if e.keys.exist() {
		return ErrKeysExist
	}

	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return fmt.Errorf("generating key pair: %w", err)
	}
	return e.keys.write(identity, passphrase)
}

// Encrypt seals everything read from r to the archive recipient.
func (e *AgeEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if e.recipient == nil {
		recipient, err := e.keys.readRecipient()
		if err != nil {
			return fmt.Errorf("loading public key: %w", err)
		}
		e.recipient = recipient
	}
	return seal(w, r, e.recipient)
}

// Unlock opens the private key with passphrase.
func (e *AgeEncryptor) Unlock(passphrase string) (migrate.DecryptionContext, error) {
	identity, err := e.keys.readIdentity(passphrase)
	if err != nil {
		return nil, err
	}
	return &AgeDecryptionContext{identity: identity}, nil
}

// IsConfigured returns true if both key files exist.
func (e *AgeEncryptor) IsConfigured() bool {
	return e.keys.exist()
}

// AgeDecryptionContext holds an unlocked identity for one command.
type AgeDecryptionContext struct {
	identity age.Identity
}

var _ migrate.DecryptionContext = (*AgeDecryptionContext)(nil)

// Decrypt reads an age file from r and writes the plaintext to w.
func (c *AgeDecryptionContext) Decrypt(r io.Reader, w io.Writer) error {
	plain, err := age.Decrypt(r, c.identity)
	if err != nil {
		return fmt.Errorf("opening artifact: %w", err)
	}
	if _, err := io.Copy(w, plain); err != nil {
		return fmt.Errorf("decrypting artifact: %w", err)
	}
	return nil
}

// seal writes src to dst as an age file for the given recipients.
func seal(dst io.Writer, src io.Reader, recipients ...age.Recipient) error {
	w, err := age.Encrypt(dst, recipients...)
	if err != nil {
		return fmt.Errorf("starting age stream: %w", err)
	}
	if _, err := io.Copy(w, src); err != nil {
		return fmt.Errorf("encrypting: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finishing age stream: %w", err)
	}
	return nil
}

// keyFiles is the on-disk location of an archive key pair: the recipient
// string in plaintext and the identity sealed with an scrypt passphrase.
type keyFiles struct {
	public  string
	private string
}

func (k keyFiles) exist() bool {
	for _, p := range []string{k.public, k.private} {
		if _, err := os.Stat(p); err != nil {
			return false
		}
	}
	return true
}

// write stores both halves of identity. Each file is written to a temp file
// and renamed into place so a failed Setup never leaves half a key behind.
func (k keyFiles) write(identity *age.X25519Identity, passphrase string) error {
	scrypt, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return fmt.Errorf("creating scrypt recipient: %w", err)
	}

	var sealed bytes.Buffer
	if err := seal(&sealed, bytes.NewBufferString(identity.String()+"\n"), scrypt); err != nil {
		return fmt.Errorf("sealing private key: %w", err)
	}

	if err := writeKeyFile(k.private, sealed.Bytes(), 0600); err != nil {
		return fmt.Errorf("writing private key: %w", err)
	}
	if err := writeKeyFile(k.public, []byte(identity.Recipient().String()+"\n"), 0644); err != nil {
		os.Remove(k.private)
		return fmt.Errorf("writing public key: %w", err)
	}
	return nil
}

func (k keyFiles) readRecipient() (age.Recipient, error) {
	data, err := os.ReadFile(k.public)
	if err != nil {
		return nil, err
	}
	recipients, err := age.ParseRecipients(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", k.public, err)
	}
	if len(recipients) == 0 {
		return nil, fmt.Errorf("no recipient in %s", k.public)
	}
	return recipients[0], nil
}

func (k keyFiles) readIdentity(passphrase string) (age.Identity, error) {
	f, err := os.Open(k.private)
	if err != nil {
		return nil, fmt.Errorf("opening private key: %w", err)
	}
	defer f.Close()

	scrypt, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt identity: %w", err)
	}
	plain, err := age.Decrypt(f, scrypt)
	if err != nil {
		return nil, fmt.Errorf("unsealing private key: %w", err)
	}

	identities, err := age.ParseIdentities(plain)
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}
	if len(identities) == 0 {
		return nil, fmt.Errorf("no identity in %s", k.private)
	}
	return identities[0], nil
}

func writeKeyFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".key-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
