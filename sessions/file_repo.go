package sessions

import (
	"bytes"
	"encoding/json"
	"maps"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	apperrors "github.com/jrsteele09/vetflow-console/internal/errors"
)

const fileName = "session.json"

var _ Repo = (*FileRepo)(nil)

// fileContents is the on-disk layout. When Salt is set every entry value is
// sealed with a key derived from the configured secret.
type fileContents struct {
	Salt    []byte            `json:"salt,omitempty"`
	Entries map[string]string `json:"entries"`
}

// FileRepo persists session entries as a JSON document inside a data folder.
// Every operation re-reads the file so separate processes share state.
type FileRepo struct {
	path   string
	secret string

	mu     sync.Mutex
	salt   []byte
	sealer *sealer
}

type FileRepoOption func(*FileRepo)

// WithSecret seals stored values using secret. An empty secret leaves
// values in plain text.
func WithSecret(secret string) FileRepoOption {
	return func(r *FileRepo) {
		r.secret = secret
	}
}

// NewFileRepo creates the data folder if needed and returns a repo writing
// to <folder>/session.json.
func NewFileRepo(folder string, options ...FileRepoOption) (*FileRepo, error) {
	if folder == "" {
		return nil, errors.New("[NewFileRepo] folder is required")
	}
	if err := os.MkdirAll(folder, 0o700); err != nil {
		return nil, errors.Wrap(err, "[NewFileRepo] create data folder")
	}
	r := &FileRepo{
		path: filepath.Join(folder, fileName),
	}
	for _, opt := range options {
		opt(r)
	}
	return r, nil
}

// Path returns the file backing the repo.
func (r *FileRepo) Path() string {
	return r.path
}

func (r *FileRepo) Get(key string) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.read()
	if err != nil {
		return "", false, err
	}
	v, ok := entries[key]
	return v, ok, nil
}

func (r *FileRepo) Upsert(values map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.read()
	if err != nil {
		return err
	}
	maps.Copy(entries, values)
	return r.write(entries)
}

func (r *FileRepo) Delete(keys ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.read()
	if err != nil {
		// A corrupt or unreadable store is replaced rather than left behind
		log.Warn().Err(err).Str("path", r.path).Msg("discarding unreadable session store")
		entries = make(map[string]string)
	}
	for _, k := range keys {
		delete(entries, k)
	}
	return r.write(entries)
}

func (r *FileRepo) read() (map[string]string, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "[FileRepo.read]")
	}

	var contents fileContents
	if err := json.Unmarshal(data, &contents); err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrStoreCorrupt, "[FileRepo.read] %s", r.path)
	}
	if contents.Entries == nil {
		contents.Entries = make(map[string]string)
	}
	if len(contents.Salt) == 0 {
		return contents.Entries, nil
	}

	if r.secret == "" {
		return nil, apperrors.Wrapf(apperrors.ErrStoreSealed, "[FileRepo.read] store is sealed but no secret is configured")
	}
	s, err := r.sealerFor(contents.Salt)
	if err != nil {
		return nil, err
	}
	opened := make(map[string]string, len(contents.Entries))
	for k, v := range contents.Entries {
		plain, err := s.open(v)
		if err != nil {
			return nil, apperrors.Wrapf(err, "[FileRepo.read] entry %q", k)
		}
		opened[k] = plain
	}
	return opened, nil
}

// write replaces the file atomically via a temp file and rename.
func (r *FileRepo) write(entries map[string]string) error {
	contents := fileContents{Entries: entries}
	if r.secret != "" && len(entries) > 0 {
		salt := r.salt
		if len(salt) == 0 {
			var err error
			if salt, err = newSalt(); err != nil {
				return err
			}
		}
		s, err := r.sealerFor(salt)
		if err != nil {
			return err
		}
		sealed := make(map[string]string, len(entries))
		for k, v := range entries {
			if sealed[k], err = s.seal(v); err != nil {
				return err
			}
		}
		contents = fileContents{Salt: salt, Entries: sealed}
	}

	data, err := json.MarshalIndent(contents, "", "  ")
	if err != nil {
		return errors.Wrap(err, "[FileRepo.write] encode")
	}
	tmp, err := os.CreateTemp(filepath.Dir(r.path), fileName+".*")
	if err != nil {
		return errors.Wrap(err, "[FileRepo.write] create temp file")
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "[FileRepo.write] write temp file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "[FileRepo.write] close temp file")
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return errors.Wrap(err, "[FileRepo.write] chmod")
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return errors.Wrap(err, "[FileRepo.write] rename")
	}
	return nil
}

// sealerFor derives the key for salt once and reuses it while the salt is unchanged.
func (r *FileRepo) sealerFor(salt []byte) (*sealer, error) {
	if r.sealer != nil && bytes.Equal(r.salt, salt) {
		return r.sealer, nil
	}
	s, err := newSealer(r.secret, salt)
	if err != nil {
		return nil, err
	}
	r.salt, r.sealer = salt, s
	return s, nil
}
