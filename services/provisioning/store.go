//go:build !rp2040 && !rp2350

package provisioning

import (
	"errors"
	"io/fs"
	"os"

	"github.com/pelletier/go-toml/v2"

	"ringlight-go/errcode"
)

// FileStore keeps credentials in a small TOML file.
type FileStore struct {
	Path string
}

func NewFileStore(path string) *FileStore { return &FileStore{Path: path} }

func (s *FileStore) Load() (Credentials, error) {
	b, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return Credentials{}, errcode.NoCredentials
	}
	if err != nil {
		return Credentials{}, errcode.Wrap(errcode.Error, "store.load", err)
	}
	var c Credentials
	if err := toml.Unmarshal(b, &c); err != nil {
		return Credentials{}, errcode.Wrap(errcode.InvalidPayload, "store.load", err)
	}
	if !c.Valid() {
		return Credentials{}, &errcode.E{C: errcode.NoCredentials, Op: "store.load", Msg: "stored credentials incomplete"}
	}
	return c, nil
}

// Save replaces the file atomically; it is readable by the owner only.
func (s *FileStore) Save(c Credentials) error {
	if !c.Valid() {
		return &errcode.E{C: errcode.InvalidParams, Op: "store.save", Msg: "invalid credentials"}
	}
	b, err := toml.Marshal(c)
	if err != nil {
		return errcode.Wrap(errcode.InvalidPayload, "store.save", err)
	}
	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return errcode.Wrap(errcode.Error, "store.save", err)
	}
	if err := os.Rename(tmp, s.Path); err != nil {
		_ = os.Remove(tmp)
		return errcode.Wrap(errcode.Error, "store.save", err)
	}
	return nil
}
