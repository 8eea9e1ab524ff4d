package repositories

import (
	"errors"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

// credentialKey is the fixed key holding the single stored access token.
// Absence of the key means an anonymous session.
const credentialKey = "session:token"

// TokenRepository persists the access token in BadgerDB so a session
// survives application restarts. It stores nothing else.
type TokenRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewTokenRepository(db *badger.DB, log *slog.Logger) TokenRepository {
	return TokenRepository{db: db, log: log}
}

func (r TokenRepository) Save(token string) error {
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(credentialKey), []byte(token))
	})
}

// Load returns the stored token, or an empty string when none exists.
func (r TokenRepository) Load() (string, error) {
	var token string
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(credentialKey))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			token = string(val)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return token, nil
}

func (r TokenRepository) Clear() error {
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(credentialKey))
	})
}
