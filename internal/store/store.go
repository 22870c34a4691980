// Package store persists profiles and custodial wallets in sqlite. It is the
// sole owner of private key material at rest; chain adapters receive a
// transient decoded copy for a single signing operation only.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	scouterr "github.com/Sonic-Vault/scout-api/internal/errors"
	"github.com/Sonic-Vault/scout-api/internal/model"
)

type Store struct {
	db   *sql.DB
	lock *flock.Flock
}

// Open initializes the sqlite database, creating the schema when absent.
func Open(path, lockPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}

	queries := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		`CREATE TABLE IF NOT EXISTS profiles (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL UNIQUE,
			username TEXT NOT NULL,
			name TEXT NOT NULL,
			wallet TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS wallets (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			address TEXT NOT NULL UNIQUE,
			private TEXT NOT NULL
		);`,
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init store schema: %w", err)
		}
	}
	return &Store{db: db, lock: flock.New(lockPath)}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) withLock(fn func() error) error {
	locked, err := s.lock.TryLockContext(context.Background(), 5*time.Second)
	if err != nil {
		return fmt.Errorf("lock store: %w", err)
	}
	if !locked {
		return fmt.Errorf("lock store: timeout acquiring lock")
	}
	defer func() { _ = s.lock.Unlock() }()
	return fn()
}

// GetProfile returns the profile for a user id, or (zero, false) when absent.
// Keys are case-sensitive opaque strings.
func (s *Store) GetProfile(ctx context.Context, userID string) (model.Profile, bool, error) {
	var p model.Profile
	err := s.db.QueryRowContext(ctx,
		"SELECT id, user_id, username, name, wallet FROM profiles WHERE user_id = ?", userID).
		Scan(&p.ID, &p.UserID, &p.Username, &p.DisplayName, &p.WalletAddress)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Profile{}, false, nil
		}
		return model.Profile{}, false, fmt.Errorf("read profile: %w", err)
	}
	return p, true, nil
}

// UpsertProfile inserts or updates the profile keyed by user_id and returns
// its surrogate id.
func (s *Store) UpsertProfile(ctx context.Context, p model.Profile) (int64, error) {
	if strings.TrimSpace(p.UserID) == "" {
		return 0, scouterr.New(scouterr.KindInvalidInput, "profile user id is required")
	}
	var id int64
	err := s.withLock(func() error {
		existing, found, err := s.GetProfile(ctx, p.UserID)
		if err != nil {
			return err
		}
		if found {
			_, err = s.db.ExecContext(ctx,
				"UPDATE profiles SET username = ?, name = ?, wallet = ? WHERE user_id = ?",
				p.Username, p.DisplayName, p.WalletAddress, p.UserID)
			if err != nil {
				return fmt.Errorf("update profile: %w", err)
			}
			id = existing.ID
			return nil
		}
		res, err := s.db.ExecContext(ctx,
			"INSERT INTO profiles (user_id, username, name, wallet) VALUES (?, ?, ?, ?)",
			p.UserID, p.Username, p.DisplayName, p.WalletAddress)
		if err != nil {
			return fmt.Errorf("insert profile: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, err
	}
	zap.L().Debug("profile upserted", zap.String("user_id", p.UserID), zap.String("wallet", p.WalletAddress))
	return id, nil
}

// ListProfiles returns all profiles.
func (s *Store) ListProfiles(ctx context.Context) ([]model.Profile, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, user_id, username, name, wallet FROM profiles")
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	profiles := make([]model.Profile, 0)
	for rows.Next() {
		var p model.Profile
		if err := rows.Scan(&p.ID, &p.UserID, &p.Username, &p.DisplayName, &p.WalletAddress); err != nil {
			return nil, fmt.Errorf("scan profile row: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profile rows: %w", err)
	}
	return profiles, nil
}

// DeleteProfile removes a profile by user id.
func (s *Store) DeleteProfile(ctx context.Context, userID string) error {
	return s.withLock(func() error {
		_, err := s.db.ExecContext(ctx, "DELETE FROM profiles WHERE user_id = ?", userID)
		if err != nil {
			return fmt.Errorf("delete profile: %w", err)
		}
		return nil
	})
}

// GetWallet returns the wallet for an address, or (zero, false) when absent.
func (s *Store) GetWallet(ctx context.Context, address string) (model.Wallet, bool, error) {
	var w model.Wallet
	err := s.db.QueryRowContext(ctx,
		"SELECT id, address, private FROM wallets WHERE address = ?", address).
		Scan(&w.ID, &w.Address, &w.Private)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Wallet{}, false, nil
		}
		return model.Wallet{}, false, fmt.Errorf("read wallet: %w", err)
	}
	return w, true, nil
}

// CreateWallet persists a new wallet. Addresses are globally unique.
func (s *Store) CreateWallet(ctx context.Context, w model.Wallet) (int64, error) {
	if strings.TrimSpace(w.Address) == "" || strings.TrimSpace(w.Private) == "" {
		return 0, scouterr.New(scouterr.KindInvalidInput, "wallet address and key material are required")
	}
	var id int64
	err := s.withLock(func() error {
		res, err := s.db.ExecContext(ctx,
			"INSERT INTO wallets (address, private) VALUES (?, ?)", w.Address, w.Private)
		if err != nil {
			return fmt.Errorf("insert wallet: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, err
	}
	zap.L().Info("wallet created", zap.String("address", w.Address))
	return id, nil
}

// DeleteWallet removes a wallet by address.
func (s *Store) DeleteWallet(ctx context.Context, address string) error {
	return s.withLock(func() error {
		_, err := s.db.ExecContext(ctx, "DELETE FROM wallets WHERE address = ?", address)
		if err != nil {
			return fmt.Errorf("delete wallet: %w", err)
		}
		return nil
	})
}

// CreateWalletProfile persists a wallet and then upserts the profile that
// references it. The ordering is load-bearing: a profile must never point at
// a wallet that does not exist yet.
func (s *Store) CreateWalletProfile(ctx context.Context, w model.Wallet, p model.Profile) (int64, error) {
	if p.WalletAddress != w.Address {
		return 0, scouterr.New(scouterr.KindInvalidInput, "profile wallet must match the wallet address")
	}
	if _, err := s.CreateWallet(ctx, w); err != nil {
		return 0, err
	}
	return s.UpsertProfile(ctx, p)
}
