/*
bootstrap.go - Initial admin account provisioning

PURPOSE:
  On first run the database has no administrator, so nobody could log in
  to create one. EnsureAdmin generates a random password, stores the
  bcrypt hash for an 'admin' account, and writes the plaintext once to a
  file readable only by the owner. ResetAdminPassword reissues it for
  operators locked out of an existing install.
*/
package sqlite

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"math/big"
	"os"
	"path/filepath"

	"github.com/warp/attendance-engine/auth"
)

const (
	adminName          = "admin"
	initialPasswordLen = 14
	passwordFileName   = "initial_admin_password.txt"
)

// EnsureAdmin creates the initial admin account if no admin exists.
// The generated password is written to passwordDir/initial_admin_password.txt
// with 0600 permissions. Returns the file path, or "" when an admin was
// already present.
func (s *Store) EnsureAdmin(ctx context.Context, passwordDir string) (string, error) {
	s.mu.Lock()
	hasAdmin, err := s.hasAdminLocked(ctx)
	s.mu.Unlock()
	if err != nil {
		return "", err
	}
	if hasAdmin {
		return "", nil
	}

	password, err := randomPassword(initialPasswordLen)
	if err != nil {
		return "", err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return "", err
	}

	if _, err := s.CreateEmployee(ctx, Employee{
		Name:         adminName,
		PasswordHash: hash,
		IsAdmin:      true,
	}); err != nil {
		return "", fmt.Errorf("failed to create initial admin: %w", err)
	}

	return writePasswordFile(passwordDir, adminName, password)
}

// ResetAdminPassword reissues a random password for the admin account
// (preferring the account named 'admin', falling back to any admin) and
// writes it to passwordDir. Creates the initial admin when none exists.
func (s *Store) ResetAdminPassword(ctx context.Context, passwordDir string) (string, error) {
	admin, err := s.GetEmployeeByName(ctx, adminName)
	if err != nil {
		return "", err
	}
	if admin == nil || !admin.IsAdmin {
		admin, err = s.firstAdmin(ctx)
		if err != nil {
			return "", err
		}
	}
	if admin == nil {
		return s.EnsureAdmin(ctx, passwordDir)
	}

	password, err := randomPassword(initialPasswordLen)
	if err != nil {
		return "", err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return "", err
	}
	if err := s.UpdatePasswordHash(ctx, admin.ID, hash); err != nil {
		return "", err
	}

	return writePasswordFile(passwordDir, admin.Name, password)
}

func (s *Store) hasAdminLocked(ctx context.Context) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM employees WHERE is_admin = 1").Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to count admins: %w", err)
	}
	return count > 0, nil
}

func (s *Store) firstAdmin(ctx context.Context) (*Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var id string
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM employees WHERE is_admin = 1 ORDER BY created_at LIMIT 1").Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find admin: %w", err)
	}
	return s.getEmployeeWhere(ctx, "id = ?", id)
}

const passwordAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func randomPassword(length int) (string, error) {
	out := make([]byte, length)
	max := big.NewInt(int64(len(passwordAlphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate password: %w", err)
		}
		out[i] = passwordAlphabet[n.Int64()]
	}
	return string(out), nil
}

func writePasswordFile(dir, username, password string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create password dir: %w", err)
	}
	path := filepath.Join(dir, passwordFileName)
	content := fmt.Sprintf("username: %s\npassword: %s\n", username, password)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return "", fmt.Errorf("failed to write password file: %w", err)
	}
	return path, nil
}
