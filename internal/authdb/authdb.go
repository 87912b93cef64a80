// Package authdb holds the credential table used by the test server.
package authdb

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

var (
	ErrExists   = errors.New("user already exists")
	ErrNotFound = errors.New("user not found")
	ErrInvalid  = errors.New("invalid user")
)

// User is one entry of the users file. Limits are storage quotas in bytes.
type User struct {
	Username     string `yaml:"username" json:"username"`
	Password     string `yaml:"password" json:"-"`
	PublicLimit  int64  `yaml:"public,omitempty" json:"public"`
	PrivateLimit int64  `yaml:"private,omitempty" json:"private"`
}

type file struct {
	Users []User `yaml:"users"`
}

// DB is a mutable user table. When loaded from a file, every mutation is
// written back to that file.
type DB struct {
	mu    sync.RWMutex
	users map[string]User
	path  string
}

// Default returns the built-in table: root/root.
func Default() *DB {
	return &DB{users: map[string]User{"root": {Username: "root", Password: "root"}}}
}

// Load reads a YAML file of the form
//
//	users:
//	  - username: root
//	    password: root
//	    public: 1048576
func Load(path string) (*DB, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read users file: %w", err)
	}
	db, err := Parse(data)
	if err != nil {
		return nil, err
	}
	db.path = path
	return db, nil
}

func Parse(data []byte) (*DB, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse users file: %w", err)
	}
	if len(f.Users) == 0 {
		return nil, errors.New("users file has no users")
	}
	db := &DB{users: make(map[string]User, len(f.Users))}
	for _, u := range f.Users {
		if u.Username == "" {
			return nil, errors.New("users file: empty username")
		}
		if _, dup := db.users[u.Username]; dup {
			return nil, fmt.Errorf("users file: duplicate username %q", u.Username)
		}
		db.users[u.Username] = u
	}
	return db, nil
}

func (db *DB) Len() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.users)
}

func (db *DB) Authenticate(username, password string) bool {
	db.mu.RLock()
	u, ok := db.users[username]
	db.mu.RUnlock()
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(u.Password), []byte(password)) == 1
}

func (db *DB) Lookup(username string) (User, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	u, ok := db.users[username]
	return u, ok
}

func (db *DB) Create(u User) error {
	if u.Username == "" || u.Password == "" {
		return ErrInvalid
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.users[u.Username]; ok {
		return ErrExists
	}
	db.users[u.Username] = u
	return db.saveLocked()
}

// Alter replaces password and limits of an existing user.
func (db *DB) Alter(u User) error {
	if u.Username == "" || u.Password == "" {
		return ErrInvalid
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.users[u.Username]; !ok {
		return ErrNotFound
	}
	db.users[u.Username] = u
	return db.saveLocked()
}

func (db *DB) Delete(username string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.users[username]; !ok {
		return ErrNotFound
	}
	delete(db.users, username)
	return db.saveLocked()
}

func (db *DB) saveLocked() error {
	if db.path == "" {
		return nil
	}
	f := file{Users: make([]User, 0, len(db.users))}
	for _, u := range db.users {
		f.Users = append(f.Users, u)
	}
	sort.Slice(f.Users, func(i, j int) bool { return f.Users[i].Username < f.Users[j].Username })
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal users file: %w", err)
	}
	tmp := db.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write users file: %w", err)
	}
	if err := os.Rename(tmp, db.path); err != nil {
		return fmt.Errorf("replace users file: %w", err)
	}
	return nil
}

// IsAdmin reports whether username carries admin rights.
func IsAdmin(username string) bool { return username == "root" }
