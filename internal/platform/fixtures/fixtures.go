// Package fixtures loads directory users from YAML for seeding and for the
// in-memory storage driver.
package fixtures

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"leaveflow/internal/domain/auth"
	"leaveflow/internal/domain/directory"
)

type User struct {
	ID         string   `yaml:"id"`
	Username   string   `yaml:"username"`
	FullName   string   `yaml:"fullName"`
	Email      string   `yaml:"email"`
	Department string   `yaml:"department"`
	Roles      []string `yaml:"roles"`
	Manager    string   `yaml:"manager"`
	Password   string   `yaml:"password"`
}

type File struct {
	Users []User `yaml:"users"`
}

func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read fixtures: %w", err)
	}
	return Parse(data)
}

// Parse decodes and checks a fixture document. Unknown keys are rejected.
func Parse(data []byte) (File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return File{}, fmt.Errorf("decode fixtures: %w", err)
	}
	if err := f.Validate(); err != nil {
		return File{}, err
	}
	return f, nil
}

func (f File) Validate() error {
	ids := map[string]bool{}
	names := map[string]bool{}
	for i, u := range f.Users {
		if strings.TrimSpace(u.ID) == "" {
			return fmt.Errorf("fixture user %d: id is required", i)
		}
		if strings.TrimSpace(u.Username) == "" {
			return fmt.Errorf("fixture user %s: username is required", u.ID)
		}
		if ids[u.ID] {
			return fmt.Errorf("fixture user %s: duplicate id", u.ID)
		}
		key := strings.ToLower(u.Username)
		if names[key] {
			return fmt.Errorf("fixture user %s: duplicate username %s", u.ID, u.Username)
		}
		ids[u.ID] = true
		names[key] = true
		if _, err := auth.ParseRoles(u.Roles); err != nil {
			return fmt.Errorf("fixture user %s: %w", u.ID, err)
		}
	}
	for _, u := range f.Users {
		if u.Manager != "" && !ids[u.Manager] {
			return fmt.Errorf("fixture user %s: unknown manager %s", u.ID, u.Manager)
		}
	}
	return nil
}

// WithAdmin returns f with a bootstrap administrator appended, unless a user
// with that username already exists.
func (f File) WithAdmin(username, password string) File {
	for _, u := range f.Users {
		if strings.EqualFold(u.Username, username) {
			return f
		}
	}
	out := File{Users: append([]User(nil), f.Users...)}
	out.Users = append(out.Users, User{
		ID:       username,
		Username: username,
		FullName: "Administrator",
		Roles:    []string{string(auth.RoleAdmin), string(auth.RoleEmployee)},
		Password: password,
	})
	return out
}

func (u User) DirectoryUser() (directory.User, error) {
	roles, err := auth.ParseRoles(u.Roles)
	if err != nil {
		return directory.User{}, err
	}
	return directory.User{
		ID:         u.ID,
		Username:   u.Username,
		FullName:   u.FullName,
		Email:      u.Email,
		Department: u.Department,
		Roles:      roles,
		ManagerID:  u.Manager,
	}, nil
}

// Populate loads every fixture user into the in-memory directory and credential store.
// Users without a password get no credential and cannot log in.
func (f File) Populate(dir *directory.Memory, creds *auth.MemoryStore) error {
	for _, u := range f.Users {
		user, err := u.DirectoryUser()
		if err != nil {
			return err
		}
		dir.Put(user)
		if u.Password == "" || creds == nil {
			continue
		}
		hash, err := auth.HashPassword(u.Password)
		if err != nil {
			return fmt.Errorf("hash password for %s: %w", u.Username, err)
		}
		creds.Put(auth.Credential{UserID: u.ID, Username: u.Username, PasswordHash: hash, Roles: user.Roles})
	}
	return nil
}
