package auth

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/tobsdb/mousedb/pkg"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidAuth             = errors.New("Invalid auth")
	ErrInsufficientPermissions = errors.New("Insufficient permissions")
	ErrUserExists              = errors.New("User already exists")
)

type TdbUserRole int

const (
	TdbUserRoleAdmin TdbUserRole = iota
	TdbUserRoleReadWrite
	TdbUserRoleReadOnly
)

func (r TdbUserRole) String() string {
	switch r {
	case TdbUserRoleAdmin:
		return "admin"
	case TdbUserRoleReadWrite:
		return "readwrite"
	case TdbUserRoleReadOnly:
		return "readonly"
	}
	return fmt.Sprintf("TdbUserRole(%d)", int(r))
}

func ParseRole(s string) (TdbUserRole, error) {
	switch strings.ToLower(s) {
	case "admin":
		return TdbUserRoleAdmin, nil
	case "readwrite", "":
		return TdbUserRoleReadWrite, nil
	case "readonly":
		return TdbUserRoleReadOnly, nil
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

type TdbUser struct {
	Id       string
	Name     string
	Password []byte
	Role     TdbUserRole
}

func NewUser(name, password string, role TdbUserRole) (*TdbUser, error) {
	// password max size is 72 bytes because of bcrypt limit
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &TdbUser{uuid.New().String(), name, hashedPassword, role}, nil
}

func (u *TdbUser) ValidateUser(password string) bool {
	return bcrypt.CompareHashAndPassword(u.Password, []byte(password)) == nil
}

func (u *TdbUser) HasClearance(r TdbUserRole) bool { return u.Role <= r }

// TdbUsers holds the users allowed to connect, by name.
type TdbUsers struct {
	locker sync.RWMutex
	users  pkg.Map[string, *TdbUser]
}

func NewTdbUsers() *TdbUsers { return &TdbUsers{users: pkg.Map[string, *TdbUser]{}} }

func (u *TdbUsers) GetLocker() *sync.RWMutex { return &u.locker }

func (u *TdbUsers) Add(user *TdbUser) error {
	u.locker.Lock()
	defer u.locker.Unlock()
	if u.users.Has(user.Name) {
		return ErrUserExists
	}
	u.users.Set(user.Name, user)
	return nil
}

func (u *TdbUsers) Len() int {
	u.locker.RLock()
	defer u.locker.RUnlock()
	return len(u.users)
}

// Validate returns the user matching name and password.
func (u *TdbUsers) Validate(name, password string) (*TdbUser, error) {
	u.locker.RLock()
	user, ok := u.users.Lookup(name)
	u.locker.RUnlock()
	if !ok || !user.ValidateUser(password) {
		return nil, ErrInvalidAuth
	}
	return user, nil
}
