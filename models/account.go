package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role constants for authorization. Employee userType values other than
// colaborador exist in the data but are treated as the same non-admin,
// non-customer principal class by route configuration.
const (
	RoleAdmin       = "admin"
	RoleColaborador = "colaborador"
	RoleCustomer    = "customer"
)

// Lockout policy: MaxLoginAttempts consecutive failures lock the account
// for LockoutDuration. The counter resets only on a successful login.
const (
	MaxLoginAttempts = 3
	LockoutDuration  = 24 * time.Hour
)

// Admin is the singleton credential record seeded at startup from config.
// Its password is a plaintext-equivalent value (optionally encrypted at
// rest), compared with a constant-time compare rather than bcrypt.
type Admin struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email     string             `bson:"email" json:"email"`
	Password  string             `bson:"password" json:"-"`
	Name      string             `bson:"name" json:"name"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

type Employee struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email         string             `bson:"email" json:"email"`
	Username      string             `bson:"username" json:"username"`
	Name          string             `bson:"name" json:"name"`
	LastName      string             `bson:"lastName" json:"lastName"`
	Password      string             `bson:"password" json:"-"` // bcrypt hash
	UserType      string             `bson:"userType" json:"userType"`
	LoginAttempts int                `bson:"loginAttempts" json:"-"`
	TimeOut       *time.Time         `bson:"timeOut" json:"-"` // nil = not locked
	AvatarS3Key   string             `bson:"avatarS3Key,omitempty" json:"-"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
}

type Customer struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email         string             `bson:"email" json:"email"`
	Username      string             `bson:"username" json:"username"`
	Name          string             `bson:"name" json:"name"`
	LastName      string             `bson:"lastName" json:"lastName"`
	Password      string             `bson:"password" json:"-"` // bcrypt hash
	IsVerified    bool               `bson:"isVerified" json:"isVerified"`
	LoginAttempts int                `bson:"loginAttempts" json:"-"`
	TimeOut       *time.Time         `bson:"timeOut" json:"-"`
	AvatarS3Key   string             `bson:"avatarS3Key,omitempty" json:"-"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
}

// AccountKind tags which collection an Account came from.
type AccountKind string

const (
	AccountAdmin    AccountKind = "admin"
	AccountEmployee AccountKind = "employee"
	AccountCustomer AccountKind = "customer"
)

// Account is the flattened view of the three account variants, produced by
// store.ResolveAccount. Secret holds the bcrypt hash for employees and
// customers, and the plaintext-equivalent password for the admin.
type Account struct {
	Kind          AccountKind
	ID            primitive.ObjectID
	Email         string
	Username      string
	Name          string
	LastName      string
	Secret        string
	Role          string
	IsVerified    bool
	LoginAttempts int
	TimeOut       *time.Time
	AvatarS3Key   string
}

// Locked reports whether the account is currently locked and, if so, how
// long until the lock expires. Admin accounts are never locked.
func (a *Account) Locked(now time.Time) (bool, time.Duration) {
	if a.Kind == AccountAdmin || a.TimeOut == nil {
		return false, 0
	}
	if a.TimeOut.After(now) {
		return true, a.TimeOut.Sub(now)
	}
	return false, 0
}
