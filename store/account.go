package store

import (
	"context"
	"strings"
	"time"

	"github.com/serranojoyas/backend/models"
	"github.com/serranojoyas/backend/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureAdmin seeds the singleton admin credential record from the
// configured credentials if the collection is empty. Idempotent; called at
// startup so profile reads stay side-effect free.
func (db *DB) EnsureAdmin(ctx context.Context, email, password, name string) error {
	var existing models.Admin
	err := db.Admins().FindOne(ctx, bson.M{}).Decode(&existing)
	if err == nil {
		return nil
	}
	if err != mongo.ErrNoDocuments {
		return err
	}
	stored := password
	if len(db.EncKey) == 32 {
		stored, err = utils.Encrypt([]byte(password), db.EncKey)
		if err != nil {
			return err
		}
	}
	_, err = db.Admins().InsertOne(ctx, &models.Admin{
		Email:     email,
		Password:  stored,
		Name:      name,
		CreatedAt: time.Now(),
	})
	return err
}

func (db *DB) adminAccount(ctx context.Context, email string) (*models.Account, error) {
	var a models.Admin
	err := db.Admins().FindOne(ctx, bson.M{"email": email}).Decode(&a)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	secret, err := utils.Decrypt(a.Password, db.EncKey)
	if err != nil {
		return nil, err
	}
	return &models.Account{
		Kind:   models.AccountAdmin,
		ID:     a.ID,
		Email:  a.Email,
		Name:   a.Name,
		Secret: secret,
		Role:   models.RoleAdmin,
	}, nil
}

func (db *DB) employeeAccount(ctx context.Context, email string) (*models.Account, error) {
	var e models.Employee
	err := db.Employees().FindOne(ctx, bson.M{"email": strings.ToLower(email)}).Decode(&e)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &models.Account{
		Kind:          models.AccountEmployee,
		ID:            e.ID,
		Email:         e.Email,
		Username:      e.Username,
		Name:          e.Name,
		LastName:      e.LastName,
		Secret:        e.Password,
		Role:          e.UserType,
		LoginAttempts: e.LoginAttempts,
		TimeOut:       e.TimeOut,
		AvatarS3Key:   e.AvatarS3Key,
	}, nil
}

func (db *DB) customerAccount(ctx context.Context, email string) (*models.Account, error) {
	var c models.Customer
	err := db.Customers().FindOne(ctx, bson.M{"email": strings.ToLower(email)}).Decode(&c)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &models.Account{
		Kind:          models.AccountCustomer,
		ID:            c.ID,
		Email:         c.Email,
		Username:      c.Username,
		Name:          c.Name,
		LastName:      c.LastName,
		Secret:        c.Password,
		Role:          models.RoleCustomer,
		IsVerified:    c.IsVerified,
		LoginAttempts: c.LoginAttempts,
		TimeOut:       c.TimeOut,
		AvatarS3Key:   c.AvatarS3Key,
	}, nil
}

// ResolveAccount looks an email up across the three account collections in
// login order: admin (exact match) first, then employee, then customer.
// Returns (nil, nil) when no collection has the email.
func (db *DB) ResolveAccount(ctx context.Context, email string) (*models.Account, error) {
	if acct, err := db.adminAccount(ctx, email); acct != nil || err != nil {
		return acct, err
	}
	if acct, err := db.employeeAccount(ctx, email); acct != nil || err != nil {
		return acct, err
	}
	return db.customerAccount(ctx, email)
}

// ResolveRecoveryAccount looks an email up for the password-recovery flow,
// which checks customers before employees and never matches the admin.
func (db *DB) ResolveRecoveryAccount(ctx context.Context, email string) (*models.Account, error) {
	if acct, err := db.customerAccount(ctx, email); acct != nil || err != nil {
		return acct, err
	}
	return db.employeeAccount(ctx, email)
}

func (db *DB) collectionFor(kind models.AccountKind) *mongo.Collection {
	switch kind {
	case models.AccountEmployee:
		return db.Employees()
	case models.AccountCustomer:
		return db.Customers()
	default:
		return db.Admins()
	}
}

func (db *DB) CreateEmployee(ctx context.Context, e *models.Employee) (primitive.ObjectID, error) {
	res, err := db.Employees().InsertOne(ctx, e, options.InsertOne())
	if err != nil {
		return primitive.NilObjectID, err
	}
	return res.InsertedID.(primitive.ObjectID), nil
}

func (db *DB) CreateCustomer(ctx context.Context, c *models.Customer) (primitive.ObjectID, error) {
	res, err := db.Customers().InsertOne(ctx, c, options.InsertOne())
	if err != nil {
		return primitive.NilObjectID, err
	}
	return res.InsertedID.(primitive.ObjectID), nil
}

// SetLockState persists the failed-attempt counter and lock timestamp.
// Called on every non-admin login attempt, successful or not.
func (db *DB) SetLockState(ctx context.Context, kind models.AccountKind, id primitive.ObjectID, attempts int, timeOut *time.Time) error {
	_, err := db.collectionFor(kind).UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"loginAttempts": attempts, "timeOut": timeOut},
	})
	return err
}

// UpdatePassword replaces the stored bcrypt hash for the account with the
// given email. Returns false when no account matched.
func (db *DB) UpdatePassword(ctx context.Context, kind models.AccountKind, email, hash string) (bool, error) {
	res, err := db.collectionFor(kind).UpdateOne(ctx,
		bson.M{"email": strings.ToLower(email)},
		bson.M{"$set": bson.M{"password": hash}})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

// MarkCustomerVerified flips isVerified after the signup email code is
// confirmed. Returns false when no customer matched.
func (db *DB) MarkCustomerVerified(ctx context.Context, email string) (bool, error) {
	res, err := db.Customers().UpdateOne(ctx,
		bson.M{"email": strings.ToLower(email)},
		bson.M{"$set": bson.M{"isVerified": true}})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (db *DB) SetAvatarKey(ctx context.Context, kind models.AccountKind, id primitive.ObjectID, key string) error {
	_, err := db.collectionFor(kind).UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"avatarS3Key": key},
	})
	return err
}

// AccountByID loads one account variant by id, flattened like ResolveAccount.
func (db *DB) AccountByID(ctx context.Context, kind models.AccountKind, id primitive.ObjectID) (*models.Account, error) {
	switch kind {
	case models.AccountEmployee:
		var e models.Employee
		err := db.Employees().FindOne(ctx, bson.M{"_id": id}).Decode(&e)
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return &models.Account{
			Kind: models.AccountEmployee, ID: e.ID, Email: e.Email,
			Username: e.Username, Name: e.Name, LastName: e.LastName,
			Secret: e.Password, Role: e.UserType,
			LoginAttempts: e.LoginAttempts, TimeOut: e.TimeOut,
			AvatarS3Key: e.AvatarS3Key,
		}, nil
	case models.AccountCustomer:
		var c models.Customer
		err := db.Customers().FindOne(ctx, bson.M{"_id": id}).Decode(&c)
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return &models.Account{
			Kind: models.AccountCustomer, ID: c.ID, Email: c.Email,
			Username: c.Username, Name: c.Name, LastName: c.LastName,
			Secret: c.Password, Role: models.RoleCustomer, IsVerified: c.IsVerified,
			LoginAttempts: c.LoginAttempts, TimeOut: c.TimeOut,
			AvatarS3Key: c.AvatarS3Key,
		}, nil
	default:
		var a models.Admin
		err := db.Admins().FindOne(ctx, bson.M{"_id": id}).Decode(&a)
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		secret, err := utils.Decrypt(a.Password, db.EncKey)
		if err != nil {
			return nil, err
		}
		return &models.Account{
			Kind: models.AccountAdmin, ID: a.ID, Email: a.Email,
			Name: a.Name, Secret: secret, Role: models.RoleAdmin,
		}, nil
	}
}

// InsertEmailLog records that a one-time code was emailed to an account.
func (db *DB) InsertEmailLog(ctx context.Context, entry *models.EmailLog) error {
	_, err := db.EmailLogs().InsertOne(ctx, entry, options.InsertOne())
	return err
}
