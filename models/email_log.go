package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Kinds of one-time-code emails the system sends.
const (
	EmailKindRecovery     = "recovery"
	EmailKindVerification = "verification"
)

// EmailLog records a recovery or verification code sent to an account.
// The code itself is never stored.
type EmailLog struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Kind        string             `bson:"kind" json:"kind"`
	ToEmail     string             `bson:"toEmail" json:"toEmail"`
	AccountKind AccountKind        `bson:"accountKind" json:"accountKind"`
	SentAt      time.Time          `bson:"sentAt" json:"sentAt"`
}
