package models

import (
	"time"
)

type BanType string

const (
	BanTypeTemporary BanType = "temporary"
	BanTypePermanent BanType = "permanent"
)

// Ban represents one entry in the ban list. Bans are never deleted; lifting
// a ban deactivates the row so the history survives.
type Ban struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	Wallet      string      `gorm:"size:64;not null;index" json:"wallet"`
	BanType     BanType     `gorm:"size:20;not null" json:"ban_type"`
	Reason      string      `gorm:"type:text;not null" json:"reason"`
	Evidence    StringArray `gorm:"type:text" json:"evidence"`
	BannedBy    string      `gorm:"size:100;not null" json:"banned_by"`
	BannedUntil *time.Time  `json:"banned_until,omitempty"`
	IsActive    bool        `gorm:"default:true;index" json:"is_active"`
	UnbannedAt  *time.Time  `json:"unbanned_at,omitempty"`
	UnbannedBy  *string     `gorm:"size:100" json:"unbanned_by,omitempty"`
	UnbanReason *string     `gorm:"type:text" json:"unban_reason,omitempty"`
	CreatedAt   time.Time   `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func (Ban) TableName() string {
	return "ban_list"
}

// IsEffective reports whether the ban currently blocks play: active and
// either permanent or not yet expired.
func (b *Ban) IsEffective(now time.Time) bool {
	if !b.IsActive {
		return false
	}
	if b.BanType == BanTypePermanent {
		return true
	}
	return b.BannedUntil != nil && b.BannedUntil.After(now)
}
