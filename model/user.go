package model

import "time"

/*

User is a forum member, keyed by the numeric ID of the legacy backend.

ID: primary key, the site's original numeric ID, preserved verbatim. Never
    auto-generated, so repeated crawls land on the same row. 0 is a valid ID.
ObjectID: opaque string ID of the newer backend, unique when present.
Name, Registered: profile data, absent for users that were already deleted
    when first crawled.
Deleted: set the first time the crawler observes the profile as gone. Once
    set it is never overwritten by a later observation (first-seen wins),
    so the deletion timestamp does not drift across repeated crawls.

Followees/Followers: directed follow edges over the user_followings join
    table. "A follows B" is stored as exactly one row (A.id, B.id); the
    reverse direction is derived, never stored a second time.

Threads/Postings: content authored by this user, "has-many" with cascade
    delete.

*/
type User struct {
	ID         int64 `gorm:"primaryKey;autoIncrement:false"`
	ObjectID   *string
	Name       *string
	Registered *time.Time
	Deleted    *time.Time
	Followees  []*User    `gorm:"many2many:user_followings;joinForeignKey:UserID;joinReferences:FolloweeID"`
	Followers  []*User    `gorm:"many2many:user_followings;joinForeignKey:FolloweeID;joinReferences:UserID"`
	Threads    []*Thread  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Postings   []*Posting `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// UserFollowing is one directed follow edge.
type UserFollowing struct {
	UserID     int64 `gorm:"primaryKey;autoIncrement:false"`
	FolloweeID int64 `gorm:"primaryKey;autoIncrement:false"`
}

// NewUser creates a user with full profile data.
func NewUser(id int64, objectID *string, name string, registered time.Time) *User {
	return &User{
		ID:         id,
		ObjectID:   objectID,
		Name:       &name,
		Registered: &registered,
	}
}

// NewDeletedUser creates a user whose profile was already gone when first
// crawled. Only the ID and the deletion timestamp are known.
func NewDeletedUser(id int64, deleted time.Time) *User {
	return &User{ID: id, Deleted: &deleted}
}

// IsDeleted reports whether the profile has been observed as deleted.
func (u *User) IsDeleted() bool {
	return u.Deleted != nil
}

// MarkDeleted stamps the deletion time if none is recorded yet. An existing
// stamp always wins.
func (u *User) MarkDeleted(at time.Time) {
	if u.Deleted == nil {
		u.Deleted = &at
	}
}
