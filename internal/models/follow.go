package models

// Follow is a directed edge: UserFollowingID follows UserBeingFollowedID.
// The pair is the primary key, so an edge exists at most once.
type Follow struct {
	UserBeingFollowedID uint `gorm:"primaryKey;autoIncrement:false" json:"user_being_followed_id"`
	UserFollowingID     uint `gorm:"primaryKey;autoIncrement:false;index:idx_follows_following" json:"user_following_id"`

	UserBeingFollowed User `gorm:"foreignKey:UserBeingFollowedID;constraint:OnDelete:CASCADE" json:"-"`
	UserFollowing     User `gorm:"foreignKey:UserFollowingID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for GORM
func (Follow) TableName() string {
	return "follows"
}
