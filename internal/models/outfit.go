package models

import "time"

// Outfit groups up to three clothing items. Component ids are kept raw and
// are not expanded when listed.
type Outfit struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	UserID      uint      `json:"-" gorm:"not null;index"`
	TopID       *uint     `json:"top_id"`
	BottomID    *uint     `json:"bottom_id"`
	OnePieceID  *uint     `json:"one_piece_id"`
	Name        *string   `json:"name" gorm:"type:varchar(100)"`
	Description *string   `json:"description" gorm:"type:varchar(300)"`
	CreatedAt   time.Time `json:"created_at"`

	User     *User     `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:RESTRICT"`
	Top      *Clothing `json:"-" gorm:"foreignKey:TopID;constraint:OnDelete:RESTRICT"`
	Bottom   *Clothing `json:"-" gorm:"foreignKey:BottomID;constraint:OnDelete:RESTRICT"`
	OnePiece *Clothing `json:"-" gorm:"foreignKey:OnePieceID;constraint:OnDelete:RESTRICT"`
}

// ComponentIDs returns the non-nil clothing references of the outfit.
func (o *Outfit) ComponentIDs() []uint {
	var ids []uint
	for _, id := range []*uint{o.TopID, o.BottomID, o.OnePieceID} {
		if id != nil {
			ids = append(ids, *id)
		}
	}
	return ids
}
