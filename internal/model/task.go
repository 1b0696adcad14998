package model

import (
	"time"

	"gorm.io/datatypes"
)

// TaskImage is one proof-of-delivery photo reference.
type TaskImage struct {
	ImageURL string `json:"imageUrl"`
}

// TaskPoint identifies the route point a task belongs to. Type says whether
// it was a waypoint or the destination.
type TaskPoint struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// Task is the proof-of-delivery record for one point of one route,
// addressed by CodeRoute plus point name. Tasks are immutable once created;
// creating one is the only way a point advances to "Completado".
type Task struct {
	ID             uint                           `json:"id" gorm:"primaryKey"`
	Signature      string                         `json:"signature" gorm:"type:text"`
	TaskStatus     string                         `json:"taskStatus" gorm:"type:varchar(40)"`
	DeliveryStatus string                         `json:"deliveryStatus" gorm:"type:varchar(40)"`
	Comments       string                         `json:"comments,omitempty" gorm:"type:text"`
	CodeRoute      string                         `json:"codeRoute" gorm:"type:varchar(40);index"`
	Images         datatypes.JSONSlice[TaskImage] `json:"images"`
	Point          datatypes.JSONSlice[TaskPoint] `json:"point"`
	CreatedAt      time.Time                      `json:"createdAt"`
}
