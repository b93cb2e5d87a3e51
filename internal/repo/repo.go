package repo

import (
	"gorm.io/gorm"
)

type GormRepo struct {
	DB *gorm.DB
}

// ListLimit caps the admin order list.
const ListLimit = 200
