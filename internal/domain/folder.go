package domain

import (
	"time"
)

// FolderDeleteNotice показывается вызывающему при удалении непустой папки
const FolderDeleteNotice = "contents will move to the parent folder"

type Folder struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Scope               // владелец: клуб или команда
	ParentID  *int64    `json:"parent_id,omitempty" db:"parent_id"`
	CreatedBy string    `json:"created_by" db:"created_by"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// FolderContent - содержимое папки (или корня области)
type FolderContent struct {
	Folder  *Folder        `json:"folder,omitempty"`
	Folders []Folder       `json:"subfolders"`
	Photos  []StoredObject `json:"photos"`
	Files   []StoredObject `json:"files"`
}
