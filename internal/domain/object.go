package domain

import (
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

type ObjectKind string

const (
	ObjectKindPhoto ObjectKind = "photo"
	ObjectKindFile  ObjectKind = "file"
)

func (k ObjectKind) Valid() bool {
	return k == ObjectKindPhoto || k == ObjectKindFile
}

// StoredObject - фото или файл, размещенный в иерархии хранилища.
// Область владельца неизменна после создания.
type StoredObject struct {
	ID   uuid.UUID  `json:"id" db:"id"`
	Kind ObjectKind `json:"kind" db:"kind"`
	Scope
	FolderID   *int64     `json:"folder_id,omitempty" db:"folder_id"`
	Name       string     `json:"name" db:"name"`
	URL        string     `json:"url" db:"url"`
	SizeBytes  *int64     `json:"size_bytes,omitempty" db:"size_bytes"`
	UploadedBy string     `json:"uploaded_by" db:"uploaded_by"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
	DeletedBy  *string    `json:"deleted_by,omitempty" db:"deleted_by"`
}

func (o *StoredObject) IsTrashed() bool {
	return o.DeletedAt != nil
}

var imageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".webp": {},
	".heic": {},
	".heif": {},
	".bmp":  {},
	".tif":  {},
	".tiff": {},
	".svg":  {},
}

// IsPhotoLike сообщает, учитывается ли объект как фото при подсчете квоты.
// Фото всегда photo-like, файл - по расширению имени.
func (o *StoredObject) IsPhotoLike() bool {
	if o.Kind == ObjectKindPhoto {
		return true
	}
	_, ok := imageExtensions[strings.ToLower(path.Ext(o.Name))]
	return ok
}

// SplitByKind разделяет список на фото и файлы, сохраняя порядок
func SplitByKind(objects []StoredObject) (photos, files []StoredObject) {
	photos = make([]StoredObject, 0)
	files = make([]StoredObject, 0)
	for _, o := range objects {
		if o.Kind == ObjectKindPhoto {
			photos = append(photos, o)
		} else {
			files = append(files, o)
		}
	}
	return photos, files
}

// TrashItem - объект в корзине с подписью исходного местоположения
type TrashItem struct {
	StoredObject
	Location string `json:"location"`
}
