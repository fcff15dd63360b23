package domain

import (
	"strconv"

	"github.com/google/uuid"
)

type ResourceType string

const (
	ResourceTypeObject ResourceType = "object"
	ResourceTypeFolder ResourceType = "folder"
)

// ResourceRef ссылается на объект или папку для проверки прав
type ResourceRef struct {
	Type  ResourceType `json:"type"`
	ID    string       `json:"id"`
	Scope Scope        `json:"scope"`
}

func ObjectRef(o *StoredObject) ResourceRef {
	return ResourceRef{Type: ResourceTypeObject, ID: o.ID.String(), Scope: o.Scope}
}

func FolderRef(f *Folder) ResourceRef {
	return ResourceRef{Type: ResourceTypeFolder, ID: strconv.FormatInt(f.ID, 10), Scope: f.Scope}
}

// ScopeRef ссылается на корень области (загрузка или создание папки в корне)
func ScopeRef(scope Scope) ResourceRef {
	id := scope.OrganizationID
	if scope.SubOrganizationID != nil {
		id = *scope.SubOrganizationID
	}
	return ResourceRef{Type: ResourceTypeFolder, ID: "root:" + id.String(), Scope: scope}
}

// ParseObjectID разбирает идентификатор объекта
func ParseObjectID(s string) (uuid.UUID, error) {
	return uuid.Parse(s)
}
