package domain

import (
	"time"

	"github.com/google/uuid"
)

// Organization представляет клуб - корневого арендатора хранилища
type Organization struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// SubOrganization представляет команду внутри клуба
type SubOrganization struct {
	ID             uuid.UUID `json:"id" db:"id"`
	OrganizationID uuid.UUID `json:"organization_id" db:"organization_id"`
	Name           string    `json:"name" db:"name"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// Scope - владелец папки или объекта: клуб целиком либо одна команда
type Scope struct {
	OrganizationID    uuid.UUID  `json:"organization_id" db:"organization_id"`
	SubOrganizationID *uuid.UUID `json:"sub_organization_id,omitempty" db:"sub_organization_id"`
}

// OrganizationScope возвращает область уровня клуба
func OrganizationScope(orgID uuid.UUID) Scope {
	return Scope{OrganizationID: orgID}
}

// SubOrganizationScope возвращает область уровня команды
func SubOrganizationScope(orgID, subOrgID uuid.UUID) Scope {
	return Scope{OrganizationID: orgID, SubOrganizationID: &subOrgID}
}

func (s Scope) IsOrganizationLevel() bool {
	return s.SubOrganizationID == nil
}

// Equal сравнивает области по значению
func (s Scope) Equal(other Scope) bool {
	if s.OrganizationID != other.OrganizationID {
		return false
	}
	if s.SubOrganizationID == nil || other.SubOrganizationID == nil {
		return s.SubOrganizationID == nil && other.SubOrganizationID == nil
	}
	return *s.SubOrganizationID == *other.SubOrganizationID
}

func (s Scope) String() string {
	if s.SubOrganizationID == nil {
		return s.OrganizationID.String()
	}
	return s.OrganizationID.String() + "/" + s.SubOrganizationID.String()
}

// Caller - инициатор операции
type Caller struct {
	ID         string `json:"id"`
	Privileged bool   `json:"privileged"`
}
