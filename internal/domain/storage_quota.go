package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	KiB int64 = 1024
	MiB       = 1024 * KiB
	GiB       = 1024 * MiB

	// BaseQuotaBytes - бесплатный объем хранилища клуба
	BaseQuotaBytes = 5 * GiB
	// DefaultPhotoSizeBytes подставляется для фото с неизвестным размером
	DefaultPhotoSizeBytes = 500 * KiB

	WarningThresholdPercent = 80.0
)

// StorageSubscription - купленное расширение хранилища.
// SubOrganizationID задан для собственной подписки команды.
type StorageSubscription struct {
	OrganizationID    uuid.UUID  `json:"organization_id" db:"organization_id"`
	SubOrganizationID *uuid.UUID `json:"sub_organization_id,omitempty" db:"sub_organization_id"`
	Premium           bool       `json:"premium" db:"premium"`
	AddonGB           int        `json:"addon_gb" db:"addon_gb"`
	ScheduledAddonGB  *int       `json:"scheduled_addon_gb,omitempty" db:"scheduled_addon_gb"`
	ScheduledAt       *time.Time `json:"scheduled_at,omitempty" db:"scheduled_at"`
}

// Downgrade - запланированное уменьшение квоты (только информационно)
type Downgrade struct {
	AddonGB     int       `json:"addon_gb"`
	EffectiveAt time.Time `json:"effective_at"`
}

type QuotaLimit struct {
	BaseBytes          int64      `json:"base_bytes"`
	AddonBytes         int64      `json:"addon_bytes"`
	TotalBytes         int64      `json:"total_bytes"`
	ScheduledDowngrade *Downgrade `json:"scheduled_downgrade,omitempty"`
}

// NewQuotaLimit считает лимит по подписке; nil означает только базовый объем
func NewQuotaLimit(sub *StorageSubscription) QuotaLimit {
	limit := QuotaLimit{BaseBytes: BaseQuotaBytes}
	if sub == nil {
		limit.TotalBytes = limit.BaseBytes
		return limit
	}
	limit.AddonBytes = int64(sub.AddonGB) * GiB
	limit.TotalBytes = limit.BaseBytes + limit.AddonBytes
	if sub.ScheduledAddonGB != nil && sub.ScheduledAt != nil {
		limit.ScheduledDowngrade = &Downgrade{
			AddonGB:     *sub.ScheduledAddonGB,
			EffectiveAt: *sub.ScheduledAt,
		}
	}
	return limit
}

type SubOrganizationUsage struct {
	// nil - объекты уровня клуба
	SubOrganizationID *uuid.UUID `json:"sub_organization_id"`
	Bytes             int64      `json:"bytes"`
	PhotosBytes       int64      `json:"photos_bytes"`
	DocumentBytes     int64      `json:"document_bytes"`
}

// QuotaUsage всегда вычисляется из строк каталога, никогда не хранится
type QuotaUsage struct {
	OrganizationID     uuid.UUID              `json:"organization_id"`
	PhotosBytes        int64                  `json:"photos_bytes"`
	DocumentBytes      int64                  `json:"document_bytes"`
	TotalBytes         int64                  `json:"total_bytes"`
	PerSubOrganization []SubOrganizationUsage `json:"per_sub_organization"`
}

type QuotaAlert string

const (
	QuotaAlertNone      QuotaAlert = ""
	QuotaAlertWarning   QuotaAlert = "warning"
	QuotaAlertHardLimit QuotaAlert = "hard_limit"
)

// UsagePercent возвращает заполненность в процентах
func UsagePercent(used, limit int64) float64 {
	if limit <= 0 {
		return 100
	}
	return float64(used) / float64(limit) * 100
}

// AlertLevel определяет уровень предупреждения для заполненности
func AlertLevel(used, limit int64) QuotaAlert {
	pct := UsagePercent(used, limit)
	switch {
	case pct >= 100:
		return QuotaAlertHardLimit
	case pct >= WarningThresholdPercent:
		return QuotaAlertWarning
	default:
		return QuotaAlertNone
	}
}

type QuotaInfo struct {
	Usage          QuotaUsage `json:"usage"`
	Limit          QuotaLimit `json:"limit"`
	AvailableSpace int64      `json:"available_space"`
	UsagePercent   float64    `json:"usage_percent"`
	Alert          QuotaAlert `json:"alert,omitempty"`
}
