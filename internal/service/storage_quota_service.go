package service

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"clubvault/internal/domain"
	"clubvault/internal/metrics"
)

// StorageQuotaService считает потребление хранилища. Потребление всегда
// выводится из строк каталога при каждом вызове: счетчика со сквозной
// записью нет.
//
// Проверка CanUpload не атомарна с последующей загрузкой: параллельные
// загрузки могут превысить лимит не более чем на размер одной
// одновременно выполняемой загрузки.
type StorageQuotaService struct {
	objects ObjectCatalog
	orgs    OrganizationCatalog
	metrics *metrics.VaultMetrics
}

func NewStorageQuotaService(objects ObjectCatalog, orgs OrganizationCatalog, m *metrics.VaultMetrics) *StorageQuotaService {
	return &StorageQuotaService{
		objects: objects,
		orgs:    orgs,
		metrics: m,
	}
}

// objectSize возвращает учитываемый размер объекта
func objectSize(o *domain.StoredObject) int64 {
	if o.SizeBytes != nil {
		return *o.SizeBytes
	}
	if o.Kind == domain.ObjectKindPhoto {
		return domain.DefaultPhotoSizeBytes
	}
	return 0
}

// ComputeUsage считает потребление клуба с разбивкой по командам
func (s *StorageQuotaService) ComputeUsage(ctx context.Context, orgID uuid.UUID) (*domain.QuotaUsage, error) {
	objects, err := s.objects.ListActiveByOrganization(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute usage: %w", err)
	}

	usage := &domain.QuotaUsage{
		OrganizationID:     orgID,
		PerSubOrganization: make([]domain.SubOrganizationUsage, 0),
	}
	groups := make(map[uuid.UUID]*domain.SubOrganizationUsage)

	for i := range objects {
		o := &objects[i]
		if o.IsTrashed() || o.OrganizationID != orgID {
			continue
		}

		// uuid.Nil - ключ корня клуба
		key := uuid.Nil
		if o.SubOrganizationID != nil {
			key = *o.SubOrganizationID
		}
		group, ok := groups[key]
		if !ok {
			group = &domain.SubOrganizationUsage{SubOrganizationID: o.SubOrganizationID}
			groups[key] = group
		}

		size := objectSize(o)
		if o.IsPhotoLike() {
			usage.PhotosBytes += size
			group.PhotosBytes += size
		} else {
			usage.DocumentBytes += size
			group.DocumentBytes += size
		}
		group.Bytes += size
	}
	usage.TotalBytes = usage.PhotosBytes + usage.DocumentBytes

	keys := make([]uuid.UUID, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return bytes.Compare(keys[i][:], keys[j][:]) < 0
	})
	for _, k := range keys {
		usage.PerSubOrganization = append(usage.PerSubOrganization, *groups[k])
	}

	s.metrics.ObserveQuota(orgID.String(), usage.TotalBytes)
	return usage, nil
}

// GetLimit возвращает лимит клуба: базовый объем плюс купленные гигабайты
func (s *StorageQuotaService) GetLimit(ctx context.Context, orgID uuid.UUID) (domain.QuotaLimit, error) {
	sub, err := s.orgs.GetSubscription(ctx, orgID, nil)
	if err != nil {
		return domain.QuotaLimit{}, fmt.Errorf("failed to get quota limit: %w", err)
	}
	return domain.NewQuotaLimit(sub), nil
}

// ResolveQuota определяет потребление и лимит, действующие для области.
// Команда пользуется квотой клуба, если у клуба премиум; иначе собственная
// подписка команды дает ей независимую квоту.
func (s *StorageQuotaService) ResolveQuota(ctx context.Context, scope domain.Scope) (used int64, limit domain.QuotaLimit, err error) {
	orgSub, err := s.orgs.GetSubscription(ctx, scope.OrganizationID, nil)
	if err != nil {
		return 0, domain.QuotaLimit{}, fmt.Errorf("failed to get organization subscription: %w", err)
	}

	usage, err := s.ComputeUsage(ctx, scope.OrganizationID)
	if err != nil {
		return 0, domain.QuotaLimit{}, err
	}

	if scope.SubOrganizationID != nil && (orgSub == nil || !orgSub.Premium) {
		teamSub, err := s.orgs.GetSubscription(ctx, scope.OrganizationID, scope.SubOrganizationID)
		if err != nil {
			return 0, domain.QuotaLimit{}, fmt.Errorf("failed to get team subscription: %w", err)
		}
		if teamSub != nil {
			var teamUsed int64
			for _, group := range usage.PerSubOrganization {
				if group.SubOrganizationID != nil && *group.SubOrganizationID == *scope.SubOrganizationID {
					teamUsed = group.Bytes
				}
			}
			return teamUsed, domain.NewQuotaLimit(teamSub), nil
		}
	}

	return usage.TotalBytes, domain.NewQuotaLimit(orgSub), nil
}

// CanUpload разрешает загрузку привилегированному вызывающему либо если
// used + candidateBytes <= limit. Результат рекомендательный.
func (s *StorageQuotaService) CanUpload(ctx context.Context, caller domain.Caller, scope domain.Scope, candidateBytes int64) (bool, error) {
	if caller.Privileged {
		return true, nil
	}
	if candidateBytes < 0 {
		return false, fmt.Errorf("negative upload size: %w", domain.ErrInvalidArgument)
	}

	used, limit, err := s.ResolveQuota(ctx, scope)
	if err != nil {
		return false, err
	}

	allowed := used+candidateBytes <= limit.TotalBytes
	if !allowed {
		log.Info().
			Str("scope", scope.String()).
			Int64("used", used).
			Int64("candidate", candidateBytes).
			Int64("limit", limit.TotalBytes).
			Msg("[Quota] upload rejected")
	}
	return allowed, nil
}

// GetQuotaInfo возвращает состояние квоты клуба. Если передана сессия,
// предупреждение о пороге показывается один раз за сессию.
func (s *StorageQuotaService) GetQuotaInfo(ctx context.Context, orgID uuid.UUID, session *QuotaSession) (*domain.QuotaInfo, error) {
	usage, err := s.ComputeUsage(ctx, orgID)
	if err != nil {
		return nil, err
	}
	limit, err := s.GetLimit(ctx, orgID)
	if err != nil {
		return nil, err
	}

	available := limit.TotalBytes - usage.TotalBytes
	if available < 0 {
		available = 0
	}

	info := &domain.QuotaInfo{
		Usage:          *usage,
		Limit:          limit,
		AvailableSpace: available,
		UsagePercent:   domain.UsagePercent(usage.TotalBytes, limit.TotalBytes),
	}

	if session != nil {
		info.Alert = session.Notice(orgID, domain.AlertLevel(usage.TotalBytes, limit.TotalBytes))
		if info.Alert != domain.QuotaAlertNone {
			s.metrics.ObserveQuotaAlert(string(info.Alert))
		}
	}

	return info, nil
}
