package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"

	"clubvault/internal/domain"
)

const (
	capabilityService = "/clubvault.auth.v1.Capabilities/"
	capabilityTimeout = 5 * time.Second
)

// CapabilityClient спрашивает у сервиса прав, может ли вызывающий
// действовать над объектом. Запросы и ответы - google.protobuf.Struct,
// ответ содержит булево поле "allowed".
type CapabilityClient struct {
	conn grpc.ClientConnInterface
}

func NewCapabilityClient(conn grpc.ClientConnInterface) *CapabilityClient {
	return &CapabilityClient{conn: conn}
}

func (c *CapabilityClient) ask(ctx context.Context, method string, caller domain.Caller, fields map[string]interface{}) (bool, error) {
	fields["caller_id"] = caller.ID

	req, err := structpb.NewStruct(fields)
	if err != nil {
		return false, fmt.Errorf("failed to build %s request: %w", method, err)
	}

	ctx, cancel := context.WithTimeout(ctx, capabilityTimeout)
	defer cancel()
	ctx = metadata.AppendToOutgoingContext(ctx, "x-caller-id", caller.ID)

	resp := &structpb.Struct{}
	if err := c.conn.Invoke(ctx, capabilityService+method, req, resp); err != nil {
		log.Error().Err(err).Str("method", method).Str("caller", caller.ID).Msg("[Auth] capability check failed")
		return false, fmt.Errorf("capability %s: %w", method, err)
	}

	allowed, ok := resp.GetFields()["allowed"]
	if !ok {
		return false, fmt.Errorf("capability %s: response has no 'allowed' field", method)
	}
	return allowed.GetBoolValue(), nil
}

func (c *CapabilityClient) CanActOn(ctx context.Context, caller domain.Caller, target domain.ResourceRef) (bool, error) {
	fields := map[string]interface{}{
		"resource_type":   string(target.Type),
		"resource_id":     target.ID,
		"organization_id": target.Scope.OrganizationID.String(),
	}
	if target.Scope.SubOrganizationID != nil {
		fields["sub_organization_id"] = target.Scope.SubOrganizationID.String()
	}
	return c.ask(ctx, "CanActOn", caller, fields)
}

func (c *CapabilityClient) IsOrganizationAdmin(ctx context.Context, caller domain.Caller, orgID uuid.UUID) (bool, error) {
	return c.ask(ctx, "IsOrganizationAdmin", caller, map[string]interface{}{
		"organization_id": orgID.String(),
	})
}

func (c *CapabilityClient) CanAccessSubOrganization(ctx context.Context, caller domain.Caller, subOrgID uuid.UUID) (bool, error) {
	return c.ask(ctx, "CanAccessSubOrganization", caller, map[string]interface{}{
		"sub_organization_id": subOrgID.String(),
	})
}
