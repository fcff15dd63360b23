package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clubvault/internal/domain"
)

func TestUploadStoresBlobAndCatalogRow(t *testing.T) {
	v := newTestVault(t)
	ctx := context.Background()
	folder := v.addFolder(t, v.teamScope(), nil, "Matches")

	object, err := v.files.Upload(ctx, member, UploadRequest{
		Scope:    v.teamScope(),
		FolderID: &folder.ID,
		Kind:     domain.ObjectKindPhoto,
		Name:     "goal.jpg",
		Data:     []byte("jpeg bytes"),
	})
	require.NoError(t, err)

	wantKey := "vault/" + v.orgID.String() + "/" + v.teamID.String() + "/" + object.ID.String() + "/goal.jpg"
	assert.Equal(t, v.store.PublicURL(wantKey), object.URL)
	require.NotNil(t, object.SizeBytes)
	assert.Equal(t, int64(len("jpeg bytes")), *object.SizeBytes)
	assert.Equal(t, member.ID, object.UploadedBy)
	assert.True(t, v.store.has(object.URL))

	stored, ok := v.object(object.ID)
	require.True(t, ok)
	assert.Equal(t, folder.ID, *stored.FolderID)

	got, err := v.files.GetObject(ctx, member, object.ID)
	require.NoError(t, err)
	assert.Equal(t, "goal.jpg", got.Name)
}

func TestUploadClubRootKey(t *testing.T) {
	v := newTestVault(t)

	object, err := v.files.Upload(context.Background(), member, UploadRequest{
		Scope: v.clubScope(),
		Kind:  domain.ObjectKindFile,
		Name:  "docs/minutes.pdf",
		Data:  []byte("pdf"),
	})
	require.NoError(t, err)
	assert.Equal(t, "minutes.pdf", object.Name)
	assert.True(t, strings.HasSuffix(object.URL, "/club/"+object.ID.String()+"/minutes.pdf"))
	assert.Nil(t, object.FolderID)
}

func TestUploadRejectedByQuotaBeforeStoring(t *testing.T) {
	v := newTestVault(t)
	v.addObject(t, v.clubScope(), nil, domain.ObjectKindFile, "full.bin", domain.BaseQuotaBytes)
	blobs := len(v.store.blobs)

	_, err := v.files.Upload(context.Background(), member, UploadRequest{
		Scope: v.clubScope(),
		Kind:  domain.ObjectKindFile,
		Name:  "extra.pdf",
		Data:  []byte("x"),
	})
	assert.ErrorIs(t, err, domain.ErrQuotaExceeded)
	assert.Len(t, v.store.blobs, blobs)
}

func TestUploadValidation(t *testing.T) {
	v := newTestVault(t)
	ctx := context.Background()
	clubFolder := v.addFolder(t, v.clubScope(), nil, "Board")

	_, err := v.files.Upload(ctx, member, UploadRequest{
		Scope: v.clubScope(), Kind: "video", Name: "clip.mp4", Data: []byte("x"),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = v.files.Upload(ctx, member, UploadRequest{
		Scope: v.clubScope(), Kind: domain.ObjectKindFile, Name: "  ", Data: []byte("x"),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	for _, name := range []string{".", "..", "docs/..", "/"} {
		_, err = v.files.Upload(ctx, member, UploadRequest{
			Scope: v.clubScope(), Kind: domain.ObjectKindFile, Name: name, Data: []byte("x"),
		})
		assert.ErrorIs(t, err, domain.ErrInvalidArgument, name)
	}

	_, err = v.files.Upload(ctx, member, UploadRequest{
		Scope: v.teamScope(), FolderID: &clubFolder.ID, Kind: domain.ObjectKindFile, Name: "a.pdf", Data: []byte("x"),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestUploadCleansUpBlobWhenCatalogFails(t *testing.T) {
	v := newTestVault(t)
	v.catalog.failCreate = errors.New("connection reset")

	_, err := v.files.Upload(context.Background(), member, UploadRequest{
		Scope: v.clubScope(),
		Kind:  domain.ObjectKindFile,
		Name:  "orphan.pdf",
		Data:  []byte("x"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save object")
	require.Len(t, v.store.deletes, 1)
	assert.False(t, v.store.has(v.store.deletes[0]))
}

func TestUploadRequiresCapability(t *testing.T) {
	v := newTestVault(t)
	folder := v.addFolder(t, v.clubScope(), nil, "Private")
	v.caps.denyIDs[domain.FolderRef(folder).ID] = true

	_, err := v.files.Upload(context.Background(), member, UploadRequest{
		Scope:    v.clubScope(),
		FolderID: &folder.ID,
		Kind:     domain.ObjectKindFile,
		Name:     "secret.pdf",
		Data:     []byte("x"),
	})
	assert.ErrorIs(t, err, domain.ErrAccessDenied)
	assert.Empty(t, v.store.deletes)
}
