package memory

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/annual-report-harvester/internal/archive"
)

func TestBackendFindFolderScopesByParent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b := NewBackend()
	root, err := b.CreateFolder(ctx, "archive", "")
	require.NoError(t, err)
	child, err := b.CreateFolder(ctx, "Banks", root)
	require.NoError(t, err)

	id, found, err := b.FindFolder(ctx, "Banks", root)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, child, id)

	_, found, err = b.FindFolder(ctx, "Banks", "elsewhere")
	require.NoError(t, err)
	require.False(t, found)

	id, found, err = b.FindFolder(ctx, "archive", "")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, root, id)
}

func TestBackendCreateFileCopiesData(t *testing.T) {
	t.Parallel()

	b := NewBackend()
	payload := []byte("content")
	id, err := b.CreateFile(context.Background(), archive.File{
		Name:        "Acme",
		ParentID:    "p",
		ContentType: "application/pdf",
		Body:        bytes.NewReader(payload),
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	payload[0] = 'C'
	files := b.Files()
	require.Len(t, files, 1)
	require.Equal(t, "content", string(files[0].Data))
	require.Equal(t, "application/pdf", files[0].ContentType)
}

func TestBackendCreatePermissionRequiresResource(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b := NewBackend()
	err := b.CreatePermission(ctx, "missing", archive.Permission{Role: "writer"})
	require.Error(t, err)

	folder, err := b.CreateFolder(ctx, "Banks", "")
	require.NoError(t, err)
	perm := archive.Permission{Role: "writer", Type: "user", EmailAddress: "ops@example.com"}
	require.NoError(t, b.CreatePermission(ctx, folder, perm))
	require.Equal(t, []archive.Permission{perm}, b.Permissions(folder))
}
