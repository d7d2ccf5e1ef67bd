package memory

import (
	"context"
	"testing"

	"github.com/deogratias228/espoir-medical-ecommerce/internal/cart/infrastructure/persistence/persistencetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRepository(t *testing.T) {
	repo := NewSnapshotRepository()
	ctx := context.Background()

	raw, err := repo.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, raw)

	data := []byte(`[{"id":1,"name":"Gants","price":3000,"quantity":1}]`)
	require.NoError(t, repo.Save(ctx, "s1", data))
	data[0] = 'x'

	raw, err = repo.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, byte('['), raw[0])
	assert.Equal(t, 1, repo.Len())

	require.NoError(t, repo.Delete(ctx, "s1"))
	require.NoError(t, repo.Delete(ctx, "absent"))
	assert.Equal(t, 0, repo.Len())
}

func TestSnapshotRepository_Contract(t *testing.T) {
	persistencetest.RunSnapshotRepository(t, NewSnapshotRepository())
}
