// Package persistencetest 购物车快照仓储的公共行为测试，各实现共用
package persistencetest

import (
	"context"
	"testing"

	"github.com/deogratias228/espoir-medical-ecommerce/internal/cart/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSnapshotRepository 校验 Load / Save / Delete 的约定：
// 未保存的会话返回 nil，Save 覆盖旧快照，会话之间互不影响，删除不存在的会话不报错
func RunSnapshotRepository(t *testing.T, repo domain.SnapshotRepository) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing session", func(t *testing.T) {
		raw, err := repo.Load(ctx, "00000000-0000-0000-0000-000000000000")
		require.NoError(t, err)
		assert.Nil(t, raw)
	})

	t.Run("save overwrites", func(t *testing.T) {
		id := "6f1c2a4e-8d3b-4c55-9a0e-111111111111"
		first := []byte(`[{"id":1,"name":"Gants","price":3000,"quantity":1}]`)
		second := []byte(`[{"id":1,"name":"Gants","price":3000,"quantity":4}]`)

		require.NoError(t, repo.Save(ctx, id, first))
		require.NoError(t, repo.Save(ctx, id, second))

		raw, err := repo.Load(ctx, id)
		require.NoError(t, err)
		assert.JSONEq(t, string(second), string(raw))

		cart, err := domain.DecodeSnapshot(raw)
		require.NoError(t, err)
		assert.Equal(t, 4, cart.Count())
	})

	t.Run("sessions are isolated", func(t *testing.T) {
		a := "6f1c2a4e-8d3b-4c55-9a0e-222222222222"
		b := "6f1c2a4e-8d3b-4c55-9a0e-333333333333"
		require.NoError(t, repo.Save(ctx, a, []byte(`[{"id":2,"name":"Masque","price":null,"quantity":1}]`)))

		raw, err := repo.Load(ctx, b)
		require.NoError(t, err)
		assert.Nil(t, raw)
	})

	t.Run("delete", func(t *testing.T) {
		id := "6f1c2a4e-8d3b-4c55-9a0e-444444444444"
		require.NoError(t, repo.Save(ctx, id, []byte(`[{"id":3,"name":"Seringue","price":500,"quantity":2}]`)))
		require.NoError(t, repo.Delete(ctx, id))

		raw, err := repo.Load(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, raw)
		require.NoError(t, repo.Delete(ctx, "6f1c2a4e-8d3b-4c55-9a0e-555555555555"))
	})
}
