package command

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/tablegate/internal/domain"
)

type fakeRuleStore struct {
	rules   []domain.CapacityRule
	created []domain.CapacityRule
	err     error
}

func (f *fakeRuleStore) ListActiveRules(ctx context.Context, storeID string) ([]domain.CapacityRule, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.rules, nil
}

func (f *fakeRuleStore) CreateRule(ctx context.Context, rule domain.CapacityRule) (domain.CapacityRule, error) {
	if f.err != nil {
		return domain.CapacityRule{}, f.err
	}
	f.created = append(f.created, rule)
	return rule, nil
}

type fakeLimiter struct{ allowed bool }

func (f *fakeLimiter) Allow(ctx context.Context, id string) (bool, int64, time.Duration, error) {
	return f.allowed, 0, 0, nil
}

func TestApplyCreatesRule(t *testing.T) {
	store := &fakeRuleStore{}
	svc := New(store, nil, nil)

	result := svc.Apply(context.Background(), "restaurant-002", "op-1", "/limit sat,sun lunch 5/h")

	require.True(t, result.Success)
	require.NotNil(t, result.Rule)
	assert.Contains(t, result.Message, "制限ルールを設定しました")

	require.Len(t, store.created, 1)
	created := store.created[0]
	assert.Equal(t, "restaurant-002", created.StoreID)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, 5, created.LimitValue)
}

func TestApplyListsRules(t *testing.T) {
	store := &fakeRuleStore{rules: []domain.CapacityRule{
		{ID: "rule-1", Description: "週末ランチ 1時間あたり5件まで"},
		{ID: "rule-2", Description: "本日 18:00以降: 予約停止"},
	}}
	svc := New(store, nil, nil)

	result := svc.Apply(context.Background(), "restaurant-002", "op-1", "/limits")

	require.True(t, result.Success)
	assert.Contains(t, result.Message, "現在の制限ルール")
	assert.Contains(t, result.Message, "1. 週末ランチ 1時間あたり5件まで")
	assert.Contains(t, result.Message, "ID: #rule-1 🟢")
	assert.Contains(t, result.Message, "2. 本日 18:00以降: 予約停止")
	assert.Contains(t, result.Message, "利用可能なコマンド")
}

func TestApplyListsNoRules(t *testing.T) {
	svc := New(&fakeRuleStore{}, nil, nil)

	result := svc.Apply(context.Background(), "restaurant-002", "op-1", "/limits")

	require.True(t, result.Success)
	assert.Contains(t, result.Message, "制限ルールは設定されていません")
}

func TestApplyUnknownCommand(t *testing.T) {
	store := &fakeRuleStore{}
	svc := New(store, nil, nil)

	result := svc.Apply(context.Background(), "restaurant-002", "op-1", "/frobnicate now")

	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "未対応のコマンド")
	assert.Empty(t, store.created)
}

func TestApplyBadTokenFailsWholeCommand(t *testing.T) {
	store := &fakeRuleStore{}
	svc := New(store, nil, nil)

	result := svc.Apply(context.Background(), "restaurant-002", "op-1", "/limit xyz 5/h")

	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "xyz")
	assert.Empty(t, store.created, "no partial rule may be created")
}

func TestApplyThrottled(t *testing.T) {
	store := &fakeRuleStore{}
	svc := New(store, &fakeLimiter{allowed: false}, nil)

	result := svc.Apply(context.Background(), "restaurant-002", "op-1", "/limits")

	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "コマンドの実行が多すぎます")
}

func TestApplyBackendErrorIsContained(t *testing.T) {
	store := &fakeRuleStore{err: errors.New("pg down")}
	svc := New(store, nil, nil)

	result := svc.Apply(context.Background(), "restaurant-002", "op-1", "/limit today 20")

	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "システムエラー")
}
