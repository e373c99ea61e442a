package services_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/avatarctic/commerce-gateway/internal/application/services"
	"github.com/avatarctic/commerce-gateway/internal/core/domain/resource"
	"github.com/stretchr/testify/require"
)

func TestVersionLog_StaleOnlyForOlderReads(t *testing.T) {
	l := services.NewVersionLog()
	before := l.Current()
	v := l.Record([]resource.Pattern{"orders:u1:*"}, time.Minute)

	require.Greater(t, v, before)
	require.True(t, l.Stale("orders:u1:list", before))
	require.False(t, l.Stale("orders:u1:list", v))
	require.False(t, l.Stale("orders:u2:list", before))
	require.False(t, l.Stale("cart:u1", before))
}

func TestVersionLog_ExactPatternMatchesOnlyItsKey(t *testing.T) {
	l := services.NewVersionLog()
	before := l.Current()
	l.Record([]resource.Pattern{"catalog:product:1"}, time.Minute)

	require.True(t, l.Stale("catalog:product:1", before))
	require.False(t, l.Stale("catalog:product:10", before))
}

func TestVersionLog_NamespaceWidePrefix(t *testing.T) {
	l := services.NewVersionLog()
	before := l.Current()
	l.Record([]resource.Pattern{"catalog*"}, time.Minute)

	require.True(t, l.Stale("catalog:search:sort=price_asc", before))
	require.False(t, l.Stale("vendors:list", before))
}

func TestVersionLog_GuardSkipsStaleWrites(t *testing.T) {
	l := services.NewVersionLog()
	before := l.Current()
	l.Record([]resource.Pattern{"cart:u1"}, time.Minute)

	ran := l.Guard("cart:u1", before, func() { t.Fatal("stale population must not run") })
	require.False(t, ran)

	ran = l.Guard("cart:u1", l.Current(), func() {})
	require.True(t, ran)
}

func TestVersionLog_TombstonesExpire(t *testing.T) {
	l := services.NewVersionLog()
	before := l.Current()
	l.Record([]resource.Pattern{"users:u1"}, 10*time.Millisecond)
	require.Equal(t, 1, l.Len())

	require.Eventually(t, func() bool { return l.Len() == 0 }, time.Second, 2*time.Millisecond)
	require.False(t, l.Stale("users:u1", before))
}

func TestVersionLog_ExtendKeepsTombstone(t *testing.T) {
	l := services.NewVersionLog()
	before := l.Current()
	p := resource.Pattern("vendors:*")
	v := l.Record([]resource.Pattern{p}, 10*time.Millisecond)
	l.Extend(p, v, time.Hour)

	time.Sleep(20 * time.Millisecond)
	require.Equal(t, 1, l.Len())
	require.True(t, l.Stale("vendors:3", before))
}

func TestVersionLog_ManyExactTombstones(t *testing.T) {
	l := services.NewVersionLog()
	before := l.Current()
	for i := 0; i < 12000; i++ {
		l.Record([]resource.Pattern{resource.Pattern(fmt.Sprintf("cart:u%d", i))}, time.Minute)
	}

	require.Equal(t, 12000, l.Len())
	require.True(t, l.Stale("cart:u42", before))
	require.False(t, l.Stale("cart:someone-else", before))
	require.False(t, l.Stale("cart:u42", l.Current()))
}

func TestVersionLog_RepeatedKeyKeepsNewestVersionAndLatestExpiry(t *testing.T) {
	l := services.NewVersionLog()
	now := time.Now()
	l.SetClock(func() time.Time { return now })

	first := l.Record([]resource.Pattern{"users:u1"}, time.Hour)
	second := l.Record([]resource.Pattern{"users:u1"}, time.Second)
	require.Equal(t, 1, l.Len())
	require.True(t, l.Stale("users:u1", first))
	require.False(t, l.Stale("users:u1", second))

	// The shorter second keep does not cut the first one short.
	now = now.Add(time.Minute)
	require.True(t, l.Stale("users:u1", first))
}

func TestVersionLog_RecordPrunesExpired(t *testing.T) {
	l := services.NewVersionLog()
	now := time.Now()
	l.SetClock(func() time.Time { return now })
	before := l.Current()

	l.Record([]resource.Pattern{"cart:u1", "orders:u1:*"}, time.Second)
	require.Equal(t, 2, l.Len())

	now = now.Add(2 * time.Second)
	require.False(t, l.Stale("cart:u1", before))
	require.False(t, l.Stale("orders:u1:list", before))

	l.Record([]resource.Pattern{"cart:u2"}, time.Minute)
	require.Equal(t, 1, l.Len())
	require.True(t, l.Stale("cart:u2", before))
}

func TestVersionLog_ExtendExactKey(t *testing.T) {
	l := services.NewVersionLog()
	now := time.Now()
	l.SetClock(func() time.Time { return now })
	before := l.Current()

	v := l.Record([]resource.Pattern{"cart:u1"}, time.Second)
	l.Extend("cart:u1", v, time.Hour)
	now = now.Add(time.Minute)
	require.True(t, l.Stale("cart:u1", before))
}

func BenchmarkVersionLog_StaleWithManyTombstones(b *testing.B) {
	l := services.NewVersionLog()
	for i := 0; i < 12000; i++ {
		l.Record([]resource.Pattern{resource.Pattern(fmt.Sprintf("cart:u%d", i))}, time.Minute)
	}
	l.Record([]resource.Pattern{"cart:vip:*"}, time.Minute)
	v := l.Current() - 1
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		l.Stale("cart:someone-else", v)
	}
}
