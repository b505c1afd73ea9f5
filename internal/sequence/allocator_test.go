package sequence

import (
	"context"
	"sync"
	"testing"
	"time"

	"backend-antrian-klinik/internal/store"
	"backend-antrian-klinik/internal/store/memory"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis(client), mr
}

func TestRedisAllocatorConcurrent(t *testing.T) {
	alloc, _ := newRedis(t)
	scope := Scope{ClinicID: 1, DoctorID: 10, Day: "2025-03-10"}
	const n = 50

	var wg sync.WaitGroup
	got := make(chan int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			num, err := alloc.Next(context.Background(), nil, scope)
			if err != nil {
				t.Errorf("next: %v", err)
				return
			}
			got <- num
		}()
	}
	wg.Wait()
	close(got)

	seen := make(map[int]bool)
	for num := range got {
		if seen[num] {
			t.Fatalf("number %d issued twice", num)
		}
		seen[num] = true
	}
	for i := 1; i <= n; i++ {
		if !seen[i] {
			t.Fatalf("number %d missing", i)
		}
	}

	cur, err := alloc.Current(context.Background(), scope)
	if err != nil || cur != n {
		t.Fatalf("current = %d, %v", cur, err)
	}
}

func TestRedisAllocatorScopes(t *testing.T) {
	alloc, mr := newRedis(t)
	ctx := context.Background()
	day1 := Scope{ClinicID: 1, DoctorID: 10, Day: "2025-03-10"}
	day2 := Scope{ClinicID: 1, DoctorID: 10, Day: "2025-03-11"}
	doc2 := Scope{ClinicID: 1, DoctorID: 11, Day: "2025-03-10"}

	for i := 0; i < 3; i++ {
		if _, err := alloc.Next(ctx, nil, day1); err != nil {
			t.Fatalf("next: %v", err)
		}
	}
	for _, s := range []Scope{day2, doc2} {
		n, err := alloc.Next(ctx, nil, s)
		if err != nil {
			t.Fatalf("next %s: %v", s, err)
		}
		if n != 1 {
			t.Fatalf("scope %s started at %d, want 1", s, n)
		}
	}

	if ttl := mr.TTL(alloc.key(day1)); ttl <= 0 || ttl > keyTTL {
		t.Fatalf("ttl = %v", ttl)
	}
	mr.FastForward(keyTTL + time.Second)
	if cur, _ := alloc.Current(ctx, day1); cur != 0 {
		t.Fatalf("expired counter still at %d", cur)
	}
}

func TestRedisAllocatorFailure(t *testing.T) {
	alloc, mr := newRedis(t)
	mr.Close()
	if _, err := alloc.Next(context.Background(), nil, Scope{ClinicID: 1, DoctorID: 1, Day: "2025-03-10"}); err == nil {
		t.Fatalf("expected error when redis is down")
	}
}

func TestSQLAllocatorRollsBackWithTransaction(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	scope := Scope{ClinicID: 1, DoctorID: 10, Day: "2025-03-10"}

	next := func() int {
		var n int
		err := st.WithTx(ctx, func(tx store.Tx) error {
			var err error
			n, err = SQL{}.Next(ctx, tx, scope)
			return err
		})
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		return n
	}

	if got := next(); got != 1 {
		t.Fatalf("first = %d", got)
	}
	_ = st.WithTx(ctx, func(tx store.Tx) error {
		if _, err := (SQL{}).Next(ctx, tx, scope); err != nil {
			t.Fatalf("next: %v", err)
		}
		return context.Canceled // rollback
	})
	if got := next(); got != 2 {
		t.Fatalf("after rollback = %d, want 2", got)
	}
}
