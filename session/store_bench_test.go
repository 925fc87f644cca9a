package session

import (
	"context"
	"testing"
)

func BenchmarkStoreTokenParallel(b *testing.B) {
	s := NewStore(NewMemoryPersister(), nil)
	if err := s.Set(context.Background(), Credential{Token: "bench-token", Username: "bench"}); err != nil {
		b.Fatalf("set: %v", err)
	}
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if s.Token() == "" {
				b.Fatal("empty token")
			}
		}
	})
}

func BenchmarkStoreSetClear(b *testing.B) {
	s := NewStore(NewMemoryPersister(), nil)
	ctx := context.Background()
	cred := Credential{Token: "bench-token", Username: "bench"}
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if err := s.Set(ctx, cred); err != nil {
			b.Fatalf("set: %v", err)
		}
		if err := s.Clear(ctx); err != nil {
			b.Fatalf("clear: %v", err)
		}
	}
}
