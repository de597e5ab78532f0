package access

import (
	"context"
	"errors"
	"testing"
)

type lookupFunc func(ctx context.Context, id int64) (bool, error)

func (f lookupFunc) IsActiveAdmin(ctx context.Context, id int64) (bool, error) {
	return f(ctx, id)
}

func TestIsAdmin(t *testing.T) {
	lookup := lookupFunc(func(_ context.Context, id int64) (bool, error) {
		switch id {
		case 300:
			return true, nil
		case 400:
			return false, errors.New("db down")
		}
		return false, nil
	})

	svc := New([]int64{100, 200, 0}, lookup)

	tests := []struct {
		id   int64
		want bool
	}{
		{100, true},
		{200, true},
		{300, true},
		{400, false},
		{500, false},
		{0, false},
	}

	for _, tt := range tests {
		if got := svc.IsAdmin(context.Background(), tt.id); got != tt.want {
			t.Errorf("IsAdmin(%d) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestIsAdminWithoutLookup(t *testing.T) {
	svc := New([]int64{42}, nil)

	if !svc.IsAdmin(context.Background(), 42) {
		t.Error("IsAdmin(42) = false, want true")
	}
	if svc.IsAdmin(context.Background(), 43) {
		t.Error("IsAdmin(43) = true, want false")
	}
}
