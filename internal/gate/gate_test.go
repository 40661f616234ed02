package gate

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/eldtechnologies/fileshare/internal/models"
)

type fakeGroups struct {
	groups []int64
	err    error
}

func (f *fakeGroups) ListRequiredGroups(ctx context.Context) ([]models.RequiredGroup, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.RequiredGroup, len(f.groups))
	for i, id := range f.groups {
		out[i] = models.RequiredGroup{GroupID: id}
	}
	return out, nil
}

type statusKey struct{ group, user int64 }

type fakeMembers struct {
	mu       sync.Mutex
	statuses map[statusKey]string
	failing  map[int64]bool
	queries  int
}

func (f *fakeMembers) MemberStatus(ctx context.Context, groupID, userID int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++
	if f.failing[groupID] {
		return "", errors.New("chat not found")
	}
	if s, ok := f.statuses[statusKey{groupID, userID}]; ok {
		return s, nil
	}
	return "left", nil
}

func TestCheck(t *testing.T) {
	const user = 500

	tests := []struct {
		name     string
		groups   []int64
		statuses map[statusKey]string
		failing  map[int64]bool
		admitted bool
		missing  []int64
	}{
		{
			name:     "no required groups",
			admitted: true,
		},
		{
			name:     "member everywhere",
			groups:   []int64{-1, -2, -3},
			statuses: map[statusKey]string{{-1, user}: "member", {-2, user}: "administrator", {-3, user}: "creator"},
			admitted: true,
		},
		{
			name:     "missing one group",
			groups:   []int64{-1, -2},
			statuses: map[statusKey]string{{-1, user}: "member"},
			missing:  []int64{-2},
		},
		{
			name:     "restricted and kicked are not compliant",
			groups:   []int64{-1, -2},
			statuses: map[statusKey]string{{-1, user}: "restricted", {-2, user}: "kicked"},
			missing:  []int64{-1, -2},
		},
		{
			name:     "query error counts as missing",
			groups:   []int64{-1, -2, -3},
			statuses: map[statusKey]string{{-1, user}: "member", {-2, user}: "member", {-3, user}: "member"},
			failing:  map[int64]bool{-2: true},
			missing:  []int64{-2},
		},
		{
			name:    "missing keeps store order",
			groups:  []int64{-9, -3, -7, -1},
			missing: []int64{-9, -3, -7, -1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			members := &fakeMembers{statuses: tt.statuses, failing: tt.failing}
			g := New(&fakeGroups{groups: tt.groups}, members, zerolog.Nop())

			res, err := g.Check(context.Background(), user)
			if err != nil {
				t.Fatal(err)
			}
			if res.Admitted != tt.admitted {
				t.Fatalf("admitted = %v, want %v", res.Admitted, tt.admitted)
			}
			if len(res.Missing) != len(tt.missing) {
				t.Fatalf("missing = %v, want %v", res.Missing, tt.missing)
			}
			for i := range tt.missing {
				if res.Missing[i] != tt.missing[i] {
					t.Fatalf("missing = %v, want %v", res.Missing, tt.missing)
				}
			}
			if members.queries != len(tt.groups) {
				t.Fatalf("expected %d status queries, got %d", len(tt.groups), members.queries)
			}
		})
	}
}

func TestCheckIsNotMemoized(t *testing.T) {
	members := &fakeMembers{statuses: map[statusKey]string{}}
	g := New(&fakeGroups{groups: []int64{-1}}, members, zerolog.Nop())

	res, _ := g.Check(context.Background(), 1)
	if res.Admitted {
		t.Fatal("should be denied before joining")
	}

	members.mu.Lock()
	members.statuses[statusKey{-1, 1}] = "member"
	members.mu.Unlock()

	res, _ = g.Check(context.Background(), 1)
	if !res.Admitted {
		t.Fatal("should be admitted after joining")
	}
}

func TestCheckGroupListError(t *testing.T) {
	g := New(&fakeGroups{err: errors.New("db down")}, &fakeMembers{}, zerolog.Nop())
	if _, err := g.Check(context.Background(), 1); err == nil {
		t.Fatal("expected error")
	}
}
