package allocation

import (
	"errors"
	"testing"
)

func TestSplitBpsConservation(t *testing.T) {
	pools := []int64{0, 1, 9999, 10000, 1_000_000_001}
	partitions := [][]Share{
		{{Key: 1, Bps: 10000}},
		{{Key: 1, Bps: 7000}, {Key: 2, Bps: 3000}},
		{{Key: 1, Bps: 3333}, {Key: 2, Bps: 3333}, {Key: 3, Bps: 3334}},
		{{Key: 1, Bps: 1}, {Key: 2, Bps: 9998}, {Key: 3, Bps: 1}},
		{{Key: 5, Bps: 2500}, {Key: 4, Bps: 2500}, {Key: 3, Bps: 2500}, {Key: 2, Bps: 2500}},
		{{Key: 9, Bps: 0}, {Key: 8, Bps: 10000}},
	}
	for _, pool := range pools {
		for _, shares := range partitions {
			for _, policy := range []ResidualPolicy{ResidualLargestShare, ResidualRoundRobin} {
				got, err := Split(pool, shares, policy)
				if err != nil {
					t.Fatalf("split failed: %v", err)
				}
				if sum := Sum(got); sum != pool {
					t.Fatalf("pool=%d shares=%v policy=%d: sum=%d", pool, shares, policy, sum)
				}
				for key, amount := range got {
					if amount < 0 {
						t.Fatalf("negative allocation key=%d amount=%d", key, amount)
					}
				}
			}
		}
	}
}

func TestSplitBpsFloorBaseline(t *testing.T) {
	got, err := SplitBps(9700, []Share{{Key: 1, Bps: 7000}, {Key: 2, Bps: 3000}})
	if err != nil {
		t.Fatalf("split failed: %v", err)
	}
	if got[1] != 6790 || got[2] != 2910 {
		t.Fatalf("unexpected split: %v", got)
	}
}

func TestSplitBpsResidualToLargestShare(t *testing.T) {
	// floor(100*3333/10000)=33, floor(100*3334/10000)=33 → 残差 1 归 3334
	got, err := SplitBps(100, []Share{{Key: 1, Bps: 3333}, {Key: 2, Bps: 3334}, {Key: 3, Bps: 3333}})
	if err != nil {
		t.Fatalf("split failed: %v", err)
	}
	if got[1] != 33 || got[2] != 34 || got[3] != 33 {
		t.Fatalf("unexpected split: %v", got)
	}
}

func TestSplitBpsTieGoesToFirstInInputOrder(t *testing.T) {
	shares := []Share{{Key: 20, Bps: 5000}, {Key: 10, Bps: 5000}}
	got, err := SplitBps(101, shares)
	if err != nil {
		t.Fatalf("split failed: %v", err)
	}
	if got[20] != 51 || got[10] != 50 {
		t.Fatalf("expected first share in input order to absorb residual, got %v", got)
	}

	reversed := []Share{{Key: 10, Bps: 5000}, {Key: 20, Bps: 5000}}
	got, err = SplitBps(101, reversed)
	if err != nil {
		t.Fatalf("split failed: %v", err)
	}
	if got[10] != 51 || got[20] != 50 {
		t.Fatalf("expected key 10 to absorb residual, got %v", got)
	}
}

func TestSplitRoundRobinResidualBySortedKey(t *testing.T) {
	shares := []Share{{Key: 30, Bps: 3333}, {Key: 10, Bps: 3333}, {Key: 20, Bps: 3334}}
	got, err := Split(2, shares, ResidualRoundRobin)
	if err != nil {
		t.Fatalf("split failed: %v", err)
	}
	if got[10] != 1 || got[20] != 1 || got[30] != 0 {
		t.Fatalf("unexpected round robin split: %v", got)
	}
}

func TestSplitEmptyShares(t *testing.T) {
	got, err := SplitBps(500, nil)
	if err != nil {
		t.Fatalf("split failed: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty allocation, got %v", got)
	}
}

func TestSplitRejectsInvalidInput(t *testing.T) {
	if _, err := SplitBps(-1, []Share{{Key: 1, Bps: 10000}}); !errors.Is(err, ErrInvalidPool) {
		t.Fatalf("expected ErrInvalidPool, got %v", err)
	}
	if _, err := SplitBps(10, []Share{{Key: 1, Bps: 10001}}); !errors.Is(err, ErrInvalidShare) {
		t.Fatalf("expected ErrInvalidShare, got %v", err)
	}
	if _, err := SplitEvenly(-5, []uint{1}); !errors.Is(err, ErrInvalidPool) {
		t.Fatalf("expected ErrInvalidPool, got %v", err)
	}
}

func TestSplitEvenlyRemainderInSortedOrder(t *testing.T) {
	got, err := SplitEvenly(1003, []uint{7, 3, 5})
	if err != nil {
		t.Fatalf("split evenly failed: %v", err)
	}
	if got[3] != 335 || got[5] != 334 || got[7] != 334 {
		t.Fatalf("unexpected even split: %v", got)
	}
	if Sum(got) != 1003 {
		t.Fatalf("expected sum 1003, got %d", Sum(got))
	}
}

func TestSplitLargePoolDoesNotOverflow(t *testing.T) {
	pool := int64(9_000_000_000_000_000)
	got, err := SplitBps(pool, []Share{{Key: 1, Bps: 9999}, {Key: 2, Bps: 1}})
	if err != nil {
		t.Fatalf("split failed: %v", err)
	}
	if Sum(got) != pool {
		t.Fatalf("expected conservation for large pool, got %d", Sum(got))
	}
	if got[2] != pool/10000 {
		t.Fatalf("unexpected small share: %d", got[2])
	}
}
