// Package allocation 按基点（bps）拆分整数金额（分），保证分毫不差
package allocation

import (
	"errors"
	"fmt"
	"math/bits"
	"sort"
)

// BpsScale 10000 bps = 100%
const BpsScale = 10000

var (
	// ErrInvalidPool 待分配金额非法
	ErrInvalidPool = errors.New("allocation pool must be non-negative")
	// ErrInvalidShare 份额非法
	ErrInvalidShare = errors.New("allocation share bps out of range")
)

// ResidualPolicy 舍入余数的归属策略
type ResidualPolicy int

const (
	// ResidualLargestShare 余数全部归 bps 最大的一项（并列时取输入顺序靠前者）
	ResidualLargestShare ResidualPolicy = iota
	// ResidualRoundRobin 余数按 key 升序逐分轮流分配
	ResidualRoundRobin
)

// Share 一个收款方的份额
type Share struct {
	Key uint  `json:"key"`
	Bps int64 `json:"bps"`
}

// SplitBps 按 bps 拆分，余数归最大份额
func SplitBps(pool int64, shares []Share) (map[uint]int64, error) {
	return Split(pool, shares, ResidualLargestShare)
}

// Split 按 bps 拆分整数金额
// 每项基线为 floor(pool*bps/10000)，再按策略分配余数，输出合计恒等于 pool。
// shares 为空时返回空 map，pool 不做分配。
func Split(pool int64, shares []Share, policy ResidualPolicy) (map[uint]int64, error) {
	if pool < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPool, pool)
	}
	result := make(map[uint]int64, len(shares))
	if len(shares) == 0 {
		return result, nil
	}
	for _, share := range shares {
		if share.Bps < 0 || share.Bps > BpsScale {
			return nil, fmt.Errorf("%w: key=%d bps=%d", ErrInvalidShare, share.Key, share.Bps)
		}
	}

	var distributed int64
	for _, share := range shares {
		amount := mulDivFloor(pool, share.Bps, BpsScale)
		result[share.Key] += amount
		distributed += amount
	}
	residual := pool - distributed
	if residual == 0 {
		return result, nil
	}

	switch policy {
	case ResidualRoundRobin:
		keys := sortedShareKeys(shares)
		distributeRoundRobin(result, keys, residual)
	default:
		largest := 0
		for i := 1; i < len(shares); i++ {
			if shares[i].Bps > shares[largest].Bps {
				largest = i
			}
		}
		result[shares[largest].Key] += residual
	}
	return result, nil
}

// SplitEvenly 平均拆分：每人 floor(pool/n)，余数按 key 升序逐分分配
func SplitEvenly(pool int64, keys []uint) (map[uint]int64, error) {
	if pool < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPool, pool)
	}
	result := make(map[uint]int64, len(keys))
	if len(keys) == 0 {
		return result, nil
	}
	sorted := uniqueSortedKeys(keys)
	each := pool / int64(len(sorted))
	for _, key := range sorted {
		result[key] = each
	}
	distributeRoundRobin(result, sorted, pool-each*int64(len(sorted)))
	return result, nil
}

// Sum 合计分配结果
func Sum(allocations map[uint]int64) int64 {
	var total int64
	for _, amount := range allocations {
		total += amount
	}
	return total
}

func distributeRoundRobin(result map[uint]int64, keys []uint, residual int64) {
	if len(keys) == 0 {
		return
	}
	for i := 0; residual > 0; i++ {
		result[keys[i%len(keys)]]++
		residual--
	}
}

func sortedShareKeys(shares []Share) []uint {
	keys := make([]uint, 0, len(shares))
	for _, share := range shares {
		keys = append(keys, share.Key)
	}
	return uniqueSortedKeys(keys)
}

func uniqueSortedKeys(keys []uint) []uint {
	seen := make(map[uint]struct{}, len(keys))
	result := make([]uint, 0, len(keys))
	for _, key := range keys {
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, key)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// mulDivFloor 计算 floor(a*b/c)，中间结果使用 128 位避免溢出（a、b 非负，c 为正）
func mulDivFloor(a, b, c int64) int64 {
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	if hi == 0 {
		return int64(lo / uint64(c))
	}
	quo, _ := bits.Div64(hi, lo, uint64(c))
	return int64(quo)
}
