package lod

import (
	"sync"
)

// parallelMinPoints is the stream length below which Decimate stays on the
// calling goroutine.
const parallelMinPoints = 1 << 14

// Decimate returns the indices of the kept entries of dists, in their
// original order. dists[i] is the camera distance of the stream's (i+1)-th
// candidate. Long streams are evaluated in parallel chunks into a mask and
// then compacted, which is valid because each decision depends only on the
// point's own ordinal and distance.
func Decimate(dists []float64, p Params, workers int) []int {
	n := len(dists)
	if n == 0 {
		return nil
	}
	keep := make([]bool, n)

	if workers <= 1 || n < parallelMinPoints {
		fillMask(keep, dists, p, 0, n)
	} else {
		chunk := (n + workers - 1) / workers
		var wg sync.WaitGroup
		for lo := 0; lo < n; lo += chunk {
			hi := min(lo+chunk, n)
			wg.Add(1)
			go func(lo, hi int) {
				defer wg.Done()
				fillMask(keep, dists, p, lo, hi)
			}(lo, hi)
		}
		wg.Wait()
	}

	kept := make([]int, 0, n)
	for i, k := range keep {
		if k {
			kept = append(kept, i)
		}
	}
	return kept
}

func fillMask(keep []bool, dists []float64, p Params, lo, hi int) {
	for i := lo; i < hi; i++ {
		keep[i] = p.KeepAt(i+1, dists[i])
	}
}

// Predict counts how many entries Decimate would keep without allocating
// the index slice.
func Predict(dists []float64, p Params) int {
	count := 0
	for i, d := range dists {
		if p.KeepAt(i+1, d) {
			count++
		}
	}
	return count
}
