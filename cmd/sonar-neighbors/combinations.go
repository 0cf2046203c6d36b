package main

// combinations returns the unique subsets of size k of integers 0..n-1, in
// order. There are n! / (k! * (n-k)!) of them.
//
// Example: combinations(4, 2) ->
//
//	[0,1], [0,2], [0,3], [1,2], [1,3], [2,3]
func combinations(n, k int) [][]int {
	if k <= 0 || k > n {
		return nil
	}

	a := make([]int, k)
	for i := range a {
		a[i] = i
	}

	var out [][]int
	for {
		// Copy, since a gets reused for the next combination.
		out = append(out, append([]int(nil), a...))

		// Look right to left to find the first digit that can be incremented.
		j := k - 1
		for j >= 0 && a[j] == n-k+j {
			j--
		}
		if j < 0 {
			return out
		}

		a[j]++
		// Reset all the values after a[j] to be a[j]+1, a[j]+2, etc.
		for i := j + 1; i < k; i++ {
			a[i] = a[i-1] + 1
		}
	}
}
