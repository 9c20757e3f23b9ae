package mot

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// MatchingAlgorithm is for algorithm type for matching input centroids to tracks
type MatchingAlgorithm uint16

const (
	// MatchingAlgorithmGreedy resolves rows with the nearest candidate first (default)
	MatchingAlgorithmGreedy MatchingAlgorithm = iota
	// MatchingAlgorithmHungarian uses the Hungarian algorithm (Kuhn-Munkres) for optimal assignment
	MatchingAlgorithmHungarian
)

// String returns name of the algorithm
func (algorithm MatchingAlgorithm) String() string {
	switch algorithm {
	case MatchingAlgorithmHungarian:
		return "hungarian"
	default:
		return "greedy"
	}
}

// match is an accepted (track row, input column) pair
type match struct {
	row      int
	col      int
	distance float64
}

// distanceMatrix builds D[i][j]: distance between i-th track and j-th input centroid
func distanceMatrix(tracks []*Track, centroids []Point) *mat.Dense {
	distances := mat.NewDense(len(tracks), len(centroids), nil)
	for i, track := range tracks {
		for j, center := range centroids {
			distances.Set(i, j, track.distanceTo(center))
		}
	}
	return distances
}

// greedyMatching walks rows ordered by their minimum distance and takes each row's
// argmin column unless it has been consumed already or is farther than maxDistance.
// A row whose argmin column is taken is left unmatched.
func greedyMatching(distances *mat.Dense, maxDistance float64) []match {
	rows, cols := distances.Dims()
	matches := make([]match, 0, minInt(rows, cols))
	if rows == 0 || cols == 0 {
		return matches
	}
	priorityQueue := make(candidateHeap, 0, rows)
	for i := 0; i < rows; i++ {
		row := distances.RawRowView(i)
		j := floats.MinIdx(row)
		priorityQueue.Push(rowCandidate{row: i, col: j, distance: row[j]})
	}
	usedRows := make(map[int]struct{}, rows)
	usedCols := make(map[int]struct{}, cols)
	for priorityQueue.Len() > 0 {
		candidate := priorityQueue.Pop()
		if _, ok := usedRows[candidate.row]; ok {
			continue
		}
		if _, ok := usedCols[candidate.col]; ok {
			continue
		}
		if candidate.distance > maxDistance {
			continue
		}
		matches = append(matches, match{row: candidate.row, col: candidate.col, distance: candidate.distance})
		usedRows[candidate.row] = struct{}{}
		usedCols[candidate.col] = struct{}{}
	}
	return matches
}

// hungarianMatching solves the assignment optimally with Kuhn-Munkres (potentials variant).
// Pairs within maxDistance cost d - maxDistance, every other cell of the padded square matrix
// costs zero, so minimal total cost maximizes total score (maxDistance - d) of accepted pairs.
// Pairs beyond maxDistance are rejected after solving.
func hungarianMatching(distances *mat.Dense, maxDistance float64) []match {
	rows, cols := distances.Dims()
	matches := make([]match, 0, minInt(rows, cols))
	if rows == 0 || cols == 0 {
		return matches
	}
	size := maxInt(rows, cols)
	costs := mat.NewDense(size, size, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if d := distances.At(i, j); d <= maxDistance {
				costs.Set(i, j, d-maxDistance)
			}
		}
	}
	assignment := solveAssignment(costs)
	for row := 0; row < rows; row++ {
		col := assignment[row]
		if col < 0 || col >= cols {
			continue
		}
		if d := distances.At(row, col); d <= maxDistance {
			matches = append(matches, match{row: row, col: col, distance: d})
		}
	}
	return matches
}

// solveAssignment returns column assigned to every row of square cost matrix with minimal total cost.
// Arrays are 1-indexed: column 0 is a virtual one used to start augmenting paths.
func solveAssignment(costs *mat.Dense) []int {
	n, _ := costs.Dims()
	inf := math.Inf(1)
	u := make([]float64, n+1)
	v := make([]float64, n+1)
	// owner[j] is row assigned to column j
	owner := make([]int, n+1)
	way := make([]int, n+1)
	minv := make([]float64, n+1)
	used := make([]bool, n+1)
	for i := 1; i <= n; i++ {
		owner[0] = i
		j0 := 0
		for j := 1; j <= n; j++ {
			minv[j] = inf
			used[j] = false
		}
		for {
			used[j0] = true
			i0 := owner[j0]
			delta := inf
			j1 := 0
			for j := 1; j <= n; j++ {
				if used[j] {
					continue
				}
				cur := costs.At(i0-1, j-1) - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}
			for j := 0; j <= n; j++ {
				if used[j] {
					u[owner[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}
			j0 = j1
			if owner[j0] == 0 {
				break
			}
		}
		for j0 != 0 {
			j1 := way[j0]
			owner[j0] = owner[j1]
			j0 = j1
		}
	}
	assignment := make([]int, n)
	for i := range assignment {
		assignment[i] = -1
	}
	for j := 1; j <= n; j++ {
		if owner[j] > 0 {
			assignment[owner[j]-1] = j - 1
		}
	}
	return assignment
}
