package ml

// dbscan runs density-reachability clustering. It returns clusters of point
// indices plus the indices rejected as noise. With minPts=1 every point seeds
// its own neighborhood, so the noise list is always empty.
func dbscan(points [][]float64, eps float64, minPts int) (clusters [][]int, noise []int) {
	const (
		unvisited = 0
		inCluster = 1
		asNoise   = 2
	)
	state := make([]int, len(points))

	for i := range points {
		if state[i] != unvisited {
			continue
		}
		neighbors := regionQuery(points, i, eps)
		if len(neighbors) < minPts {
			state[i] = asNoise
			continue
		}

		var cluster []int
		state[i] = inCluster
		cluster = append(cluster, i)

		// Seed-set expansion; the queue grows as dense neighbors join.
		queue := append([]int(nil), neighbors...)
		for qi := 0; qi < len(queue); qi++ {
			j := queue[qi]
			if state[j] == asNoise {
				// Border point reachable from a core point.
				state[j] = inCluster
				cluster = append(cluster, j)
				continue
			}
			if state[j] != unvisited {
				continue
			}
			state[j] = inCluster
			cluster = append(cluster, j)

			jNeighbors := regionQuery(points, j, eps)
			if len(jNeighbors) >= minPts {
				queue = append(queue, jNeighbors...)
			}
		}
		clusters = append(clusters, cluster)
	}

	for i, s := range state {
		if s == asNoise {
			noise = append(noise, i)
		}
	}
	return clusters, noise
}

// regionQuery returns all points within eps of idx, idx itself included, so
// the density count matches the textbook neighborhood definition.
func regionQuery(points [][]float64, idx int, eps float64) []int {
	var neighbors []int
	for j := range points {
		if euclidean(points[idx], points[j]) <= eps {
			neighbors = append(neighbors, j)
		}
	}
	return neighbors
}
