package utils

// Chunk splits a slice into consecutive chunks of at most size elements.
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		return [][]T{items}
	}
	var chunks [][]T
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[i:end])
	}
	return chunks
}
