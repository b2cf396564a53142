package utils

// Generates a sequence constructed by applying a function to all elements of a given input sequence
func Map[T any, U any](input []T, mapFunction func(T) U) []U {
	output := make([]U, len(input))

	for i := range input {
		output[i] = mapFunction(input[i])
	}

	return output
}

// Returns the items of a sequence for which the predicate holds, preserving order
func Filter[T any](input []T, predicate func(T) bool) []T {
	output := make([]T, 0, len(input))

	for _, item := range input {
		if predicate(item) {
			output = append(output, item)
		}
	}

	return output
}
