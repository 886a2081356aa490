package utils

func IsStringInSlice(s string, slice []string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}

// Difference returns the items of a that are not in b, keeping a's order.
func Difference(a, b []string) []string {
	seen := make(map[string]struct{}, len(b))
	for _, v := range b {
		seen[v] = struct{}{}
	}
	var result []string
	for _, v := range a {
		if _, ok := seen[v]; !ok {
			result = append(result, v)
		}
	}
	return result
}
