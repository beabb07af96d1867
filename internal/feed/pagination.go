package feed

// Paginate converts a 1-based page number and a page size into limit/offset.
// ok is false unless both are positive, in which case no pagination
// parameters should be sent.
func Paginate(pageNumber, pageSize int) (limit, offset int, ok bool) {
	if pageNumber <= 0 || pageSize <= 0 {
		return 0, 0, false
	}
	return pageSize, (pageNumber - 1) * pageSize, true
}
