package pagination

const (
	DefaultSize = 20
	MaxSize     = 100
)

// Normalize clamps a 1-based page and a page size to sane bounds.
func Normalize(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = DefaultSize
	}
	if size > MaxSize {
		size = MaxSize
	}
	return page, size
}

// Offset returns the row offset for a normalized page.
func Offset(page, size int) int {
	return (page - 1) * size
}

// LastPage is ceil(total/size); zero rows gives zero pages.
func LastPage(total int64, size int) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}
