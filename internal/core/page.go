package core

// Page is a 1-based page request.
type Page struct {
	Number int
	Size   int
}

func NewPage(number, size int) (Page, error) {
	p := Page{Number: number, Size: size}
	return p, p.Validate()
}

func (p Page) Validate() error {
	if p.Number < 1 {
		return Invalid("page", "must be at least 1")
	}
	if p.Size < 1 {
		return Invalid("page_size", "must be at least 1")
	}
	return nil
}

// Offset is the number of rows to skip before this page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// TotalPages is ceil(count/size) with a floor of 1, so an empty result is
// still "page 1 of 1".
func TotalPages(count, size int) int {
	if size < 1 || count <= 0 {
		return 1
	}
	return (count + size - 1) / size
}
