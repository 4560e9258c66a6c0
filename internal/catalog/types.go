package catalog

// Product mirrors one entry of the /products collection.
type Product struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Price int    `json:"price"`
}

// Draft is the payload for a product the server has not assigned an id to yet.
type Draft struct {
	Name  string `json:"name" validate:"required,max=100"`
	Price int    `json:"price" validate:"min=0"`
}

// updateRequest is the PUT body. The backend expects the id under "id" here,
// not "_id" as in list responses.
type updateRequest struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price int    `json:"price"`
}

// WithDraft returns a copy of p carrying the draft's name and price.
func (p Product) WithDraft(d Draft) Product {
	p.Name = d.Name
	p.Price = d.Price
	return p
}

// Draft returns the mutable fields of p.
func (p Product) Draft() Draft {
	return Draft{Name: p.Name, Price: p.Price}
}

// IndexOf returns the position of the product with the given id, or -1.
func IndexOf(products []Product, id string) int {
	for i, p := range products {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// Clone returns an independent copy of products. A nil or empty input yields nil.
func Clone(products []Product) []Product {
	if len(products) == 0 {
		return nil
	}
	dup := make([]Product, len(products))
	copy(dup, products)
	return dup
}
