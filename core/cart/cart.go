package cart

import "github.com/avelazco/cursoteca/core/course"

// Item is a cart line, projected from a course at the moment it is added.
// The cart is never persisted: it lives in the store for the duration of a
// session and is lost on restart.
type Item struct {
	CourseID    string `json:"cursoId"`
	CourseName  string `json:"cursoNombre"`
	CoursePrice int    `json:"cursoPrecio"`
	CourseImage string `json:"cursoImagen"`
	CourseCode  string `json:"cursoCodigo"`
}

// Project builds the line item for a course. Only the fields the checkout
// needs are copied; later edits to the course do not flow into the cart.
func Project(c course.Course) Item {
	return Item{
		CourseID:    c.ID,
		CourseName:  c.Name,
		CoursePrice: c.Price,
		CourseImage: c.ImageURL,
		CourseCode:  c.Code,
	}
}
