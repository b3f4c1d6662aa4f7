package enrollment

import "time"

// Status of an enrollment document.
type Status string

const (
	Pending   Status = "pendiente"
	Confirmed Status = "confirmada"
	Paid      Status = "pagada"
)

// PaymentMethod is a label only. No payment provider is ever contacted.
type PaymentMethod string

const (
	Transfer PaymentMethod = "transferencia"
	Cash     PaymentMethod = "efectivo"
	Card     PaymentMethod = "tarjeta"
)

// Enrollment mirrors a document of the "inscripciones" collection, one per
// purchased course. Documents are immutable once written by the checkout.
type Enrollment struct {
	ID            string        `json:"id"`
	UserID        string        `json:"usuarioId"`
	UserEmail     string        `json:"usuarioEmail"`
	CourseID      string        `json:"cursoId"`
	CourseName    string        `json:"cursoNombre"`
	CoursePrice   int           `json:"cursoPrecio"`
	EnrolledAt    time.Time     `json:"fechaInscripcion"`
	Status        Status        `json:"estado"`
	PaymentMethod PaymentMethod `json:"metodoPago"`
	Total         int           `json:"total"`
}

// ValidMethod reports whether m is one of the accepted payment labels.
func ValidMethod(m PaymentMethod) bool {
	switch m {
	case Transfer, Cash, Card:
		return true
	}
	return false
}
