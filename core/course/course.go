package course

import "time"

// Course mirrors a document of the "cursos" collection. The json tags are the
// document field names and must not change: they are the contract shared with
// every other client of the backend.
type Course struct {
	ID          string    `json:"id"`
	Name        string    `json:"nombre"`
	Description string    `json:"descripcion"`
	ImageURL    string    `json:"img"`
	Code        string    `json:"codigo"`
	Price       int       `json:"precio"`
	Active      bool      `json:"estado"`
	Enrolled    int       `json:"inscritos"`
	Duration    string    `json:"duracion"`
	CreatedAt   time.Time `json:"fechaCreacion"`
}

type CourseNew struct {
	Name        string `json:"nombre" validate:"required"`
	Description string `json:"descripcion"`
	ImageURL    string `json:"img" validate:"required,url"`
	Code        string `json:"codigo" validate:"required"`
	Price       int    `json:"precio" validate:"gte=0"`
	Active      bool   `json:"estado"`
	Duration    string `json:"duracion"`
}

type CourseUp struct {
	Name        *string `json:"nombre"`
	Description *string `json:"descripcion"`
	ImageURL    *string `json:"img" validate:"omitempty,url"`
	Code        *string `json:"codigo"`
	Price       *int    `json:"precio" validate:"omitempty,gte=0"`
	Active      *bool   `json:"estado"`
	Duration    *string `json:"duracion"`
}
