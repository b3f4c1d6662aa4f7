package store

import (
	"github.com/avelazco/cursoteca/core/cart"
	"github.com/avelazco/cursoteca/core/course"
	"github.com/avelazco/cursoteca/core/enrollment"
)

// Getters are value-receiver methods on State: pure derivations over one
// snapshot, safe to call from any goroutine.

func (st State) IsAuthenticated() bool {
	return st.Session != nil
}

// UserEmail returns the signed-in user's email, or "" when signed out.
func (st State) UserEmail() string {
	if st.Session == nil {
		return ""
	}
	return st.Session.Email
}

func (st State) CourseByID(id string) (course.Course, bool) {
	for _, c := range st.Courses {
		if c.ID == id {
			return c, true
		}
	}
	return course.Course{}, false
}

func (st State) ActiveCourses() []course.Course {
	var out []course.Course
	for _, c := range st.Courses {
		if c.Active {
			out = append(out, c)
		}
	}
	return out
}

func (st State) CourseCount() int {
	return len(st.Courses)
}

func (st State) CartCount() int {
	return len(st.Cart)
}

// CartTotal sums the line-item prices captured at add-to-cart time.
func (st State) CartTotal() int {
	var total int
	for _, it := range st.Cart {
		total += it.CoursePrice
	}
	return total
}

func (st State) CartItemByCourse(courseID string) (cart.Item, bool) {
	for _, it := range st.Cart {
		if it.CourseID == courseID {
			return it, true
		}
	}
	return cart.Item{}, false
}

func (st State) EnrollmentsByCourse(courseID string) []enrollment.Enrollment {
	var out []enrollment.Enrollment
	for _, e := range st.Enrollments {
		if e.CourseID == courseID {
			out = append(out, e)
		}
	}
	return out
}
