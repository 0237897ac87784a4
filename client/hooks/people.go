package hooks

import (
	"context"
	"fmt"
	"net/http"

	"github.com/trezcool/shule/client/query"
	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/staff"
	"github.com/trezcool/shule/core/student"
	"github.com/trezcool/shule/core/user"
)

// Students

func (h *Hooks) Students(ctx context.Context, filter student.QueryFilter, ordering []core.DBOrdering, page core.Pagination) query.State[Page[student.Student]] {
	return getPage[student.Student](ctx, h, ResStudents, pageParams(filter, ordering, page))
}

func (h *Hooks) Student(ctx context.Context, id string) query.State[student.Student] {
	return get[student.Student](ctx, h, ResStudents+"/"+id, nil)
}

func (h *Hooks) CreateStudent(ctx context.Context, form student.NewStudent) (student.Student, error) {
	return mutate[student.Student](ctx, h, http.MethodPost, ResStudents, &form, ResStudents)
}

func (h *Hooks) UpdateStudent(ctx context.Context, id string, form student.UpdateStudent) (student.Student, error) {
	return mutate[student.Student](ctx, h, http.MethodPut, ResStudents+"/"+id, &form, ResStudents)
}

func (h *Hooks) DeleteStudent(ctx context.Context, id string) error {
	return remove(ctx, h, ResStudents+"/"+id, ResStudents, ResAttendance)
}

func parentsResource(studentID string) string {
	return fmt.Sprintf("%s/%s/parents", ResStudents, studentID)
}

func (h *Hooks) StudentParents(ctx context.Context, studentID string) query.State[[]student.ParentAssociation] {
	return get[[]student.ParentAssociation](ctx, h, parentsResource(studentID), nil)
}

func (h *Hooks) AddStudentParent(ctx context.Context, studentID string, form student.NewParentAssociation) (student.ParentAssociation, error) {
	return mutate[student.ParentAssociation](ctx, h, http.MethodPost, parentsResource(studentID), &form, parentsResource(studentID))
}

// ImportStudents uploads an xlsx sheet; rows are imported best-effort and reported.
func (h *Hooks) ImportStudents(ctx context.Context, filename string, data []byte) (student.ImportReport, error) {
	return query.Mutate(ctx, h.cache, func(ctx context.Context) (student.ImportReport, error) {
		return uploadFile[student.ImportReport](ctx, h.api, apiPrefix+ResStudents+"/import", "file", filename, data)
	}, ResStudents)
}

// Staff

func (h *Hooks) StaffList(ctx context.Context, filter staff.QueryFilter, ordering []core.DBOrdering, page core.Pagination) query.State[Page[staff.Staff]] {
	return getPage[staff.Staff](ctx, h, ResStaff, pageParams(filter, ordering, page))
}

func (h *Hooks) StaffMember(ctx context.Context, id string) query.State[staff.Staff] {
	return get[staff.Staff](ctx, h, ResStaff+"/"+id, nil)
}

func (h *Hooks) CreateStaff(ctx context.Context, form staff.NewStaff) (staff.Staff, error) {
	return mutate[staff.Staff](ctx, h, http.MethodPost, ResStaff, &form, ResStaff)
}

func (h *Hooks) UpdateStaff(ctx context.Context, id string, form staff.UpdateStaff) (staff.Staff, error) {
	return mutate[staff.Staff](ctx, h, http.MethodPut, ResStaff+"/"+id, &form, ResStaff)
}

func (h *Hooks) DeleteStaff(ctx context.Context, id string) error {
	return remove(ctx, h, ResStaff+"/"+id, ResStaff)
}

// Users

func (h *Hooks) Users(ctx context.Context, filter user.QueryFilter, ordering []core.DBOrdering, page core.Pagination) query.State[Page[user.User]] {
	return getPage[user.User](ctx, h, ResUsers, pageParams(filter, ordering, page))
}

func (h *Hooks) User(ctx context.Context, id string) query.State[user.User] {
	return get[user.User](ctx, h, ResUsers+"/"+id, nil)
}

func (h *Hooks) UserRoles(ctx context.Context) query.State[[]user.Role] {
	return get[[]user.Role](ctx, h, ResUsers+"/roles", nil)
}

func (h *Hooks) CreateUser(ctx context.Context, form user.NewUser) (user.User, error) {
	return mutate[user.User](ctx, h, http.MethodPost, ResUsers, &form, ResUsers)
}

func (h *Hooks) UpdateUser(ctx context.Context, id string, form user.UpdateUser) (user.User, error) {
	return mutate[user.User](ctx, h, http.MethodPut, ResUsers+"/"+id, &form, ResUsers)
}

func (h *Hooks) DeleteUser(ctx context.Context, id string) error {
	return remove(ctx, h, ResUsers+"/"+id, ResUsers)
}
