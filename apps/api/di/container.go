// Package di assembles the repositories & services shared by the API server and the admin commands.
package di

import (
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/academic"
	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/grading"
	"github.com/trezcool/shule/core/notification"
	"github.com/trezcool/shule/core/permission"
	"github.com/trezcool/shule/core/schedule"
	"github.com/trezcool/shule/core/staff"
	"github.com/trezcool/shule/core/student"
	"github.com/trezcool/shule/core/tenant"
	"github.com/trezcool/shule/core/user"
	inmemdb "github.com/trezcool/shule/storage/database/inmem"
	sqlxrepos "github.com/trezcool/shule/storage/database/sqlx"
)

type Repos struct {
	Users         user.Repository
	Tenants       tenant.Repository
	Academic      academic.Repository
	Schedule      schedule.Repository
	Students      student.Repository
	Staff         staff.Repository
	Attendance    attendance.Repository
	Grading       grading.Repository
	Permissions   permission.Repository
	Notifications notification.Repository
}

func MemoryRepos(db *inmemdb.DB) Repos {
	return Repos{
		Users:         inmemdb.NewUserRepository(db),
		Tenants:       inmemdb.NewTenantRepository(db),
		Academic:      inmemdb.NewAcademicRepository(db),
		Schedule:      inmemdb.NewScheduleRepository(db),
		Students:      inmemdb.NewStudentRepository(db),
		Staff:         inmemdb.NewStaffRepository(db),
		Attendance:    inmemdb.NewAttendanceRepository(db),
		Grading:       inmemdb.NewGradingRepository(db),
		Permissions:   inmemdb.NewPermissionRepository(db),
		Notifications: inmemdb.NewNotificationRepository(db),
	}
}

func SQLRepos(db *sqlx.DB) Repos {
	return Repos{
		Users:         sqlxrepos.NewUserRepository(db),
		Tenants:       sqlxrepos.NewTenantRepository(db),
		Academic:      sqlxrepos.NewAcademicRepository(db),
		Schedule:      sqlxrepos.NewScheduleRepository(db),
		Students:      sqlxrepos.NewStudentRepository(db),
		Staff:         sqlxrepos.NewStaffRepository(db),
		Attendance:    sqlxrepos.NewAttendanceRepository(db),
		Grading:       sqlxrepos.NewGradingRepository(db),
		Permissions:   sqlxrepos.NewPermissionRepository(db),
		Notifications: sqlxrepos.NewNotificationRepository(db),
	}
}

type Services struct {
	Users         *user.Service
	Tenants       *tenant.Service
	Academic      *academic.Service
	Schedule      *schedule.Service
	Students      *student.Service
	Staff         *staff.Service
	Attendance    *attendance.Service
	Grading       *grading.Service
	Permissions   *permission.Service
	Notifications *notification.Service
}

func NewServices(conf *core.Config, repos Repos, cache core.Cache, mailSvc core.EmailService, logger core.Logger) Services {
	var svcs Services
	svcs.Users = user.NewService(repos.Users, mailSvc, conf)
	svcs.Tenants = tenant.NewService(repos.Tenants)
	svcs.Academic = academic.NewService(repos.Academic)
	svcs.Schedule = schedule.NewService(repos.Schedule, svcs.Academic)
	svcs.Students = student.NewService(repos.Students, svcs.Users)
	svcs.Staff = staff.NewService(repos.Staff)
	svcs.Grading = grading.NewService(repos.Grading, svcs.Academic)
	svcs.Permissions = permission.NewService(repos.Permissions)
	svcs.Notifications = notification.NewService(repos.Notifications, svcs.Users, cache, mailSvc, logger)
	svcs.Attendance = attendance.NewService(repos.Attendance, svcs.Academic, svcs.Schedule, svcs.Students, svcs.Notifications, logger)
	return svcs
}
