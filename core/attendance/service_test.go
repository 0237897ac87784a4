package attendance_test

import (
	"bytes"
	"context"
	"io"
	"log"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/shule/apps/api/di"
	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/academic"
	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/notification"
	"github.com/trezcool/shule/core/schedule"
	"github.com/trezcool/shule/core/student"
	"github.com/trezcool/shule/core/user"
	"github.com/trezcool/shule/services/email"
	"github.com/trezcool/shule/services/logger"
	"github.com/trezcool/shule/storage/cache"
	"github.com/trezcool/shule/storage/database/inmem"
	"github.com/trezcool/shule/tests"
)

func fieldErr(t *testing.T, err error) *core.ValidationError {
	verr, ok := errors.Cause(err).(*core.ValidationError)
	require.True(t, ok, "%v", err)
	return verr
}

func TestService_MarkClass(t *testing.T) {
	conf := core.NewTestConfig()
	repos := di.MemoryRepos(inmemdb.Open())
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	svcs := di.NewServices(conf, repos, cache.NewMemory(), mailSvc, logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf))
	svc := svcs.Attendance
	ctx := context.Background()

	attendance.NowFunc = func() core.Date { return core.NewDate(2025, 3, 31) }
	defer func() { attendance.NowFunc = core.Today }()

	tnt, branch := testutil.CreateTenant(t, svcs.Tenants, "Lycee Wima", "wima")
	scope := core.Scope{TenantID: tnt.ID, BranchID: branch.ID}
	teacher := testutil.CreateUser(t, repos.Users, scope, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	parent := testutil.CreateUser(t, repos.Users, core.Scope{TenantID: tnt.ID}, "Mama", "mama", "mama@test.cd", "", []string{user.RoleParent}, true)

	y, err := svcs.Academic.CreateYear(ctx, scope, academic.NewAcademicYear{
		Name: "2024-2025", StartDate: core.NewDate(2024, 9, 2), EndDate: core.NewDate(2025, 7, 4),
	})
	require.NoError(t, err)
	_, err = svcs.Schedule.CreateHoliday(ctx, scope, schedule.NewPublicHoliday{AcademicYearID: y.ID, Name: "Heroes", Date: core.NewDate(2025, 1, 17)})
	require.NoError(t, err)
	cs, err := svcs.Academic.CreateClassSection(ctx, scope, academic.NewClassSection{ClassName: "Grade 3", SectionName: "A"})
	require.NoError(t, err)
	other, err := svcs.Academic.CreateClassSection(ctx, scope, academic.NewClassSection{ClassName: "Grade 3", SectionName: "B"})
	require.NoError(t, err)

	newStudent := func(no, first, csID string) student.Student {
		s, err := svcs.Students.Create(ctx, scope, student.NewStudent{
			AdmissionNo: no, FirstName: first, LastName: "Kabila", Gender: student.GenderMale,
			DateOfBirth: core.NewDate(2015, 1, 1), ClassSectionID: csID, AdmittedOn: core.NewDate(2024, 9, 2),
		})
		require.NoError(t, err)
		return s
	}
	baraka := newStudent("A-002", "Baraka", cs.ID)
	amani := newStudent("A-001", "Amani", cs.ID)
	outsider := newStudent("B-001", "Neema", other.ID)
	_, err = svcs.Students.AddParent(ctx, scope, baraka.ID, student.NewParentAssociation{ParentUserID: parent.ID, Relation: student.RelationMother})
	require.NoError(t, err)

	monday := core.NewDate(2025, 3, 10)
	bulk := func(d core.Date, marks ...attendance.Mark) attendance.BulkMark {
		return attendance.BulkMark{ClassSectionID: cs.ID, Date: d, Marks: marks}
	}
	present := func(s student.Student) attendance.Mark {
		return attendance.Mark{StudentID: s.ID, Status: attendance.StatusPresent}
	}
	absent := func(s student.Student) attendance.Mark {
		return attendance.Mark{StudentID: s.ID, Status: attendance.StatusAbsent, Remarks: "sick"}
	}

	t.Run("rejected", func(t *testing.T) {
		_, err := svc.MarkClass(ctx, scope, teacher.ID, attendance.BulkMark{ClassSectionID: core.NewID(), Date: monday, Marks: []attendance.Mark{present(amani)}})
		assert.Equal(t, "class_section_id", fieldErr(t, err).Fields[0].Field)

		_, err = svc.MarkClass(ctx, scope, teacher.ID, bulk(core.NewDate(2025, 4, 1), present(amani)))
		assert.Equal(t, attendance.ErrFutureDate, fieldErr(t, err).Err)

		_, err = svc.MarkClass(ctx, scope, teacher.ID, bulk(core.NewDate(2024, 8, 30), present(amani)))
		assert.Equal(t, attendance.ErrNoYear, fieldErr(t, err).Err)

		_, err = svc.MarkClass(ctx, scope, teacher.ID, bulk(core.NewDate(2025, 1, 17), present(amani)))
		assert.Equal(t, attendance.ErrClosed, errors.Cause(fieldErr(t, err).Err))

		_, err = svc.MarkClass(ctx, scope, teacher.ID, bulk(monday, present(amani), present(outsider)))
		assert.Equal(t, attendance.ErrNotInClass, errors.Cause(fieldErr(t, err).Err))
	})

	t.Run("marked", func(t *testing.T) {
		mailSvc.Reset()
		records, err := svc.MarkClass(ctx, scope, teacher.ID, bulk(monday, present(amani), absent(baraka)))
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, teacher.ID, records[0].MarkedBy)
		assert.Equal(t, branch.ID, records[0].BranchID)

		ns, err := svcs.Notifications.List(ctx, parent.ID, notification.QueryFilter{}, core.Pagination{})
		require.NoError(t, err)
		require.Equal(t, 1, ns.Total)
		assert.Equal(t, "Baraka Kabila was absent", ns.Items[0].Title)
		assert.Len(t, mailSvc.SentMessages(), 1)
	})

	t.Run("remarking replaces the records", func(t *testing.T) {
		first, err := svc.Query(ctx, scope, attendance.QueryFilter{StudentID: baraka.ID})
		require.NoError(t, err)
		require.Len(t, first, 1)

		records, err := svc.MarkClass(ctx, scope, teacher.ID, bulk(monday, attendance.Mark{StudentID: amani.ID, Status: attendance.StatusLate}, absent(baraka)))
		require.NoError(t, err)
		assert.Equal(t, first[0].ID, records[1].ID)

		all, err := svc.Query(ctx, scope, attendance.QueryFilter{From: monday, To: monday})
		require.NoError(t, err)
		assert.Len(t, all, 2)
		summary := attendance.Summarize(all)
		assert.Equal(t, attendance.Summary{"present": 0, "absent": 1, "late": 1, "excused": 0}, summary)

		// still absent: parents were already told
		unread, err := svcs.Notifications.UnreadCount(ctx, parent.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, unread)
	})

	t.Run("absent again after present is not notified twice", func(t *testing.T) {
		late := attendance.Mark{StudentID: amani.ID, Status: attendance.StatusLate}
		records, err := svc.MarkClass(ctx, scope, teacher.ID, bulk(monday, late, present(baraka)))
		require.NoError(t, err)
		assert.NotNil(t, records[1].NotifiedAt)

		records, err = svc.MarkClass(ctx, scope, teacher.ID, bulk(monday, late, absent(baraka)))
		require.NoError(t, err)
		assert.NotNil(t, records[1].NotifiedAt)
		assert.Nil(t, records[0].NotifiedAt)

		unread, err := svcs.Notifications.UnreadCount(ctx, parent.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, unread)
		assert.Len(t, mailSvc.SentMessages(), 1)
	})

	t.Run("export", func(t *testing.T) {
		_, err := svc.MarkClass(ctx, scope, teacher.ID, bulk(monday.AddDays(1), present(baraka), present(amani)))
		require.NoError(t, err)

		var buf bytes.Buffer
		require.NoError(t, svc.Export(ctx, scope, attendance.QueryFilter{ClassSectionID: cs.ID}, &buf))

		f, err := excelize.OpenReader(&buf)
		require.NoError(t, err)
		defer f.Close()
		rows, err := f.GetRows("Attendance")
		require.NoError(t, err)
		require.True(t, len(rows) >= 9, "%v", rows)
		assert.Equal(t, []string{"Date", "Admission No", "Student", "Status", "Remarks"}, rows[0])
		assert.Equal(t, []string{"2025-03-10", "A-001", "Amani Kabila", "late"}, rows[1])
		assert.Equal(t, []string{"2025-03-10", "A-002", "Baraka Kabila", "absent", "sick"}, rows[2])
		assert.Equal(t, []string{"2025-03-11", "A-001", "Amani Kabila", "present"}, rows[3])
		assert.Equal(t, []string{"2025-03-11", "A-002", "Baraka Kabila", "present"}, rows[4])
		assert.Equal(t, []string{"present", "2"}, rows[6])
		assert.Equal(t, []string{"absent", "1"}, rows[7])
	})

	t.Run("locked year", func(t *testing.T) {
		_, err := svcs.Academic.LockYear(ctx, scope, y.ID)
		require.NoError(t, err)
		_, err = svc.MarkClass(ctx, scope, teacher.ID, bulk(monday, present(amani)))
		_, ok := errors.Cause(err).(*core.ConflictError)
		assert.True(t, ok, "%v", err)
	})
}
