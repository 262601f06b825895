package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusgrid/timetable-api/internal/dto"
	"github.com/campusgrid/timetable-api/internal/models"
	appErrors "github.com/campusgrid/timetable-api/pkg/errors"
)

type stubSnapshots struct{ snap *Snapshot }

func (s stubSnapshots) Latest() (*Snapshot, bool) {
	if s.snap == nil {
		return nil, false
	}
	return s.snap, true
}

type stubStudentFinder struct{ students map[string]models.Student }

func (s stubStudentFinder) FindByID(_ context.Context, id string) (*models.Student, error) {
	student, ok := s.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &student, nil
}

type stubProgressHistory struct{ rows []models.StudentProgressRow }

func (s stubProgressHistory) ListByStudent(context.Context, string) ([]models.StudentProgressRow, error) {
	return s.rows, nil
}

type memoryCache struct {
	entries map[string]interface{}
	gets    int
	hits    int
}

func newMemoryCache() *memoryCache { return &memoryCache{entries: make(map[string]interface{})} }

func (c *memoryCache) Get(_ context.Context, key string, dest interface{}) error {
	c.gets++
	value, ok := c.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	c.hits++
	switch d := dest.(type) {
	case *dto.ClassTimetableResponse:
		*d = *value.(*dto.ClassTimetableResponse)
	case *dto.TeacherTimetableResponse:
		*d = *value.(*dto.TeacherTimetableResponse)
	}
	return nil
}

func (c *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	c.entries[key] = value
	return nil
}

func viewServiceFixture(t *testing.T) (*ViewService, *memoryCache) {
	t.Helper()
	entities := feasibleEntities()
	svc := newServiceFixture(entities, newStubRunStore())
	_, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{})
	require.NoError(t, err)
	snap, ok := svc.Latest()
	require.True(t, ok)

	cache := newMemoryCache()
	views := NewViewService(
		stubSnapshots{snap},
		stubStudentFinder{students: map[string]models.Student{"s1": entities.students[0]}},
		stubProgressHistory{},
		cache,
		nil,
		time.Minute,
		nil,
	)
	return views, cache
}

func TestViewServiceClassTimetableCaches(t *testing.T) {
	views, cache := viewServiceFixture(t)

	first, err := views.ClassTimetable(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "Grade 10A", first.ClassName)
	assert.Len(t, first.Rows, 4)

	second, err := views.ClassTimetable(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 2, cache.gets)
	assert.Equal(t, 1, cache.hits)
}

func TestViewServiceClassTimetableUnknownClass(t *testing.T) {
	views, _ := viewServiceFixture(t)

	_, err := views.ClassTimetable(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestViewServiceTeacherTimetable(t *testing.T) {
	views, _ := viewServiceFixture(t)

	resp, err := views.TeacherTimetable(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, "Ardelia Sunna", resp.TeacherName)
	assert.Len(t, resp.Rows, 4)

	teaching := 0
	for _, row := range resp.Rows {
		if row.Teaching {
			teaching++
		}
	}
	assert.Greater(t, teaching, 0)
}

func TestViewServiceStudentTimetableMergesPlan(t *testing.T) {
	views, _ := viewServiceFixture(t)

	resp, err := views.StudentTimetable(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "c1", resp.ClassID)
	require.Len(t, resp.Rows, 4)

	activities := 0
	for _, row := range resp.Rows {
		if row.Type == "activity" {
			activities++
			assert.NotEmpty(t, row.IndividualActivity)
			assert.Equal(t, "pending", row.ProgressStatus)
		}
	}
	assert.Equal(t, 2, activities)
}

func TestViewServiceNoTimetableYet(t *testing.T) {
	views := NewViewService(stubSnapshots{}, stubStudentFinder{}, stubProgressHistory{}, nil, nil, time.Minute, nil)

	_, err := views.ClassTimetable(context.Background(), "c1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNoTimetable.Code, appErrors.FromError(err).Code)
}

func TestViewServiceExportClassTimetableCSV(t *testing.T) {
	views, _ := viewServiceFixture(t)

	payload, contentType, filename, err := views.ExportClassTimetable(context.Background(), "c1", "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)
	assert.Equal(t, "timetable-c1.csv", filename)

	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "Day,Time,Subject,Teacher,Room,Type", lines[0])
}

func TestViewServiceExportRejectsUnknownFormat(t *testing.T) {
	views, _ := viewServiceFixture(t)

	_, _, _, err := views.ExportClassTimetable(context.Background(), "c1", "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnsupportedFormat.Code, appErrors.FromError(err).Code)
}
