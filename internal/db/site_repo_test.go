package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"bloomwatch/internal/types"
)

// --- Mock DBTX ---

type mockDBTX struct {
	mock.Mock
}

func (m *mockDBTX) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgconn.CommandTag), args.Error(1)
}

func (m *mockDBTX) Query(ctx context.Context, sql string, arguments ...any) (pgx.Rows, error) {
	args := m.Called(ctx, sql, arguments)
	if r := args.Get(0); r != nil {
		return r.(pgx.Rows), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDBTX) QueryRow(ctx context.Context, sql string, arguments ...any) pgx.Row {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgx.Row)
}

// --- Mock Row ---

type mockRow struct {
	scanErr error
	scanFn  func(dest ...any) error
}

func (r *mockRow) Scan(dest ...any) error {
	if r.scanFn != nil {
		return r.scanFn(dest...)
	}
	return r.scanErr
}

// --- Mock Rows ---

type mockRows struct {
	scanFns []func(dest ...any) error
	idx     int
	closed  bool
	errVal  error
}

func newMockRows(scanFns ...func(dest ...any) error) *mockRows {
	return &mockRows{scanFns: scanFns, idx: -1}
}

func (r *mockRows) Next() bool {
	if r.closed {
		return false
	}
	r.idx++
	return r.idx < len(r.scanFns)
}

func (r *mockRows) Scan(dest ...any) error { return r.scanFns[r.idx](dest...) }

func (r *mockRows) Close()                                       { r.closed = true }
func (r *mockRows) Err() error                                   { return r.errVal }
func (r *mockRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *mockRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *mockRows) RawValues() [][]byte                          { return nil }
func (r *mockRows) Values() ([]any, error)                       { return nil, nil }
func (r *mockRows) Conn() *pgx.Conn                              { return nil }

// execTag builds a CommandTag reporting n affected rows.
func execTag(verb string, n int) pgconn.CommandTag {
	if n == 1 {
		return pgconn.NewCommandTag(verb + " 1")
	}
	return pgconn.NewCommandTag(verb + " 0")
}

// --- Site fixtures ---

func newTestSite() *types.Site {
	now := time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC)
	return &types.Site{
		ID:   "site_abc123",
		Name: "Lake Scugog",
		Location: types.Location{
			Lat:         44.17,
			Lon:         -78.93,
			DisplayName: "Lake Scugog, ON",
		},
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// makeScanFnForSite populates scan destinations in siteColumns order.
func makeScanFnForSite(site *types.Site) func(dest ...any) error {
	return func(dest ...any) error {
		*dest[0].(*string) = site.ID
		*dest[1].(*string) = site.Name
		*dest[2].(*float64) = site.Location.Lat
		*dest[3].(*float64) = site.Location.Lon

		if site.Location.DisplayName != "" {
			name := site.Location.DisplayName
			*dest[4].(**string) = &name
		} else {
			*dest[4].(**string) = nil
		}

		*dest[5].(*bool) = site.Active
		*dest[6].(*time.Time) = site.CreatedAt
		*dest[7].(*time.Time) = site.UpdatedAt
		return nil
	}
}

// --- Tests ---

func TestSiteRepository_Create(t *testing.T) {
	dbMock := new(mockDBTX)
	repo := NewSiteRepository(dbMock)
	site := newTestSite()

	dbMock.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(execTag("INSERT", 1), nil).
		Run(func(args mock.Arguments) {
			sqlArgs := args.Get(2).([]any)
			assert.Equal(t, site.ID, sqlArgs[0])
			assert.Equal(t, site.Name, sqlArgs[1])
			assert.Equal(t, site.Location.Lat, sqlArgs[2])
			require.NotNil(t, sqlArgs[4])
			assert.Equal(t, "Lake Scugog, ON", *sqlArgs[4].(*string))
		})

	err := repo.Create(context.Background(), site)
	require.NoError(t, err)
	dbMock.AssertExpectations(t)
}

func TestSiteRepository_Create_DBError(t *testing.T) {
	dbMock := new(mockDBTX)
	repo := NewSiteRepository(dbMock)

	dbMock.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.CommandTag{}, errors.New("connection refused"))

	err := repo.Create(context.Background(), newTestSite())
	require.Error(t, err)

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeInternalDB, appErr.Code)
}

func TestSiteRepository_GetByID(t *testing.T) {
	dbMock := new(mockDBTX)
	repo := NewSiteRepository(dbMock)
	want := newTestSite()

	dbMock.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), []any{"site_abc123"}).
		Return(&mockRow{scanFn: makeScanFnForSite(want)})

	got, err := repo.GetByID(context.Background(), "site_abc123")
	require.NoError(t, err)

	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Name, got.Name)
	assert.Equal(t, want.Location, got.Location)
	assert.True(t, got.Active)
	dbMock.AssertExpectations(t)
}

func TestSiteRepository_GetByID_NotFound(t *testing.T) {
	dbMock := new(mockDBTX)
	repo := NewSiteRepository(dbMock)

	dbMock.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&mockRow{scanErr: pgx.ErrNoRows})

	_, err := repo.GetByID(context.Background(), "site_missing")
	require.Error(t, err)

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeNotFoundSite, appErr.Code)
}

func TestSiteRepository_ListActive(t *testing.T) {
	dbMock := new(mockDBTX)
	repo := NewSiteRepository(dbMock)

	first := newTestSite()
	second := newTestSite()
	second.ID = "site_def456"
	second.Name = "Pigeon Lake"
	second.Location.DisplayName = ""

	dbMock.On("Query", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(newMockRows(makeScanFnForSite(first), makeScanFnForSite(second)), nil)

	sites, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, sites, 2)

	assert.Equal(t, "site_abc123", sites[0].ID)
	assert.Equal(t, "Pigeon Lake", sites[1].Name)
	assert.Empty(t, sites[1].Location.DisplayName)
	dbMock.AssertExpectations(t)
}

func TestSiteRepository_SetActive_NotFound(t *testing.T) {
	dbMock := new(mockDBTX)
	repo := NewSiteRepository(dbMock)

	dbMock.On("Exec", mock.Anything, mock.AnythingOfType("string"), []any{false, "site_missing"}).
		Return(execTag("UPDATE", 0), nil)

	err := repo.SetActive(context.Background(), "site_missing", false)
	require.Error(t, err)

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeNotFoundSite, appErr.Code)
}
