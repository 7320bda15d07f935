package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"schoolprops/internal/common"
	"schoolprops/internal/models"

	"github.com/google/uuid"
	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

var requestColumnNames = []string{
	"id", "request_type", "requester_id", "requester_name", "location", "status", "priority", "admin_response", "created_at", "updated_at",
	"item_id", "item_name", "quantity_requested", "quantity_assigned", "reservation_id", "due_date", "assigned_at", "returned_at", "inspection_status", "notes",
	"description", "estimated_cost", "photo_ref", "related_request_id", "report_kind",
}

type RequestRepoTestSuite struct {
	suite.Suite
	mock    pgxmock.PgxPoolIface
	repo    RequestRepository
	teacher uuid.UUID
	now     time.Time
	context context.Context
}

func (suite *RequestRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	require.NoError(suite.T(), err)
	suite.mock = mock

	suite.repo = NewRequestRepo(mock)
	suite.teacher = uuid.New()
	suite.now = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	suite.context = context.Background()
}

func (suite *RequestRepoTestSuite) TearDownTest() {
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
	suite.mock.Close()
}

func TestRequestRepoTestSuite(t *testing.T) {
	suite.Run(t, new(RequestRepoTestSuite))
}

func (suite *RequestRepoTestSuite) assignedItemRequest() *models.Request {
	resID := uuid.New()
	due := suite.now.Add(72 * time.Hour)
	assignedAt := suite.now
	return &models.Request{
		ID:            uuid.New(),
		Type:          models.RequestTypeItem,
		RequesterID:   suite.teacher,
		RequesterName: "Ms. Rivera",
		Location:      "Room 12",
		Status:        models.StatusAssigned,
		Priority:      models.PriorityNormal,
		CreatedAt:     suite.now.Add(-time.Hour),
		UpdatedAt:     suite.now,
		Item: &models.ItemDetails{
			ItemID:            uuid.New(),
			ItemName:          "Projector",
			QuantityRequested: 3,
			QuantityAssigned:  2,
			ReservationID:     &resID,
			DueDate:           &due,
			AssignedAt:        &assignedAt,
			InspectionStatus:  models.InspectionNone,
		},
	}
}

func (suite *RequestRepoTestSuite) TestCreate_RejectsMismatchedPayload() {
	req := &models.Request{ID: uuid.New(), Type: models.RequestTypeCustom, Item: &models.ItemDetails{}}

	err := suite.repo.Create(suite.context, req)
	assert.Error(suite.T(), err)
}

func (suite *RequestRepoTestSuite) TestCreate_CustomRequest() {
	req := &models.Request{
		ID:            uuid.New(),
		Type:          models.RequestTypeCustom,
		RequesterID:   suite.teacher,
		RequesterName: "Ms. Rivera",
		Location:      "Lab 2",
		Status:        models.StatusPending,
		Priority:      models.PriorityUrgent,
		CreatedAt:     suite.now,
		UpdatedAt:     suite.now,
		Custom:        &models.CustomDetails{ItemName: "Microscope", EstimatedCost: 249.99, PhotoRef: "photos/a.jpg"},
	}

	suite.mock.ExpectExec(`INSERT INTO requests`).
		WithArgs(
			req.ID, "custom", suite.teacher, "Ms. Rivera", "Lab 2", "pending", "urgent", "", suite.now, suite.now,
			(*uuid.UUID)(nil), "Microscope", 0, 0, (*uuid.UUID)(nil), (*time.Time)(nil), (*time.Time)(nil), (*time.Time)(nil), "none", "",
			"", 249.99, "photos/a.jpg", (*uuid.UUID)(nil), "",
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := suite.repo.Create(suite.context, req)
	assert.NoError(suite.T(), err)
}

func (suite *RequestRepoTestSuite) TestGetByIDForUpdate_ItemRequest() {
	want := suite.assignedItemRequest()
	rows := pgxmock.NewRows(requestColumnNames).AddRow(requestRowFrom(want).values()...)

	suite.mock.ExpectQuery(`SELECT .+ FROM requests WHERE id = \$1 FOR UPDATE`).
		WithArgs(want.ID).
		WillReturnRows(rows)

	got, err := suite.repo.GetByIDForUpdate(suite.context, want.ID)
	require.NoError(suite.T(), err)
	assert.NoError(suite.T(), got.CheckShape())
	assert.Equal(suite.T(), models.StatusAssigned, got.Status)
	assert.Equal(suite.T(), want.Item.ItemID, got.Item.ItemID)
	assert.Equal(suite.T(), 2, got.Item.QuantityAssigned)
	assert.Equal(suite.T(), *want.Item.ReservationID, *got.Item.ReservationID)
	assert.Nil(suite.T(), got.Custom)
	assert.Nil(suite.T(), got.Report)
}

func (suite *RequestRepoTestSuite) TestGetByID_NotFound() {
	id := uuid.New()
	suite.mock.ExpectQuery(`SELECT .+ FROM requests WHERE id = \$1`).
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	_, err := suite.repo.GetByID(suite.context, id)
	assert.True(suite.T(), errors.Is(err, common.ErrNotFound))
}

func (suite *RequestRepoTestSuite) TestUpdate_Missing() {
	req := suite.assignedItemRequest()
	suite.mock.ExpectExec(`UPDATE requests`).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := suite.repo.Update(suite.context, req)
	assert.True(suite.T(), errors.Is(err, common.ErrNotFound))
}

func (suite *RequestRepoTestSuite) TestList_TeacherOpenRequests() {
	filter := &models.RequestFilter{
		Statuses:    []models.RequestStatus{models.StatusPending, models.StatusAssigned},
		RequesterID: &suite.teacher,
		Limit:       25,
	}
	want := suite.assignedItemRequest()
	rows := pgxmock.NewRows(requestColumnNames).AddRow(requestRowFrom(want).values()...)

	suite.mock.ExpectQuery(`status = ANY\(\$1\) AND requester_id = \$2 ORDER BY created_at DESC, id ASC LIMIT \$3`).
		WithArgs([]string{"pending", "assigned"}, suite.teacher, 25).
		WillReturnRows(rows)

	got, err := suite.repo.List(suite.context, filter)
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), got, 1)
	assert.Equal(suite.T(), want.ID, got[0].ID)
}

func (suite *RequestRepoTestSuite) TestAppendEvent() {
	event := &models.RequestEvent{
		ID:         uuid.New(),
		RequestID:  uuid.New(),
		FromStatus: models.StatusPending,
		ToStatus:   models.StatusAssigned,
		ActorID:    uuid.New(),
		At:         suite.now,
	}
	suite.mock.ExpectExec(`INSERT INTO request_events`).
		WithArgs(event.ID, event.RequestID, "pending", "assigned", event.ActorID, "", suite.now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	assert.NoError(suite.T(), suite.repo.AppendEvent(suite.context, event))
}

func (suite *RequestRepoTestSuite) TestSumCommittedCustomCost_SinceReset() {
	resetAt := suite.now
	suite.mock.ExpectQuery(`status IN \('purchasing', 'approved'\)`).
		WithArgs(&resetAt).
		WillReturnRows(pgxmock.NewRows([]string{"sum"}).AddRow(100.0))

	total, err := suite.repo.SumCommittedCustomCost(suite.context, &resetAt)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 100.0, total)
}

func (suite *RequestRepoTestSuite) TestEscalatePending() {
	cutoff := suite.now.Add(-48 * time.Hour)
	id := uuid.New()
	suite.mock.ExpectQuery(`UPDATE requests\s+SET priority = 'urgent'.+RETURNING id`).
		WithArgs(suite.now, cutoff).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(id))

	ids, err := suite.repo.EscalatePending(suite.context, cutoff, suite.now)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), []uuid.UUID{id}, ids)
}
