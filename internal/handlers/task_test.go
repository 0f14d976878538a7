package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"github.com/ymatsuda/taskboard/internal/auth"
	"github.com/ymatsuda/taskboard/internal/constants"
	"github.com/ymatsuda/taskboard/internal/dto"
	"github.com/ymatsuda/taskboard/internal/events"
	"github.com/ymatsuda/taskboard/internal/middleware"
	"github.com/ymatsuda/taskboard/internal/models"
	"github.com/ymatsuda/taskboard/internal/repository"
	"github.com/ymatsuda/taskboard/internal/services"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// recordedEvent is one broadcast captured during a test.
type recordedEvent struct {
	name    string
	payload events.TaskEventPayload
}

// recordingPublisher stands in for the hub and records broadcast order.
type recordingPublisher struct {
	events []recordedEvent
}

func (p *recordingPublisher) Publish(event string, payload any) {
	p.events = append(p.events, recordedEvent{
		name:    event,
		payload: payload.(events.TaskEventPayload),
	})
}

// TaskHandlerTestSuite defines the test suite for TaskHandler
type TaskHandlerTestSuite struct {
	suite.Suite
	db        *gorm.DB
	router    *gin.Engine
	tokens    *auth.TokenManager
	publisher *recordingPublisher
}

// SetupTest runs before each test
func (suite *TaskHandlerTestSuite) SetupTest() {
	var err error

	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)

	err = suite.db.AutoMigrate(&models.User{}, &models.Task{})
	suite.Require().NoError(err)

	userRepo := repository.NewUserRepository(suite.db)
	taskRepo := repository.NewTaskRepository(suite.db)
	taskService := services.NewTaskService(taskRepo, userRepo)

	suite.tokens = auth.NewTokenManager("test-secret")
	suite.publisher = &recordingPublisher{}
	handler := NewTaskHandler(taskService, suite.publisher)

	gin.SetMode(gin.TestMode)
	suite.router = gin.New()
	tasks := suite.router.Group("/api/tasks")
	tasks.Use(middleware.RequireAuth(suite.tokens))
	{
		tasks.GET("", handler.ListTasks)
		tasks.POST("", handler.CreateTask)
		tasks.GET("/:id", middleware.RequireTask(taskService), handler.GetTask)
		tasks.PATCH("/:id", middleware.RequireTask(taskService), handler.UpdateTask)
		tasks.DELETE("/:id", middleware.RequireTask(taskService), handler.DeleteTask)
	}
}

// TearDownTest runs after each test
func (suite *TaskHandlerTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *TaskHandlerTestSuite) createTestUser(username string) *models.User {
	user := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hashedpassword",
	}
	suite.Require().NoError(suite.db.Create(user).Error)
	return user
}

func (suite *TaskHandlerTestSuite) createTestTask(title, creatorID string) *models.Task {
	task := &models.Task{
		Title:     title,
		Priority:  models.TaskPriorityMedium,
		Status:    models.TaskStatusTodo,
		CreatorID: creatorID,
	}
	suite.Require().NoError(suite.db.Create(task).Error)
	return task
}

// request performs an authenticated request as the given user.
func (suite *TaskHandlerTestSuite) request(method, url string, body any, user *models.User) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		suite.Require().NoError(err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, url, reader)
	req.Header.Set("Content-Type", "application/json")

	token, err := suite.tokens.Issue(user.ID, user.Email)
	suite.Require().NoError(err)
	req.AddCookie(&http.Cookie{Name: constants.SessionCookieName, Value: token})

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *TaskHandlerTestSuite) decodeTask(w *httptest.ResponseRecorder) dto.TaskWithRelations {
	var task dto.TaskWithRelations
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &task))
	return task
}

func (suite *TaskHandlerTestSuite) TestCreateTask() {
	creator := suite.createTestUser("alice")

	w := suite.request(http.MethodPost, "/api/tasks", map[string]any{
		"title":       "Ship the release",
		"description": "cut and tag",
	}, creator)

	suite.Equal(http.StatusCreated, w.Code)

	task := suite.decodeTask(w)
	suite.Equal("Ship the release", task.Title)
	suite.Equal(models.TaskPriorityMedium, task.Priority)
	suite.Equal(models.TaskStatusTodo, task.Status)
	suite.Equal(creator.ID, task.CreatorID)
	suite.Equal("alice", task.Creator.Username)
	suite.Nil(task.AssignedTo)
	suite.WithinDuration(task.CreatedAt, task.UpdatedAt, time.Second)

	suite.Require().Len(suite.publisher.events, 1)
	suite.Equal(events.TaskCreated, suite.publisher.events[0].name)
	suite.Equal(task.ID, suite.publisher.events[0].payload.TaskID)
}

func (suite *TaskHandlerTestSuite) TestCreateTaskRequiresAuth() {
	req := httptest.NewRequest(http.MethodPost, "/api/tasks", bytes.NewReader([]byte(`{"title":"x"}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.Empty(suite.publisher.events)
}

func (suite *TaskHandlerTestSuite) TestDueDateRoundTrip() {
	creator := suite.createTestUser("alice")

	w := suite.request(http.MethodPost, "/api/tasks", map[string]any{
		"title":   "Quarterly report",
		"dueDate": "2025-03-01",
	}, creator)
	suite.Equal(http.StatusCreated, w.Code)
	created := suite.decodeTask(w)

	w = suite.request(http.MethodGet, "/api/tasks/"+created.ID, nil, creator)
	suite.Equal(http.StatusOK, w.Code)

	fetched := suite.decodeTask(w)
	suite.Require().NotNil(fetched.DueDate)
	suite.Equal("2025-03-01", fetched.DueDate.UTC().Format("2006-01-02"))
}

func (suite *TaskHandlerTestSuite) TestAssignmentEmitsUpdatedThenAssigned() {
	creator := suite.createTestUser("alice")
	assignee := suite.createTestUser("bob")
	task := suite.createTestTask("Fix the build", creator.ID)

	w := suite.request(http.MethodPatch, "/api/tasks/"+task.ID, map[string]any{
		"assignedToId": assignee.ID,
	}, creator)
	suite.Equal(http.StatusOK, w.Code)

	suite.Require().Len(suite.publisher.events, 2)
	suite.Equal(events.TaskUpdated, suite.publisher.events[0].name)
	suite.Equal(events.TaskAssigned, suite.publisher.events[1].name)
	suite.Equal(suite.publisher.events[0].payload.TaskID, suite.publisher.events[1].payload.TaskID)
	suite.Equal(assignee.ID, suite.publisher.events[1].payload.UserID)

	// Both payloads carry the same enriched record.
	suite.Require().NotNil(suite.publisher.events[1].payload.Data)
	suite.Equal("bob", suite.publisher.events[1].payload.Data.AssignedTo.Username)
}

func (suite *TaskHandlerTestSuite) TestSameAssigneeEmitsOnlyUpdated() {
	creator := suite.createTestUser("alice")
	assignee := suite.createTestUser("bob")
	task := suite.createTestTask("Fix the build", creator.ID)
	suite.Require().NoError(suite.db.Model(task).Update("assigned_to_id", assignee.ID).Error)

	w := suite.request(http.MethodPatch, "/api/tasks/"+task.ID, map[string]any{
		"assignedToId": assignee.ID,
	}, creator)
	suite.Equal(http.StatusOK, w.Code)

	suite.Require().Len(suite.publisher.events, 1)
	suite.Equal(events.TaskUpdated, suite.publisher.events[0].name)
}

func (suite *TaskHandlerTestSuite) TestClearAssigneeEmitsOnlyUpdated() {
	creator := suite.createTestUser("alice")
	assignee := suite.createTestUser("bob")
	task := suite.createTestTask("Fix the build", creator.ID)
	suite.Require().NoError(suite.db.Model(task).Update("assigned_to_id", assignee.ID).Error)

	w := suite.request(http.MethodPatch, "/api/tasks/"+task.ID, map[string]any{
		"assignedToId": nil,
	}, creator)
	suite.Equal(http.StatusOK, w.Code)

	updated := suite.decodeTask(w)
	suite.Nil(updated.AssignedToID)

	suite.Require().Len(suite.publisher.events, 1)
	suite.Equal(events.TaskUpdated, suite.publisher.events[0].name)
}

func (suite *TaskHandlerTestSuite) TestPartialUpdateLeavesOtherFields() {
	creator := suite.createTestUser("alice")
	assignee := suite.createTestUser("bob")
	task := suite.createTestTask("Fix the build", creator.ID)
	suite.Require().NoError(suite.db.Model(task).Updates(map[string]any{
		"assigned_to_id": assignee.ID,
		"priority":       models.TaskPriorityHigh,
	}).Error)

	w := suite.request(http.MethodPatch, "/api/tasks/"+task.ID, map[string]any{
		"status": "review",
	}, creator)
	suite.Equal(http.StatusOK, w.Code)

	updated := suite.decodeTask(w)
	suite.Equal(models.TaskStatusReview, updated.Status)
	suite.Equal("Fix the build", updated.Title)
	suite.Equal(models.TaskPriorityHigh, updated.Priority)
	suite.Require().NotNil(updated.AssignedToID)
	suite.Equal(assignee.ID, *updated.AssignedToID)
}

func (suite *TaskHandlerTestSuite) TestEnrichmentScenario() {
	// u1 creates task T with no assignee; u2 is later assigned.
	u1 := suite.createTestUser("alice")
	u2 := suite.createTestUser("bob")

	w := suite.request(http.MethodPost, "/api/tasks", map[string]any{
		"title": "T",
	}, u1)
	suite.Equal(http.StatusCreated, w.Code)
	created := suite.decodeTask(w)

	w = suite.request(http.MethodGet, "/api/tasks/"+created.ID, nil, u2)
	suite.Equal(http.StatusOK, w.Code)
	fetched := suite.decodeTask(w)
	suite.Equal("alice", fetched.Creator.Username)
	suite.Nil(fetched.AssignedTo)

	suite.publisher.events = nil
	w = suite.request(http.MethodPatch, "/api/tasks/"+created.ID, map[string]any{
		"assignedToId": u2.ID,
	}, u2)
	suite.Equal(http.StatusOK, w.Code)

	suite.Require().Len(suite.publisher.events, 2)
	assigned := suite.publisher.events[1]
	suite.Equal(events.TaskAssigned, assigned.name)
	suite.Equal(u2.ID, assigned.payload.UserID, "assigned event addresses u2, not u1")
}

func (suite *TaskHandlerTestSuite) TestUpdateValidation() {
	creator := suite.createTestUser("alice")
	task := suite.createTestTask("ok", creator.ID)

	for _, body := range []map[string]any{
		{"title": ""},
		{"priority": "critical"},
		{"status": "done"},
		{"dueDate": "soon"},
		{"assignedToId": "no-such-user"},
	} {
		w := suite.request(http.MethodPatch, "/api/tasks/"+task.ID, body, creator)
		suite.Equal(http.StatusBadRequest, w.Code, "body %v", body)
	}

	suite.Empty(suite.publisher.events, "failed mutations never broadcast")
}

func (suite *TaskHandlerTestSuite) TestDeleteTask() {
	creator := suite.createTestUser("alice")
	task := suite.createTestTask("temp", creator.ID)

	w := suite.request(http.MethodDelete, "/api/tasks/"+task.ID, nil, creator)
	suite.Equal(http.StatusOK, w.Code)

	suite.Require().Len(suite.publisher.events, 1)
	suite.Equal(events.TaskDeleted, suite.publisher.events[0].name)
	suite.Equal(task.ID, suite.publisher.events[0].payload.TaskID)
	suite.Nil(suite.publisher.events[0].payload.Data)

	w = suite.request(http.MethodGet, "/api/tasks/"+task.ID, nil, creator)
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *TaskHandlerTestSuite) TestDeleteMissingTask() {
	creator := suite.createTestUser("alice")

	w := suite.request(http.MethodDelete, "/api/tasks/no-such-task", nil, creator)
	suite.Equal(http.StatusNotFound, w.Code)
	suite.Empty(suite.publisher.events)
}

func (suite *TaskHandlerTestSuite) TestListTasksNewestFirst() {
	creator := suite.createTestUser("alice")

	first := suite.createTestTask("first", creator.ID)
	suite.Require().NoError(suite.db.Model(first).
		Update("created_at", first.CreatedAt.Add(-time.Hour)).Error)
	second := suite.createTestTask("second", creator.ID)

	w := suite.request(http.MethodGet, "/api/tasks", nil, creator)
	suite.Equal(http.StatusOK, w.Code)

	var tasks []dto.TaskWithRelations
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &tasks))
	suite.Require().Len(tasks, 2)
	suite.Equal(second.ID, tasks[0].ID)
	suite.Equal(first.ID, tasks[1].ID)
}

func TestTaskHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(TaskHandlerTestSuite))
}
