package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/formation-admin-api/internal/dto"
	"github.com/noah-isme/formation-admin-api/internal/middleware"
	"github.com/noah-isme/formation-admin-api/internal/models"
	"github.com/noah-isme/formation-admin-api/internal/service"
)

type sessionServiceStub struct {
	session     *models.Session
	sessions    []models.Session
	err         error
	lastRequest dto.SessionRequest
	lastID      string
	deleted     string
}

func (s *sessionServiceStub) Create(ctx context.Context, req dto.SessionRequest) (*models.Session, error) {
	s.lastRequest = req
	return s.session, s.err
}

func (s *sessionServiceStub) Get(ctx context.Context, id string) (*models.Session, error) {
	s.lastID = id
	return s.session, s.err
}

func (s *sessionServiceStub) List(ctx context.Context) ([]models.Session, error) {
	return s.sessions, s.err
}

func (s *sessionServiceStub) Update(ctx context.Context, id string, req dto.SessionRequest) (*models.Session, error) {
	s.lastID = id
	s.lastRequest = req
	return s.session, s.err
}

func (s *sessionServiceStub) Delete(ctx context.Context, id string) error {
	s.deleted = id
	return s.err
}

func (s *sessionServiceStub) SessionsForTrainer(ctx context.Context, trainerID string) ([]models.Session, error) {
	s.lastID = trainerID
	return s.sessions, s.err
}

type assignmentServiceStub struct {
	session   *models.Session
	assigned  bool
	err       error
	calls     []string
	sessionID string
	trainerID string
}

func (a *assignmentServiceStub) track(op, sessionID, trainerID string) {
	a.calls = append(a.calls, op)
	a.sessionID = sessionID
	a.trainerID = trainerID
}

func (a *assignmentServiceStub) Assign(ctx context.Context, sessionID, trainerID string) (*models.Session, error) {
	a.track("assign", sessionID, trainerID)
	return a.session, a.err
}

func (a *assignmentServiceStub) Remove(ctx context.Context, sessionID, trainerID string) (*models.Session, error) {
	a.track("remove", sessionID, trainerID)
	return a.session, a.err
}

func (a *assignmentServiceStub) ClearTrainers(ctx context.Context, sessionID string) (*models.Session, error) {
	a.track("clear", sessionID, "")
	return a.session, a.err
}

func (a *assignmentServiceStub) IsAssigned(ctx context.Context, sessionID, trainerID string) (bool, error) {
	a.track("is_assigned", sessionID, trainerID)
	return a.assigned, a.err
}

type exporterStub struct {
	file   *service.ExportFile
	err    error
	format service.ExportFormat
}

func (e *exporterStub) SessionRoster(ctx context.Context, format service.ExportFormat) (*service.ExportFile, error) {
	e.format = format
	return e.file, e.err
}

type userServiceStub struct {
	users   []models.User
	user    *models.User
	err     error
	deleted string
	created service.CreateUserRequest
}

func (u *userServiceStub) AllUsers(ctx context.Context) ([]models.User, error) {
	return u.users, u.err
}

func (u *userServiceStub) AllTrainers(ctx context.Context) ([]models.User, error) {
	return u.users, u.err
}

func (u *userServiceStub) AllCoordinators(ctx context.Context) ([]models.User, error) {
	return u.users, u.err
}

func (u *userServiceStub) Create(ctx context.Context, req service.CreateUserRequest) (*models.User, error) {
	u.created = req
	return u.user, u.err
}

func (u *userServiceStub) DeleteUser(ctx context.Context, id string) error {
	u.deleted = id
	return u.err
}

type authServiceStub struct {
	login  *models.LoginResponse
	info   *models.UserInfo
	err    error
	userID string
}

func (a *authServiceStub) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	return a.login, a.err
}

func (a *authServiceStub) Me(ctx context.Context, userID string) (*models.UserInfo, error) {
	a.userID = userID
	return a.info, a.err
}

type testRequest struct {
	method string
	target string
	body   string
	params gin.Params
	claims *models.JWTClaims
}

func perform(t *testing.T, req testRequest, handle gin.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var body *bytes.Buffer
	if req.body != "" {
		body = bytes.NewBufferString(req.body)
	} else {
		body = &bytes.Buffer{}
	}
	httpReq, err := http.NewRequest(req.method, req.target, body)
	require.NoError(t, err)
	if req.body != "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	c.Request = httpReq
	c.Params = req.params
	if req.claims != nil {
		c.Set(middleware.ContextUserKey, req.claims)
	}

	handle(c)
	c.Writer.WriteHeaderNow()
	return w
}

type envelope struct {
	Data  json.RawMessage        `json:"data"`
	Meta  map[string]interface{} `json:"meta"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}
