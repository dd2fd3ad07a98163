package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"Tripboard/internal/cache"
	dom "Tripboard/internal/domain"
	"Tripboard/internal/dto"
	"Tripboard/internal/reminder"
	"Tripboard/internal/service"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	svc    *service.TaskService
	hub    *Hub
	router *gin.Engine
}

func setup(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := cache.NewFileStore(t.TempDir())
	require.NoError(t, err)
	svc := service.NewTaskService(service.Options{
		TripID: "lisbon",
		Cache:  cache.NewTripCache(store, "lisbon"),
		Log:    zerolog.Nop(),
		Now:    func() time.Time { return t0 },
	})
	svc.Start(context.Background(), nil)
	hub := NewHub(svc, zerolog.Nop())
	t.Cleanup(func() {
		hub.Close()
		_ = svc.Close()
	})

	r := gin.New()
	api := r.Group("/api/v1")
	th := NewTaskHandler(svc)
	api.POST("/tasks", th.Create)
	api.GET("/tasks", th.List)
	api.GET("/tasks/overdue", th.Overdue)
	api.GET("/tasks/due-soon", th.DueSoon)
	api.GET("/tasks/:id", th.GetByID)
	api.PATCH("/tasks/:id", th.Update)
	api.DELETE("/tasks/:id", th.Delete)
	api.POST("/tasks/:id/complete", th.Complete)
	trip := NewTripHandler(svc, "https://trip.example/")
	api.GET("/status", trip.Status)
	api.GET("/settings", trip.GetSettings)
	api.PUT("/settings", trip.PutSettings)
	api.GET("/assignees", trip.Assignees)
	api.POST("/assignees", trip.AddAssignee)
	api.GET("/share", trip.Share)
	api.POST("/share/import", trip.Import)
	api.GET("/events", hub.Serve)

	return &fixture{svc: svc, hub: hub, router: r}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestCreateAndGetTask(t *testing.T) {
	f := setup(t)
	w := f.do(t, http.MethodPost, "/api/v1/tasks",
		`{"title":"Book hostel","assignee":"Ana","status":"In Progress","deadline":"2026-09-01T11:00:00Z","reminder_lead_minutes":30}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[dto.TaskResponse](t, w)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "in_progress", created.Status)
	assert.Equal(t, "due-soon", created.Due.Label)
	assert.Equal(t, 120, created.Due.MinutesRemaining)

	w = f.do(t, http.MethodGet, "/api/v1/tasks/"+created.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Book hostel", decode[dto.TaskResponse](t, w).Title)

	w = f.do(t, http.MethodGet, "/api/v1/tasks/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateRejectsBadInput(t *testing.T) {
	f := setup(t)
	w := f.do(t, http.MethodPost, "/api/v1/tasks", `{"title":"x","reminder_lead_minutes":-5}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/tasks", `{"title":"x","deadline":"next tuesday"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/tasks", `{"id":"fixed","title":"x"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	w = f.do(t, http.MethodPost, "/api/v1/tasks", `{"id":"fixed","title":"y"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestPatchKeepsClearsAndSets(t *testing.T) {
	f := setup(t)
	w := f.do(t, http.MethodPost, "/api/v1/tasks", `{"title":"Ferry","deadline":"2026-09-03","details":"pier 2"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[dto.TaskResponse](t, w).ID

	w = f.do(t, http.MethodPatch, "/api/v1/tasks/"+id, `{"title":"Ferry to Cacilhas"}`)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[dto.TaskResponse](t, w)
	assert.Equal(t, "Ferry to Cacilhas", got.Title)
	require.NotNil(t, got.Deadline)
	assert.Equal(t, time.Date(2026, 9, 3, 0, 0, 0, 0, time.UTC), *got.Deadline)
	require.NotNil(t, got.Details)

	w = f.do(t, http.MethodPatch, "/api/v1/tasks/"+id, `{"deadline":null,"details":null}`)
	require.Equal(t, http.StatusOK, w.Code)
	got = decode[dto.TaskResponse](t, w)
	assert.Nil(t, got.Deadline)
	assert.Nil(t, got.Details)
	assert.Equal(t, "on-track", got.Due.Label)

	w = f.do(t, http.MethodPatch, "/api/v1/tasks/"+id, `{"reminder_lead_minutes":-1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPatch, "/api/v1/tasks/ghost", `{"title":"x"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCompleteAndDelete(t *testing.T) {
	f := setup(t)
	added, err := f.svc.AddTask(context.Background(), dom.Task{Title: "Pack"})
	require.NoError(t, err)

	w := f.do(t, http.MethodPost, "/api/v1/tasks/"+added.ID+"/complete", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "done", decode[dto.TaskResponse](t, w).Status)

	w = f.do(t, http.MethodDelete, "/api/v1/tasks/"+added.ID, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = f.do(t, http.MethodDelete, "/api/v1/tasks/"+added.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListFiltersAndDueViews(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	past, soon, later := t0.Add(-time.Minute), t0.Add(3*time.Hour), t0.Add(48*time.Hour)
	late, err := f.svc.AddTask(ctx, dom.Task{Title: "late", Assignee: "Ana", Deadline: &past})
	require.NoError(t, err)
	near, err := f.svc.AddTask(ctx, dom.Task{Title: "soon", Assignee: "Bo", Deadline: &soon})
	require.NoError(t, err)
	_, err = f.svc.AddTask(ctx, dom.Task{Title: "later", Assignee: "Ana", Deadline: &later})
	require.NoError(t, err)
	_, err = f.svc.AddTask(ctx, dom.Task{Title: "done late", Status: dom.StatusDone, Deadline: &past})
	require.NoError(t, err)

	items := decode[dto.ListTasksResponse](t, f.do(t, http.MethodGet, "/api/v1/tasks/overdue", "")).Items
	require.Len(t, items, 1)
	assert.Equal(t, late.ID, items[0].ID)

	items = decode[dto.ListTasksResponse](t, f.do(t, http.MethodGet, "/api/v1/tasks/due-soon", "")).Items
	require.Len(t, items, 1)
	assert.Equal(t, near.ID, items[0].ID)

	items = decode[dto.ListTasksResponse](t, f.do(t, http.MethodGet, "/api/v1/tasks?assignee=Ana", "")).Items
	assert.Len(t, items, 2)

	items = decode[dto.ListTasksResponse](t, f.do(t, http.MethodGet, "/api/v1/tasks?status=done", "")).Items
	assert.Len(t, items, 1)
}

func TestStatusSettingsAssignees(t *testing.T) {
	f := setup(t)
	st := decode[dto.StatusResponse](t, f.do(t, http.MethodGet, "/api/v1/status", ""))
	assert.Equal(t, dto.StatusResponse{TripID: "lisbon", Mode: "local"}, st)

	w := f.do(t, http.MethodPut, "/api/v1/settings", `{"kickoff":"2026-10-01"}`)
	require.Equal(t, http.StatusOK, w.Code)
	s := decode[dto.SettingsResponse](t, f.do(t, http.MethodGet, "/api/v1/settings", ""))
	require.NotNil(t, s.Kickoff)
	assert.Equal(t, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), *s.Kickoff)

	w = f.do(t, http.MethodPost, "/api/v1/assignees", `{"name":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = f.do(t, http.MethodPost, "/api/v1/assignees", `{"name":"   "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = f.do(t, http.MethodPost, "/api/v1/assignees", `{"name":"Dee"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, []string{"Dee"}, decode[dto.AssigneesResponse](t, f.do(t, http.MethodGet, "/api/v1/assignees", "")).Items)
}

func TestShareExportAndImport(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	_, err := f.svc.AddTask(ctx, dom.Task{Title: "Shared one"})
	require.NoError(t, err)

	w := f.do(t, http.MethodGet, "/api/v1/share", "")
	require.Equal(t, http.StatusOK, w.Code)
	exported := decode[dto.ShareResponse](t, w)
	assert.True(t, strings.HasPrefix(exported.Link, "https://trip.example/#share="))

	// Diverge locally, then import the earlier snapshot.
	_, err = f.svc.AddTask(ctx, dom.Task{Title: "Local only"})
	require.NoError(t, err)

	body, _ := json.Marshal(dto.ImportRequest{Token: exported.Token})
	w = f.do(t, http.MethodPost, "/api/v1/share/import", string(body))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Len(t, f.svc.Tasks(), 2)

	w = f.do(t, http.MethodPost, "/api/v1/share/import", `{"token":"%%%","confirm":true}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, f.svc.Tasks(), 2)

	body, _ = json.Marshal(dto.ImportRequest{Token: exported.Token, Confirm: true})
	w = f.do(t, http.MethodPost, "/api/v1/share/import", string(body))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[dto.ImportResponse](t, w).Imported)
	list := f.svc.Tasks()
	require.Len(t, list, 1)
	assert.Equal(t, "Shared one", list[0].Title)
}

func TestEventsFeed(t *testing.T) {
	f := setup(t)
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/api/v1/events", nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	var ev struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, wsjson.Read(ctx, conn, &ev))
	assert.Equal(t, EventTasks, ev.Type)
	require.NoError(t, wsjson.Read(ctx, conn, &ev))
	assert.Equal(t, EventStatus, ev.Type)

	require.Eventually(t, func() bool { return f.hub.Clients() == 1 }, time.Second, 5*time.Millisecond)
	_, err = f.svc.AddTask(context.Background(), dom.Task{Title: "Live"})
	require.NoError(t, err)

	require.NoError(t, wsjson.Read(ctx, conn, &ev))
	assert.Equal(t, EventTasks, ev.Type)
	assert.True(t, bytes.Contains(ev.Data, []byte(`"Live"`)))

	require.NoError(t, f.hub.Notify(ctx, reminder.Reminder{TaskID: "x", Title: "Ring"}))
	for ev.Type != EventReminder {
		require.NoError(t, wsjson.Read(ctx, conn, &ev))
	}
	assert.True(t, bytes.Contains(ev.Data, []byte(`"Ring"`)))
}
