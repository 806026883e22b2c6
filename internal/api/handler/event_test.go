package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sc941432/Atlan/internal/application"
	"github.com/sc941432/Atlan/internal/domain/event"
)

// MockEventService はイベントサービスのモック
type MockEventService struct {
	mock.Mock
}

func (m *MockEventService) CreateEvent(ctx context.Context, input application.CreateEventInput) (*event.Event, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.Event), args.Error(1)
}

func (m *MockEventService) GetEvent(ctx context.Context, id int64) (*event.Event, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.Event), args.Error(1)
}

func (m *MockEventService) ListEvents(ctx context.Context, limit, offset int) ([]*event.Event, int, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*event.Event), args.Int(1), args.Error(2)
}

func (m *MockEventService) UpdateEvent(ctx context.Context, id int64, input application.UpdateEventInput) (*event.Event, error) {
	args := m.Called(ctx, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.Event), args.Error(1)
}

func (m *MockEventService) DeactivateEvent(ctx context.Context, id int64) (*event.Event, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.Event), args.Error(1)
}

func (m *MockEventService) DeleteEvent(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

var _ EventServiceInterface = (*MockEventService)(nil)

func sampleEvent(id int64, capacity, booked int) *event.Event {
	now := time.Now()
	return &event.Event{
		ID:          id,
		Name:        "夏フェス 2026",
		Venue:       "幕張メッセ",
		StartTime:   now.Add(24 * time.Hour),
		EndTime:     now.Add(30 * time.Hour),
		Capacity:    capacity,
		BookedCount: booked,
		Status:      event.StatusActive,
		CreatedAt:   now,
	}
}

func TestEventHandler_Create(t *testing.T) {
	e := NewTestEcho()

	t.Run("正常にイベントを作成できる", func(t *testing.T) {
		mockService := new(MockEventService)
		handler := NewEventHandler(mockService)

		mockService.On("CreateEvent", mock.Anything, mock.MatchedBy(func(in application.CreateEventInput) bool {
			return in.Name == "夏フェス 2026" && in.Capacity == 500 && in.CreatedBy == 99
		})).Return(sampleEvent(1, 500, 0), nil)

		body := `{
			"name": "夏フェス 2026",
			"venue": "幕張メッセ",
			"start_time": "2026-08-01T10:00:00Z",
			"end_time": "2026-08-01T21:00:00Z",
			"capacity": 500
		}`
		req := httptest.NewRequest(http.MethodPost, "/admin/events", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		asUser(c, 99, true)

		err := handler.Create(c)

		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, rec.Code)

		var resp EventResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, int64(1), resp.ID)
		assert.Equal(t, 500, resp.Available)
		mockService.AssertExpectations(t)
	})

	t.Run("収容数が0の場合はバリデーションエラーになる", func(t *testing.T) {
		mockService := new(MockEventService)
		handler := NewEventHandler(mockService)

		body := `{
			"name": "夏フェス 2026",
			"start_time": "2026-08-01T10:00:00Z",
			"end_time": "2026-08-01T21:00:00Z",
			"capacity": 0
		}`
		req := httptest.NewRequest(http.MethodPost, "/admin/events", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		asUser(c, 99, true)

		err := handler.Create(c)

		require.Error(t, err)
		mockService.AssertNotCalled(t, "CreateEvent")
	})
}

func TestEventHandler_GetByID(t *testing.T) {
	e := NewTestEcho()

	t.Run("イベントを取得できる", func(t *testing.T) {
		mockService := new(MockEventService)
		handler := NewEventHandler(mockService)

		mockService.On("GetEvent", mock.Anything, int64(1)).
			Return(sampleEvent(1, 100, 30), nil)

		req := httptest.NewRequest(http.MethodGet, "/events/1", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("id")
		c.SetParamValues("1")

		err := handler.GetByID(c)

		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp EventResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 30, resp.BookedCount)
		assert.Equal(t, 70, resp.Available)
	})

	t.Run("存在しないイベントはエラーをそのまま返す", func(t *testing.T) {
		mockService := new(MockEventService)
		handler := NewEventHandler(mockService)

		mockService.On("GetEvent", mock.Anything, int64(99)).
			Return(nil, event.ErrEventNotFound)

		req := httptest.NewRequest(http.MethodGet, "/events/99", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("id")
		c.SetParamValues("99")

		err := handler.GetByID(c)

		assert.ErrorIs(t, err, event.ErrEventNotFound)
	})
}

func TestEventHandler_List(t *testing.T) {
	e := NewTestEcho()

	t.Run("デフォルトのページングで一覧を取得できる", func(t *testing.T) {
		mockService := new(MockEventService)
		handler := NewEventHandler(mockService)

		events := []*event.Event{sampleEvent(1, 100, 10), sampleEvent(2, 200, 50)}
		mockService.On("ListEvents", mock.Anything, 20, 0).Return(events, 2, nil)

		req := httptest.NewRequest(http.MethodGet, "/events", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := handler.List(c)

		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp EventListResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Len(t, resp.Events, 2)
		assert.Equal(t, 2, resp.Total)
		assert.Equal(t, 20, resp.Limit)
	})

	t.Run("クエリパラメータのページングが反映される", func(t *testing.T) {
		mockService := new(MockEventService)
		handler := NewEventHandler(mockService)

		mockService.On("ListEvents", mock.Anything, 5, 10).
			Return([]*event.Event{}, 0, nil)

		req := httptest.NewRequest(http.MethodGet, "/events?limit=5&offset=10", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := handler.List(c)

		require.NoError(t, err)
		mockService.AssertExpectations(t)
	})
}

func TestEventHandler_Update(t *testing.T) {
	e := NewTestEcho()

	t.Run("収容数を更新できる", func(t *testing.T) {
		mockService := new(MockEventService)
		handler := NewEventHandler(mockService)

		updated := sampleEvent(1, 150, 30)
		mockService.On("UpdateEvent", mock.Anything, int64(1), mock.MatchedBy(func(in application.UpdateEventInput) bool {
			return in.Capacity != nil && *in.Capacity == 150 && in.Name == nil
		})).Return(updated, nil)

		body := `{"capacity": 150}`
		req := httptest.NewRequest(http.MethodPut, "/admin/events/1", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("id")
		c.SetParamValues("1")
		asUser(c, 99, true)

		err := handler.Update(c)

		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("不正なステータスはバリデーションエラーになる", func(t *testing.T) {
		mockService := new(MockEventService)
		handler := NewEventHandler(mockService)

		body := `{"status": "paused"}`
		req := httptest.NewRequest(http.MethodPut, "/admin/events/1", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("id")
		c.SetParamValues("1")
		asUser(c, 99, true)

		err := handler.Update(c)

		require.Error(t, err)
		mockService.AssertNotCalled(t, "UpdateEvent")
	})

	t.Run("縮小不可エラーはそのまま返す", func(t *testing.T) {
		mockService := new(MockEventService)
		handler := NewEventHandler(mockService)

		mockService.On("UpdateEvent", mock.Anything, int64(1), mock.Anything).
			Return(nil, event.ErrCapacityBelowBooked)

		body := `{"capacity": 10}`
		req := httptest.NewRequest(http.MethodPut, "/admin/events/1", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("id")
		c.SetParamValues("1")
		asUser(c, 99, true)

		err := handler.Update(c)

		assert.ErrorIs(t, err, event.ErrCapacityBelowBooked)
	})
}

func TestEventHandler_Delete(t *testing.T) {
	e := NewTestEcho()

	t.Run("イベントを削除できる", func(t *testing.T) {
		mockService := new(MockEventService)
		handler := NewEventHandler(mockService)

		mockService.On("DeleteEvent", mock.Anything, int64(1)).Return(nil)

		req := httptest.NewRequest(http.MethodDelete, "/admin/events/1", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("id")
		c.SetParamValues("1")
		asUser(c, 99, true)

		err := handler.Delete(c)

		require.NoError(t, err)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("予約が存在する場合はエラーをそのまま返す", func(t *testing.T) {
		mockService := new(MockEventService)
		handler := NewEventHandler(mockService)

		mockService.On("DeleteEvent", mock.Anything, int64(1)).
			Return(event.ErrEventHasBookings)

		req := httptest.NewRequest(http.MethodDelete, "/admin/events/1", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("id")
		c.SetParamValues("1")
		asUser(c, 99, true)

		err := handler.Delete(c)

		assert.ErrorIs(t, err, event.ErrEventHasBookings)
	})
}
