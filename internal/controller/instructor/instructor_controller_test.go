package instructor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/lshigami/quizcore/internal/dto"
	"github.com/lshigami/quizcore/internal/middleware"
	"github.com/lshigami/quizcore/internal/service"
)

type fakeDisputes struct {
	service.DisputeService
	page  dto.PageQuery
	calls int
}

func (f *fakeDisputes) ListPending(_ context.Context, _ service.Caller, page dto.PageQuery) ([]dto.ReportDTO, error) {
	f.calls++
	f.page = page
	return []dto.ReportDTO{{ID: 1}}, nil
}

func TestInstructorController_ListPendingReportsPaging(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		name     string
		query    string
		wantCode int
		wantPage dto.PageQuery
	}{
		{"no paging", "", http.StatusOK, dto.PageQuery{}},
		{"skip and limit", "?skip=20&limit=10", http.StatusOK, dto.PageQuery{Skip: 20, Limit: 10}},
		{"negative skip", "?skip=-1", http.StatusBadRequest, dto.PageQuery{}},
		{"limit too large", "?limit=501", http.StatusBadRequest, dto.PageQuery{}},
		{"not a number", "?limit=ten", http.StatusBadRequest, dto.PageQuery{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			disputes := &fakeDisputes{}
			r := gin.New()
			NewInstructorController(nil, disputes).RegisterRoutes(r.Group("/api/v1", middleware.Identity()))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/instructor/reports"+tt.query, nil)
			req.Header.Set(middleware.HeaderUserID, "1")
			req.Header.Set(middleware.HeaderUserRole, string(service.RoleInstructor))
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.wantCode, w.Body.String())
			}
			if tt.wantCode != http.StatusOK {
				if disputes.calls != 0 {
					t.Errorf("service called %d times on a rejected query", disputes.calls)
				}
				return
			}
			if disputes.page != tt.wantPage {
				t.Errorf("page = %+v, want %+v", disputes.page, tt.wantPage)
			}
		})
	}
}
