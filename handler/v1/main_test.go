package v1_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/luckinnnn/Model-Fine-Tuning-Platform/config"
	"github.com/luckinnnn/Model-Fine-Tuning-Platform/console"
	"github.com/luckinnnn/Model-Fine-Tuning-Platform/dao"
	"github.com/luckinnnn/Model-Fine-Tuning-Platform/infrastructure/db"
	"github.com/luckinnnn/Model-Fine-Tuning-Platform/router"
	"github.com/luckinnnn/Model-Fine-Tuning-Platform/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	config.SetLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	// 设置 Gin 为测试模式
	gin.SetMode(gin.TestMode)

	os.Exit(m.Run())
}

type testServer struct {
	router     *gin.Engine
	tasks      *service.TaskService
	comparison *service.ComparisonService
}

// newTestServer 每个测试独立的内存库与控制台状态
func newTestServer(t *testing.T, seed bool) testServer {
	t.Helper()
	conn, err := db.Open(config.DBConfig{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	catalog, err := config.LoadCatalog("")
	require.NoError(t, err)

	tasks := service.NewTaskService(dao.NewTaskDAOWithDB(conn), service.NewCatalogService(catalog))
	if seed {
		_, err := tasks.SeedTasks(context.Background())
		require.NoError(t, err)
	}
	comparison := service.NewComparisonService(service.NewSimulatedRunner(200*time.Millisecond), nil, "怎么重置我的密码？")
	t.Cleanup(comparison.Close)

	r, err := router.SetupRouter(router.Dependencies{
		Tasks:      tasks,
		Comparison: comparison,
		Console:    console.NewController(tasks, comparison),
	})
	require.NoError(t, err)

	return testServer{router: r, tasks: tasks, comparison: comparison}
}

// performRequest 执行请求的辅助函数
func performRequest(r http.Handler, method, path string, body io.Reader) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func performFormRequest(r http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
