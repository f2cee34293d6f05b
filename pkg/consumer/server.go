package consumer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/runlayer/sidemount/pkg/metrics"
	"github.com/runlayer/sidemount/pkg/types"
)

var errPathEscapesWorkspace = errors.New("path escapes the workspace root")

type fileEntry struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	IsDir   bool      `json:"is_dir"`
	ModTime time.Time `json:"mod_time"`
}

// Server is the workload half of the consumer: a small file service rooted
// at the verified mount path, with its own liveness and readiness endpoints
// independent of the mounter's.
type Server struct {
	e       *echo.Echo
	config  types.ConsumerConfig
	checker MountChecker
}

func NewServer(config types.ConsumerConfig, checker MountChecker, registry *metrics.Registry, logOut io.Writer, debug bool) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	configureRequestLogger(e, logOut, debug)

	s := &Server{e: e, config: config, checker: checker}

	g := e.Group("/api/v1")
	g.GET("/files", s.ListFiles)
	g.GET("/files/content", s.ReadFile)
	g.PUT("/files/content", s.WriteFile)

	e.GET("/healthz", s.HealthCheck)
	e.GET("/readyz", s.ReadinessCheck)

	if registry != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry.Registrar(), promhttp.HandlerOpts{
			EnableOpenMetrics: true,
		})))
	}

	return s
}

func (s *Server) Start() error {
	return s.e.Start(fmt.Sprintf(":%d", s.config.Server.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

func (s *Server) HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// ReadinessCheck re-verifies the mount on every call. If the filesystem
// client dies underneath us the consumer stops reporting ready but keeps
// running; restarting it is the supervisor's decision.
func (s *Server) ReadinessCheck(c echo.Context) error {
	if !s.checker.IsMountPoint(s.config.MountPath) {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  fmt.Sprintf("'%s' is not a mount point", s.config.MountPath),
		})
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) ListFiles(c echo.Context) error {
	target, err := s.workspacePath(c.QueryParam("path"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	entries, err := os.ReadDir(target)
	if err != nil {
		if os.IsNotExist(err) {
			return echo.NewHTTPError(http.StatusNotFound, "no such directory")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	files := make([]fileEntry, 0, len(entries))
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}

		files = append(files, fileEntry{
			Name:    entry.Name(),
			Size:    info.Size(),
			IsDir:   entry.IsDir(),
			ModTime: info.ModTime(),
		})
	}

	return c.JSON(http.StatusOK, files)
}

func (s *Server) ReadFile(c echo.Context) error {
	target, err := s.workspacePath(c.QueryParam("path"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	f, err := os.Open(target)
	if err != nil {
		if os.IsNotExist(err) {
			return echo.NewHTTPError(http.StatusNotFound, "no such file")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	defer f.Close()

	return c.Stream(http.StatusOK, echo.MIMEOctetStream, f)
}

func (s *Server) WriteFile(c echo.Context) error {
	target, err := s.workspacePath(c.QueryParam("path"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	f, err := os.Create(target)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	defer f.Close()

	written, err := io.Copy(f, c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]int64{"bytes_written": written})
}

// workspacePath resolves a client-supplied relative path against the mount
// root, rejecting anything that would escape it.
func (s *Server) workspacePath(rel string) (string, error) {
	cleaned := filepath.Clean("/" + rel)
	if cleaned == "/" {
		return s.config.MountPath, nil
	}

	target := filepath.Join(s.config.MountPath, cleaned)
	if !strings.HasPrefix(target, filepath.Clean(s.config.MountPath)+string(os.PathSeparator)) {
		return "", errPathEscapesWorkspace
	}

	return target, nil
}
