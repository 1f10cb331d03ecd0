package serving

import (
	"context"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/YuminosukeSato/abalone/pkg/errors"
	"github.com/YuminosukeSato/abalone/pkg/log"
)

// ServerOptions configures the HTTP server.
type ServerOptions struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Server is the HTTP surface of an Adapter.
type Server struct {
	echo    *echo.Echo
	adapter *Adapter
	opts    ServerOptions
	logger  log.Logger
}

// NewServer wires the routes:
//
//	GET  /         health
//	GET  /health   health
//	POST /predict  prediction, 201 on success
//	GET  /metrics  Prometheus exposition of gatherer
func NewServer(adapter *Adapter, gatherer prometheus.Gatherer, opts ServerOptions) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = jsonSerializer{}
	e.Server.ReadTimeout = opts.ReadTimeout
	e.Server.WriteTimeout = opts.WriteTimeout

	s := &Server{
		echo:    e,
		adapter: adapter,
		opts:    opts,
		logger:  log.GetLoggerWithName("http"),
	}

	e.Use(middleware.Recover())
	e.Use(s.logRequests)

	e.GET("/", s.health)
	e.GET("/health", s.health)
	e.POST("/predict", s.predict)
	if gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	return s
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	errc := make(chan error, 1)
	go func() {
		errc <- s.echo.Start(addr)
	}()
	s.logger.Info("Server listening", "addr", addr)

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "serve")
	case <-ctx.Done():
	}

	timeout := s.opts.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	graceful, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info("Shutting down", "timeout", timeout)
	if err := s.echo.Shutdown(graceful); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	return nil
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, s.adapter.Health())
}

func (s *Server) predict(c echo.Context) error {
	var req predictRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	in, err := req.input()
	if err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error()).SetInternal(err)
	}

	out, err := s.adapter.Predict(c.Request().Context(), in)
	if err != nil {
		code := statusFor(err)
		return echo.NewHTTPError(code, publicMessage(code, err)).SetInternal(err)
	}
	return c.JSON(http.StatusCreated, out)
}

// publicMessage is the body text for a failed prediction. Server-side
// failures get a fixed message; the cause stays in the internal error and
// the request log.
func publicMessage(code int, err error) string {
	switch code {
	case http.StatusServiceUnavailable:
		return "model is not available"
	case http.StatusInternalServerError:
		return "prediction failed"
	default:
		return err.Error()
	}
}

// statusFor maps an adapter error to an HTTP status: malformed input is
// the client's fault, a missing artifact file means the service is not
// ready, anything else (schema mismatch, corrupt artifact) is ours.
func statusFor(err error) int {
	var ioErr *errors.IOError
	switch {
	case errors.IsClientError(err):
		return http.StatusUnprocessableEntity
	case errors.As(err, &ioErr):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) logRequests(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		begin := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}

		fields := []any{
			"http.method", c.Request().Method,
			"http.path", c.Request().URL.Path,
			"http.status", c.Response().Status,
			log.DurationMsKey, time.Since(begin),
		}
		if err != nil {
			s.logger.Warn("Request failed", append([]any{err}, fields...)...)
		} else {
			s.logger.Debug("Request served", fields...)
		}
		return nil
	}
}

// jsonSerializer is echo's JSON codec backed by goccy/go-json.
type jsonSerializer struct{}

func (jsonSerializer) Serialize(c echo.Context, i interface{}, indent string) error {
	enc := json.NewEncoder(c.Response())
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(i)
}

func (jsonSerializer) Deserialize(c echo.Context, i interface{}) error {
	err := json.NewDecoder(c.Request().Body).Decode(i)
	if err == nil {
		return nil
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return echo.NewHTTPError(http.StatusBadRequest,
			"field "+typeErr.Field+" has the wrong type").SetInternal(err)
	}
	return echo.NewHTTPError(http.StatusBadRequest, "malformed JSON body").SetInternal(err)
}
