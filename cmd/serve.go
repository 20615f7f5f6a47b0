package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/directory-cli/internal/cityname"
	"github.com/sells-group/directory-cli/internal/config"
	"github.com/sells-group/directory-cli/internal/importer"
	"github.com/sells-group/directory-cli/internal/ingest"
	"github.com/sells-group/directory-cli/internal/store"
)

var servePort int

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server for bulk listing imports",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		api := newAPI(st, cfg.Server, cfg.Import)
		return startServer(ctx, buildRouter(api, cfg.Server.CORSOrigins), resolvePort(servePort, cfg.Server.Port))
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// api holds the dependencies of the HTTP handlers.
type api struct {
	store      store.Store
	importer   *importer.Importer
	autoCreate bool
	maxUpload  int64
	limiter    *rate.Limiter
}

func newAPI(st store.Store, sc config.ServerConfig, ic config.ImportConfig) *api {
	a := &api{
		store:      st,
		importer:   importer.New(ic, st, cityname.DefaultRules()),
		autoCreate: ic.AutoCreateCities,
		maxUpload:  int64(sc.MaxUploadMB) << 20,
	}
	if sc.ImportsPerMinute > 0 {
		a.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(sc.ImportsPerMinute)), sc.ImportsPerMinute)
	}
	return a
}

func buildRouter(a *api, corsOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/states", a.listStates)
		r.Get("/states/{stateID}/cities", a.listCities)
		r.Get("/cities/{cityID}/listings", a.listListings)
		r.With(a.throttle).Post("/listings/bulk-import", a.bulkImport)
	})

	return r
}

// requestLogger logs one line per request through the global zap logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// throttle rejects imports beyond the configured rate.
func (a *api) throttle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.limiter != nil && !a.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "too many imports, try again shortly")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *api) listStates(w http.ResponseWriter, r *http.Request) {
	states, err := a.store.ListStates(r.Context())
	if err != nil {
		zap.L().Error("list states failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"states": states})
}

func (a *api) listCities(w http.ResponseWriter, r *http.Request) {
	stateID := chi.URLParam(r, "stateID")
	st, err := a.store.GetState(r.Context(), stateID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if st == nil {
		writeError(w, http.StatusNotFound, "state not found")
		return
	}
	cities, err := a.store.ListCities(r.Context(), stateID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"state": st, "cities": cities})
}

func (a *api) listListings(w http.ResponseWriter, r *http.Request) {
	listings, err := a.store.ListListings(r.Context(), chi.URLParam(r, "cityID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"listings": listings})
}

// bulkImport accepts a multipart upload with fields file, stateId and
// autoCreateCities.
func (a *api) bulkImport(w http.ResponseWriter, r *http.Request) {
	if a.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, a.maxUpload)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	req := importer.Request{
		StateID:    r.FormValue("stateId"),
		AutoCreate: a.autoCreate,
	}
	if v := r.FormValue("autoCreateCities"); v != "" {
		req.AutoCreate = v == "true"
	}

	file, header, err := r.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		writeError(w, http.StatusBadRequest, "read upload: "+err.Error())
		return
	default:
		defer file.Close() //nolint:errcheck
		data, err := io.ReadAll(file)
		if err != nil {
			writeError(w, http.StatusBadRequest, "read upload: "+err.Error())
			return
		}
		req.Filename = header.Filename
		req.Data = data
	}

	report, err := a.importer.Run(r.Context(), req)
	if err != nil {
		writeImportError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func writeImportError(w http.ResponseWriter, err error) {
	var perr *ingest.ParseError
	switch {
	case errors.As(err, &perr):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":       "could not parse upload",
			"diagnostics": perr.Diagnostics,
		})
	case errors.Is(err, importer.ErrMissingStateID),
		errors.Is(err, importer.ErrMissingFile),
		errors.Is(err, ingest.ErrEmptyFile):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, importer.ErrStateNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		zap.L().Error("bulk import failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "import failed",
			"details": err.Error(),
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("write response failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// resolvePort prefers the flag value over the configured port.
func resolvePort(flagPort, cfgPort int) int {
	if flagPort != 0 {
		return flagPort
	}
	return cfgPort
}

// startServer serves handler on port until ctx is cancelled, then shuts
// down gracefully.
func startServer(ctx context.Context, handler http.Handler, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return eris.Wrap(srv.Shutdown(shutdownCtx), "server shutdown")
	})
	return g.Wait()
}
